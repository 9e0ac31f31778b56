// Команда loadtest нагружает горячий путь добавления ордеров конкурентными
// запросами и печатает сводку по задержкам и ошибкам. Все ордера должны
// сохраниться: сервер разрешает конкуренцию за один оффер повторами записи.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type config struct {
	baseURL     string
	paymentID   int64
	total       int
	concurrency int
	timeout     time.Duration
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min_ms"`
	Max float64 `json:"max_ms"`
	Avg float64 `json:"avg_ms"`
	P50 float64 `json:"p50_ms"`
	P95 float64 `json:"p95_ms"`
	P99 float64 `json:"p99_ms"`
}

type report struct {
	Total      int            `json:"total"`
	Succeeded  int64          `json:"succeeded"`
	Failed     int64          `json:"failed"`
	DurationMs float64        `json:"duration_ms"`
	RPS        float64        `json:"rps"`
	Latency    latencySummary `json:"latency"`
	Errors     map[string]int `json:"errors,omitempty"`
}

func main() {
	cfg := parseFlags()

	client := &http.Client{Timeout: cfg.timeout}
	ctx := context.Background()

	var (
		succeeded atomic.Int64
		failed    atomic.Int64
		mu        sync.Mutex
		latencies []float64
		errCounts = map[string]int{}
	)

	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for n := range jobs {
				elapsed, err := appendOrder(ctx, client, cfg, worker, n)
				if err != nil {
					failed.Add(1)
					mu.Lock()
					errCounts[err.Error()]++
					mu.Unlock()
					continue
				}
				succeeded.Add(1)
				mu.Lock()
				latencies = append(latencies, elapsed.Seconds()*1000)
				mu.Unlock()
			}
		}(w)
	}

	for n := 0; n < cfg.total; n++ {
		jobs <- n
	}
	close(jobs)
	wg.Wait()
	total := time.Since(start)

	rep := report{
		Total:      cfg.total,
		Succeeded:  succeeded.Load(),
		Failed:     failed.Load(),
		DurationMs: total.Seconds() * 1000,
		Latency:    summarize(latencies),
		Errors:     errCounts,
	}
	if total > 0 {
		rep.RPS = float64(rep.Succeeded) / total.Seconds()
	}

	printReport(rep)

	if cfg.outputPath != "" {
		writeReport(cfg.outputPath, rep)
	}
	if rep.Failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "service base URL")
	flag.Int64Var(&cfg.paymentID, "payment-id", 1, "target payment (offer) id")
	flag.IntVar(&cfg.total, "total", 100, "total orders to append")
	flag.IntVar(&cfg.concurrency, "concurrency", 10, "concurrent workers")
	flag.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.StringVar(&cfg.outputPath, "output", "", "write JSON report to file")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(cfg.baseURL, "/")
	if cfg.total < 1 || cfg.concurrency < 1 {
		fmt.Fprintln(os.Stderr, "total and concurrency must be >= 1")
		os.Exit(2)
	}
	return cfg
}

func appendOrder(ctx context.Context, client *http.Client, cfg config, worker, n int) (time.Duration, error) {
	payload := map[string]interface{}{
		"unitPrice":     0.5,
		"fiatPrice":     50,
		"fiatCurrency":  "USD",
		"paymentMethod": "bank-transfer",
		"currency":      "USD",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/payments/%d/add-order", cfg.baseURL, cfg.paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	// Подпись mock-режима: сервис разработки доверяет адресу из заголовка.
	sig, _ := json.Marshal(map[string]string{
		"address":   fmt.Sprintf("loadtest-%d-%d", worker, n),
		"signature": "loadtest",
	})
	req.Header.Set("Signature", string(sig))

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return elapsed, nil
}

func summarize(latencies []float64) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}
	sort.Float64s(latencies)

	sum := 0.0
	for _, v := range latencies {
		sum += v
	}
	return latencySummary{
		Min: latencies[0],
		Max: latencies[len(latencies)-1],
		Avg: sum / float64(len(latencies)),
		P50: percentile(latencies, 50),
		P95: percentile(latencies, 95),
		P99: percentile(latencies, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func printReport(rep report) {
	fmt.Printf("total=%d succeeded=%d failed=%d duration=%.1fms rps=%.1f\n",
		rep.Total, rep.Succeeded, rep.Failed, rep.DurationMs, rep.RPS)
	fmt.Printf("latency ms: min=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f avg=%.2f\n",
		rep.Latency.Min, rep.Latency.P50, rep.Latency.P95, rep.Latency.P99, rep.Latency.Max, rep.Latency.Avg)
	for msg, count := range rep.Errors {
		fmt.Printf("error %q: %d\n", msg, count)
	}
}

func writeReport(path string, rep report) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal report: %v\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write report: %v\n", err)
	}
}
