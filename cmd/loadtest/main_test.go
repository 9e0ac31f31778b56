package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize_Empty(t *testing.T) {
	require.Equal(t, latencySummary{}, summarize(nil))
}

func TestSummarize_Percentiles(t *testing.T) {
	latencies := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		latencies = append(latencies, float64(i))
	}

	sum := summarize(latencies)
	require.Equal(t, float64(1), sum.Min)
	require.Equal(t, float64(100), sum.Max)
	require.Equal(t, float64(50), sum.P50)
	require.Equal(t, float64(95), sum.P95)
	require.Equal(t, float64(99), sum.P99)
	require.InDelta(t, 50.5, sum.Avg, 0.001)
}

func TestPercentile_Bounds(t *testing.T) {
	sorted := []float64{10}
	require.Equal(t, float64(10), percentile(sorted, 1))
	require.Equal(t, float64(10), percentile(sorted, 100))
}
