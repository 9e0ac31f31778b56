// Package app собирает приложение: конфигурацию, зависимости, HTTP-серверы
// и аккуратную остановку по сигналу.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	healthcheck "github.com/andyoknen/p2p-bastyon-backend/internal/health"
	offersvc "github.com/andyoknen/p2p-bastyon-backend/internal/service/offer"
	ordersvc "github.com/andyoknen/p2p-bastyon-backend/internal/service/order"
	transport "github.com/andyoknen/p2p-bastyon-backend/internal/transport/http"
	"github.com/andyoknen/p2p-bastyon-backend/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает сервис и блокируется до отмены контекста или фатальной ошибки.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	offers := offersvc.NewService(
		deps.Storage.repo,
		deps.Profiles,
		deps.Publisher(),
		deps.Metrics,
		logger.WithField("component", "offer-service"),
	)
	orders := ordersvc.NewService(
		deps.Storage.repo,
		deps.Publisher(),
		deps.Metrics,
		logger.WithField("component", "order-service"),
	)

	uploadDir := ""
	if deps.Blobs != nil {
		uploadDir = deps.Blobs.Dir()
	}
	server := transport.NewServer(
		offers,
		orders,
		deps.Profiles,
		deps.BlobStore(),
		deps.Node,
		uploadDir,
		deps.Metrics,
		logger.WithField("component", "http-server"),
	)

	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux(deps.HealthHandler(version.String())),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("метрики доступны по адресу %s/metrics", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем HTTP серверы")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// metricsMux собирает служебный сервер: метрики и health-пробы.
func metricsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
