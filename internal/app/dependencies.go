package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	healthcheck "github.com/andyoknen/p2p-bastyon-backend/internal/health"
	"github.com/andyoknen/p2p-bastyon-backend/internal/messaging/kafka"
	"github.com/andyoknen/p2p-bastyon-backend/internal/metrics"
	"github.com/andyoknen/p2p-bastyon-backend/internal/service/profile"
	"github.com/andyoknen/p2p-bastyon-backend/internal/storage/blob"
	transport "github.com/andyoknen/p2p-bastyon-backend/internal/transport/http"
)

// profileBackend объединяет контракты, которые обслуживает сервис профилей.
type profileBackend interface {
	domain.ProfileProvider
	domain.SignatureVerifier
}

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Storage  *storageBundle
	Profiles profileBackend
	Node     transport.NodeInfoProvider
	Blobs    *blob.DiskStore
	Producer *kafka.Producer
	Metrics  *metrics.ExchangeMetrics
	Logger   *log.Entry
}

// NewDependencies создаёт и инициализирует все зависимости приложения.
// Без прокси Bastyon профили и подписи обслуживает mock: подпись
// принимается на веру, профиль статический — режим только для разработки.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	stor, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Storage: stor,
		Metrics: metrics.NewExchangeMetrics(),
		Logger:  logger,
	}

	if cfg.ProxyURL != "" {
		client := profile.NewClient(cfg.ProxyURL, logger.WithField("component", "profile-client"))
		deps.Profiles = client
		deps.Node = client
	} else {
		logger.Warn("proxy url is not set, using mock profile service")
		deps.Profiles = profile.NewMockService()
	}

	if cfg.UploadDir != "" {
		blobs, err := blob.NewDiskStore(cfg.UploadDir)
		if err != nil {
			_ = stor.close()
			return nil, fmt.Errorf("init upload dir: %w", err)
		}
		deps.Blobs = blobs
	}

	// Kafka опционален: без брокеров события просто не публикуются.
	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil && producer != nil {
		deps.Producer = producer
	}

	return deps, nil
}

// Publisher возвращает издателя событий или nil, если Kafka не настроен.
func (d *Dependencies) Publisher() domain.EventPublisher {
	if d.Producer == nil {
		return nil
	}
	return d.Producer
}

// BlobStore возвращает хранилище загрузок или nil, если оно выключено.
func (d *Dependencies) BlobStore() domain.BlobStore {
	if d.Blobs == nil {
		return nil
	}
	return d.Blobs
}

// HealthHandler собирает health-обработчик с проверками компонентов.
// Прокси Bastyon — необязательная зависимость: его недоступность понижает
// статус до degraded, каталог офферов при этом продолжает работать.
func (d *Dependencies) HealthHandler(version string) *healthcheck.Handler {
	h := healthcheck.NewHandler(version)
	h.RegisterChecker("storage", d.Storage.checker)
	if d.Node != nil {
		node := d.Node
		h.RegisterOptionalChecker("proxy", healthcheck.NewSimpleChecker("proxy", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := node.GetNodeInfo(ctx)
			return err
		}))
	}
	return h
}

// Close освобождает ресурсы в обратном порядке инициализации.
func (d *Dependencies) Close() {
	closeKafka(d.Producer, d.Logger)
	if err := d.Storage.close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close storage")
	}
}
