package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
	healthcheck "github.com/andyoknen/p2p-bastyon-backend/internal/health"
	"github.com/andyoknen/p2p-bastyon-backend/internal/storage/memory"
	"github.com/andyoknen/p2p-bastyon-backend/internal/storage/postgres"
	"github.com/andyoknen/p2p-bastyon-backend/internal/storage/sqlite"
)

// storageBundle — репозиторий вместе с проверкой здоровья и закрытием.
type storageBundle struct {
	repo    domain.OfferRepository
	checker healthcheck.Checker
	close   func() error
}

// initStorage выбирает реализацию репозитория по драйверу из конфигурации.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageBundle, error) {
	switch cfg.StorageDriver {
	case "", "memory":
		logger.Info("using in-memory storage")
		return &storageBundle{
			repo:    memory.NewOfferRepository(),
			checker: healthcheck.NewSimpleChecker("storage", func() error { return nil }),
			close:   func() error { return nil },
		}, nil

	case "postgres":
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("using postgres storage")
		return &storageBundle{
			repo:    postgres.NewOfferRepository(store),
			checker: healthcheck.NewSimpleChecker("storage", func() error { return pingWithTimeout(store.Ping) }),
			close:   store.Close,
		}, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("using sqlite storage")
		return &storageBundle{
			repo:    sqlite.NewOfferRepository(store),
			checker: healthcheck.NewSimpleChecker("storage", store.Ping),
			close:   store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func pingWithTimeout(ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ping(ctx)
}
