package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/retail/internal/health"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
	"github.com/vladislavdragonenkov/retail/internal/storage/postgres"
)

// storageDependencies: репозитории выбранного драйвера.
type storageDependencies struct {
	customers  domain.CustomerRepository
	articles   domain.ArticleRepository
	orders     domain.OrderRepository
	outboxRepo domain.OutboxRepository

	// storageChecker и closeFn заданы только для внешнего хранилища.
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func newMemoryStorage() storageDependencies {
	return storageDependencies{
		customers:  memory.NewCustomerRepository(),
		articles:   memory.NewArticleRepository(),
		orders:     memory.NewOrderRepository(),
		outboxRepo: memory.NewOutboxRepository(),
	}
}

// initRuntimeDependencies открывает хранилище по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (storageDependencies, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver)); driver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory storage")
		return newMemoryStorage(), nil
	case StorageDriverPostgres:
		return initPostgresStorage(ctx, cfg, logger)
	default:
		return storageDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresStorage(ctx context.Context, cfg Config, logger *log.Entry) (storageDependencies, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return storageDependencies{}, errors.New("postgres dsn is required for postgres storage driver")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return storageDependencies{}, err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return storageDependencies{}, err
		}
		status, err := store.Status(ctx)
		if err != nil {
			_ = store.Close()
			return storageDependencies{}, err
		}
		logger.WithField("schema_version", status.Version).Info("postgres migrations applied")
	}

	logger.Info("using postgres storage")
	return storageDependencies{
		customers:      postgres.NewCustomerRepository(store),
		articles:       postgres.NewArticleRepository(store),
		orders:         postgres.NewOrderRepository(store),
		outboxRepo:     postgres.NewOutboxRepository(store),
		storageChecker: healthcheck.PingChecker(store),
		closeFn:        store.Close,
	}, nil
}

func closeStorage(storage storageDependencies, logger *log.Entry) {
	if storage.closeFn == nil {
		return
	}
	if err := storage.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}
