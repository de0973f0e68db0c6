package app

import (
	"context"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", StorageDriverMemory, " MEMORY "} {
		deps, err := initRuntimeDependencies(context.Background(), Config{
			StorageDriver: driver,
		}, log.WithField("test", "memory-storage"))
		if err != nil {
			t.Fatalf("initRuntimeDependencies(%q) failed: %v", driver, err)
		}
		if deps.customers == nil || deps.articles == nil || deps.orders == nil || deps.outboxRepo == nil {
			t.Fatalf("memory repositories must be initialized: %+v", deps)
		}
		if deps.storageChecker != nil || deps.closeFn != nil {
			t.Fatal("memory storage has no checker and nothing to close")
		}
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestCloseStorage(t *testing.T) {
	logger := log.WithField("test", "close-storage")

	closeStorage(storageDependencies{}, logger)

	closed := false
	closeStorage(storageDependencies{closeFn: func() error {
		closed = true
		return nil
	}}, logger)
	if !closed {
		t.Fatal("expected closeFn to be called")
	}
}
