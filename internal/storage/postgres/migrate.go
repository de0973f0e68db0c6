package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus описывает состояние схемы.
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// MigrateUp применяет up-миграции; steps=0 применяет все доступные.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.runMigration(ctx, func(m *migrate.Migrate) error {
		if steps <= 0 {
			return m.Up()
		}
		return m.Steps(steps)
	})
}

// MigrateDown откатывает steps миграций; steps<=0 откатывает одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.runMigration(ctx, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Status возвращает текущую версию схемы; 0 означает, что миграции не применялись.
func (s *Store) Status(ctx context.Context) (MigrationStatus, error) {
	var status MigrationStatus
	err := s.withMigrate(ctx, func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read migration version: %w", err)
		}
		status = MigrationStatus{Version: version, Dirty: dirty}
		return nil
	})
	return status, err
}

func (s *Store) runMigration(ctx context.Context, run func(m *migrate.Migrate) error) error {
	return s.withMigrate(ctx, func(m *migrate.Migrate) error {
		// GracefulStop прерывает миграции между шагами при отмене ctx.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				m.GracefulStop <- true
			case <-done:
			}
		}()

		if err := noChange(run(m)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// withMigrate создаёт migrate.Migrate на отдельном соединении пула.
// Закрытие экземпляра освобождает только это соединение.
func (s *Store) withMigrate(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "sql/migrations")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrateLogger{log.WithField("component", "migrate")}
	defer func() {
		_, _ = m.Close()
	}()

	return fn(m)
}

// noChange сводит к ErrNoChange ответы Steps, когда шагов в нужную сторону
// меньше запрошенного.
func noChange(err error) error {
	var short migrate.ErrShortLimit
	if errors.Is(err, os.ErrNotExist) || errors.As(err, &short) {
		return migrate.ErrNoChange
	}
	return err
}

// migrateLogger адаптирует logrus к migrate.Logger.
type migrateLogger struct {
	*log.Entry
}

func (l migrateLogger) Verbose() bool {
	return l.Logger.IsLevelEnabled(log.DebugLevel)
}
