package storage

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"placefeeds/internal/infrastructure/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

func newMigrator(cfg config.DBConfig) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate, log *slog.Logger) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		log.Warn("Failed to close migrator", slog.Any("error", err))
	}
}

// Migrate применяет все непримененные миграции.
func Migrate(cfg config.DBConfig, log *slog.Logger) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Database schema is up to date")
			return nil
		}
		log.Error("Failed to apply migrations", slog.Any("error", err))
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logVersion(m, log, "Database migrated")
	return nil
}

// Rollback откатывает последнюю примененную миграцию.
func Rollback(cfg config.DBConfig, log *slog.Logger) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, migrate.ErrNilVersion) {
			log.Info("Nothing to roll back")
			return nil
		}
		log.Error("Failed to roll back migration", slog.Any("error", err))
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	logVersion(m, log, "Migration rolled back")
	return nil
}

// Reset откатывает все миграции.
func Reset(cfg config.DBConfig, log *slog.Logger) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := down(m, 0); err != nil {
		log.Error("Failed to reset database", slog.Any("error", err))
		return fmt.Errorf("failed to reset database: %w", err)
	}
	logVersion(m, log, "Database reset")
	return nil
}

// Refresh откатывает steps миграций (0 - все) и применяет их заново.
func Refresh(cfg config.DBConfig, steps int, log *slog.Logger) error {
	if steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", steps)
	}
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := down(m, steps); err != nil {
		log.Error("Failed to roll back migrations", slog.Any("error", err))
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("Failed to apply migrations", slog.Any("error", err))
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logVersion(m, log, "Database refreshed")
	return nil
}

func down(m *migrate.Migrate, steps int) error {
	var err error
	if steps == 0 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, migrate.ErrNilVersion) {
		return nil
	}
	// Шагов больше, чем примененных миграций: откачено все, что было
	var short migrate.ErrShortLimit
	if errors.As(err, &short) {
		return nil
	}
	return err
}

func logVersion(m *migrate.Migrate, log *slog.Logger, msg string) {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Warn("Failed to read schema version", slog.Any("error", err))
		return
	}
	log.Info(msg, slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}
