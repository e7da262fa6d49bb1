package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"posterbot/internal/storage/migrations"
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func RunMigrations(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) error {
	const operation = "storage.RunMigrations"

	logger.Info("Running database migrations...", zap.String("driver", driver))

	dir, err := prepareGoose(driver)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer gooseMu.Unlock()

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", operation, err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

func RollbackMigration(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) error {
	const operation = "storage.RollbackMigration"

	logger.Info("Rolling back last migration...")

	dir, err := prepareGoose(driver)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer gooseMu.Unlock()

	if err := goose.DownContext(ctx, db, dir); err != nil {
		return fmt.Errorf("%s: failed to rollback migration: %w", operation, err)
	}

	logger.Info("Migration rollback completed")
	return nil
}

func Status(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) error {
	const operation = "storage.Status"

	logger.Info("Checking migration status...")

	dir, err := prepareGoose(driver)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer gooseMu.Unlock()

	if err := goose.StatusContext(ctx, db, dir); err != nil {
		return fmt.Errorf("%s: failed to check migration status: %w", operation, err)
	}
	return nil
}

// prepareGoose locks gooseMu and configures goose for driver. The caller
// unlocks on success.
func prepareGoose(driver string) (string, error) {
	dir, dialect, err := migrations.Dir(driver)
	if err != nil {
		return "", err
	}

	gooseMu.Lock()
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		gooseMu.Unlock()
		return "", fmt.Errorf("failed to set dialect: %w", err)
	}
	return dir, nil
}
