package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/db"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

// MaybeRunDev brings a dev database up to the embedded schema at boot.
// Outside dev, or with RENTMARKET_AUTO_MIGRATE off, it does nothing.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := ValidateEmbedded(); err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	migrator, err := New(sqlDB, "")
	if err != nil {
		return err
	}

	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	version, err := migrator.Version(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(applied))
	for _, a := range applied {
		names = append(names, a.Name)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"applied":        names,
		"schema_version": version,
	}), "migrations.autorun")
	return nil
}
