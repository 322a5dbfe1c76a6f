package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/noticecast/pkg/config"
	"github.com/angelmondragon/noticecast/pkg/db"
	"github.com/angelmondragon/noticecast/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev with
// NOTICECAST_AUTO_MIGRATE enabled. Other environments migrate through
// cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	if version, err := CurrentVersion(ctx, sqlDB); err == nil {
		ctx = logg.WithField(ctx, "schema_version", version)
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
