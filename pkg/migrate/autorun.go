package migrate

import (
	"context"
	"fmt"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup in dev when
// auto-migrate is switched on. SQLite runs rely on gorm's AutoMigrate instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.FeatureFlags.UseSQLite || (cfg.DB.Driver != "" && cfg.DB.Driver != db.DriverPostgres) {
		logg.Warn(ctx, "dev auto-migrate skipped for non-postgres driver")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB, nil, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	pending, err := migrator.Pending(ctx)
	if err != nil {
		return fmt.Errorf("checking pending migrations: %w", err)
	}
	if !pending {
		logg.Info(ctx, "schema up to date")
		return nil
	}
	return migrator.Up(ctx)
}
