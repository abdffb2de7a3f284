package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	"github.com/smallbiznis/jewelbill/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
		if !cfg.MigrateOnStart {
			log.Info("schema migration disabled")
			return nil
		}
		if err := Migrate(conn); err != nil {
			return err
		}

		ctx := context.Background()
		if err := seed.EnsureMetalRates(ctx, conn, genID, clk.Now()); err != nil {
			return err
		}
		if cfg.IsProduction() {
			return nil
		}
		return seed.EnsureDemoProducts(ctx, conn, genID, clk.Now())
	}),
)
