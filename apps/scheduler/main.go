package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	"github.com/smallbiznis/jewelbill/internal/metalrate"
	"github.com/smallbiznis/jewelbill/internal/observability"
	"github.com/smallbiznis/jewelbill/internal/ratelimit"
	"github.com/smallbiznis/jewelbill/internal/scheduler"
	"github.com/smallbiznis/jewelbill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,

		// Domain services required by scheduler
		metalrate.Module,
		scheduler.Module,

		// HTTP runs in apps/api
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
