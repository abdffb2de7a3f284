package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jewelbill/internal/auth"
	"github.com/smallbiznis/jewelbill/internal/authorization"
	"github.com/smallbiznis/jewelbill/internal/bill"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	"github.com/smallbiznis/jewelbill/internal/metalrate"
	"github.com/smallbiznis/jewelbill/internal/migration"
	"github.com/smallbiznis/jewelbill/internal/observability"
	"github.com/smallbiznis/jewelbill/internal/product"
	"github.com/smallbiznis/jewelbill/internal/providers/pdf"
	"github.com/smallbiznis/jewelbill/internal/ratelimit"
	"github.com/smallbiznis/jewelbill/internal/scheduler"
	"github.com/smallbiznis/jewelbill/internal/server"
	"github.com/smallbiznis/jewelbill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// Functional Domains
		authorization.Module,
		auth.Module,
		product.Module,
		pdf.Module,
		bill.Module,
		metalrate.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
