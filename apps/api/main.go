package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jewelbill/internal/auth"
	"github.com/smallbiznis/jewelbill/internal/authorization"
	"github.com/smallbiznis/jewelbill/internal/bill"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	"github.com/smallbiznis/jewelbill/internal/metalrate"
	"github.com/smallbiznis/jewelbill/internal/observability"
	"github.com/smallbiznis/jewelbill/internal/product"
	"github.com/smallbiznis/jewelbill/internal/providers/pdf"
	"github.com/smallbiznis/jewelbill/internal/ratelimit"
	"github.com/smallbiznis/jewelbill/internal/server"
	"github.com/smallbiznis/jewelbill/pkg/db"
	"go.uber.org/fx"
)

// The API binary serves HTTP only; rate refreshes run in apps/scheduler.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,

		authorization.Module,
		auth.Module,
		product.Module,
		pdf.Module,
		bill.Module,
		metalrate.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
