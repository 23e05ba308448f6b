package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/meditrade/pricing/internal/cache"
	"github.com/meditrade/pricing/internal/clock"
	"github.com/meditrade/pricing/internal/config"
	"github.com/meditrade/pricing/internal/migration"
	"github.com/meditrade/pricing/internal/observability"
	"github.com/meditrade/pricing/internal/scheduler"
	"github.com/meditrade/pricing/internal/server"
	"github.com/meditrade/pricing/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
