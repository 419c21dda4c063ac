package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizplannaija/internal/clock"
	"github.com/smallbiznis/bizplannaija/internal/config"
	"github.com/smallbiznis/bizplannaija/internal/migration"
	"github.com/smallbiznis/bizplannaija/internal/observability"
	"github.com/smallbiznis/bizplannaija/internal/planstats"
	"github.com/smallbiznis/bizplannaija/internal/server"
	"github.com/smallbiznis/bizplannaija/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP API, domain services and the expiry sweep
		server.Module,
		planstats.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
