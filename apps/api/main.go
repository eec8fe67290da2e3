package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/guildpoint/merit/internal/migration"
	"github.com/guildpoint/merit/internal/observability"
	"github.com/guildpoint/merit/internal/server"
	"github.com/guildpoint/merit/pkg/db"
	"go.uber.org/fx"
)

// API-only process for hosted deployments. The housekeeping loop runs in
// apps/housekeeper.
func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		migration.Module,
		server.Module,
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
