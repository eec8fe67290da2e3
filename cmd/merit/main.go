package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/guildpoint/merit/internal/housekeeping"
	"github.com/guildpoint/merit/internal/migration"
	"github.com/guildpoint/merit/internal/observability"
	"github.com/guildpoint/merit/internal/server"
	"github.com/guildpoint/merit/pkg/db"
	"go.uber.org/fx"
)

// The monolith: API, admin surface, and the housekeeping loop in one
// process. Hosted deployments split these into apps/api and
// apps/housekeeper instead.
func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		migration.Module,
		server.Module,
		housekeeping.Module,
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
