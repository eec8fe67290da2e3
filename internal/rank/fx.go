package rank

import (
	"github.com/guildpoint/merit/internal/rank/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rank.service",
	fx.Provide(service.NewService),
)
