package award

import (
	"github.com/guildpoint/merit/internal/award/repository"
	"github.com/guildpoint/merit/internal/award/service"
	"go.uber.org/fx"
)

var Module = fx.Module("award.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
