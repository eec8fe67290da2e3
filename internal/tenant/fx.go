package tenant

import (
	"github.com/guildpoint/merit/internal/tenant/repository"
	"github.com/guildpoint/merit/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
