package apikey

import (
	"github.com/guildpoint/merit/internal/apikey/repository"
	"github.com/guildpoint/merit/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
