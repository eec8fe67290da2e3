package audit

import (
	"github.com/guildpoint/merit/internal/audit/repository"
	"github.com/guildpoint/merit/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
