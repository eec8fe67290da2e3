package ledger

import (
	"github.com/guildpoint/merit/internal/ledger/repository"
	"github.com/guildpoint/merit/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
