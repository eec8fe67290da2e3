package providers

import (
	"github.com/guildpoint/merit/internal/providers/badge"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	badge.Module,
)
