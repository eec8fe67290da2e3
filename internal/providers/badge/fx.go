package badge

import "go.uber.org/fx"

var Module = fx.Module("providers.badge",
	fx.Provide(NewProvider),
)

// NewProvider returns the no-op implementation. Deployments with a real
// platform adapter decorate their own Provider in at the app root.
func NewProvider() Provider {
	return &NoOpProvider{}
}
