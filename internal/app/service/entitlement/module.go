package entitlement

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(NewPlans),
	fx.Provide(NewResolver),
)
