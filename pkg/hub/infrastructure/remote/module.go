package remote

import (
	"go.uber.org/fx"
)

// Module provides the Modal-backed compute provider to Fx.
var Module = fx.Options(
	fx.Provide(NewModalClient),
)
