package logger

import (
	"go.uber.org/fx"
)

// Module configures Fx to emit its container events through the
// application logger.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
