package usecase

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the lifecycle use cases and ties the completion monitor to
// the Fx application lifecycle.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewDefaultBatchSubmitter,
		fx.As(new(BatchSubmitter)),
	)),
	fx.Provide(fx.Annotate(
		NewDefaultResultReconciler,
		fx.As(new(ResultReconciler)),
	)),
	fx.Provide(fx.Annotate(
		NewDefaultBatchQuery,
		fx.As(new(BatchQuery)),
	)),
	fx.Provide(fx.Annotate(
		NewPollingCompletionMonitor,
		fx.As(new(CompletionMonitor)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, monitor CompletionMonitor) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return monitor.Start(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return monitor.Stop(ctx)
			},
		})
	}),
)
