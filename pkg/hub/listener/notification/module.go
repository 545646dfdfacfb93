package notification

import (
	"go.uber.org/fx"

	cfg "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	export "github.com/bduoto/omtx-hub/pkg/hub/component/export"
	port "github.com/bduoto/omtx-hub/pkg/hub/core/application/port"
)

// NewNotifier assembles the configured notifier chain.
func NewNotifier(config *cfg.Config) Notifier {
	return NewWebhookNotifier(config, NewLogNotifier())
}

// Module provides notification-related components.
var Module = fx.Options(
	fx.Provide(NewNotifier),
	fx.Provide(func(notifier Notifier, exports *export.Service) port.BatchCompletionListener {
		return NewBatchCompletionNotifier(notifier, exports)
	}),
)
