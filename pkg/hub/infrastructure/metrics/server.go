package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	config "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// RegisterMetricsServer starts an HTTP listener exposing the Prometheus
// registry at /metrics when hub.system.metrics_address is configured.
func RegisterMetricsServer(lc fx.Lifecycle, cfg *config.Config, recorder *PrometheusRecorder) {
	addr := cfg.Hub.System.MetricsAddress
	if addr == "" {
		logger.Debugf("Metrics endpoint disabled (no metrics_address configured).")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.GetRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Infof("Metrics endpoint listening on %s.", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("Metrics endpoint terminated: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
