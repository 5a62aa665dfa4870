package main

import (
	"context"
	"log/slog"

	"clipvault/internal/api"
	"clipvault/internal/config"
	"clipvault/internal/daemon"
	"clipvault/internal/logging"
	"clipvault/internal/metrics"
	"clipvault/internal/transcode"
)

func buildEngine(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) transcode.Engine {
	return transcode.NewFFmpeg(cfg, logger, transcode.WithObserver(m.ObserveTranscode))
}

// buildDaemon opens the runtime and exposes the stored asset count as a gauge.
func buildDaemon(cfg *config.Config, engine transcode.Engine, m *metrics.Metrics, logger *slog.Logger) (*daemon.Daemon, error) {
	rt, err := api.OpenRuntime(cfg, engine, m, logger)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.RegisterAssetCount(func() float64 {
			n, err := rt.Store.Count(context.Background())
			if err != nil {
				logger.Warn("asset count unavailable", logging.Error(err))
				return 0
			}
			return float64(n)
		})
	}
	d, err := daemon.New(cfg, rt, m, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return d, nil
}
