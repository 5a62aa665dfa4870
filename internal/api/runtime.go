package api

import (
	"fmt"
	"log/slog"

	"clipvault/internal/assets"
	"clipvault/internal/capability"
	"clipvault/internal/config"
	"clipvault/internal/derive"
	"clipvault/internal/ingest"
	"clipvault/internal/metrics"
	"clipvault/internal/storage"
	"clipvault/internal/transcode"
)

// Runtime bundles the opened store with the composed service.
type Runtime struct {
	Store   *assets.Store
	Area    *storage.Area
	Service *VideoService
}

// OpenRuntime opens the asset store and wires every pipeline component from
// cfg. Token issuance is disabled when no signing secret is configured.
func OpenRuntime(cfg *config.Config, engine transcode.Engine, m *metrics.Metrics, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	area, err := storage.New(cfg.Paths.StorageDir)
	if err != nil {
		return nil, err
	}
	store, err := assets.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open asset store: %w", err)
	}

	var tokens *capability.Service
	if cfg.Tokens.Secret != "" {
		tokens, err = capability.NewService(cfg.Tokens.Secret, capability.WithTTL(cfg.TokenTTL()))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	repo := assets.NewRepository(store)
	service := NewVideoService(VideoServiceConfig{
		Repository:        repo,
		Validator:         ingest.NewValidator(repo, engine, area, ingest.LimitsFromConfig(cfg), logger),
		Orchestrator:      derive.NewOrchestrator(repo, engine, area, logger),
		Tokens:            tokens,
		Area:              area,
		PublicURL:         cfg.API.PublicURL,
		MaxUploadBytes:    cfg.MaxUploadBytes(),
		AllowedExtensions: cfg.Media.AllowedExtensions,
		Metrics:           m,
		Logger:            logger,
	})
	return &Runtime{Store: store, Area: area, Service: service}, nil
}

// Close releases the store.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.Store.Close()
}
