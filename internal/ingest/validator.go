package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"clipvault/internal/assets"
	"clipvault/internal/config"
	"clipvault/internal/logging"
	"clipvault/internal/services"
	"clipvault/internal/storage"
	"clipvault/internal/transcode"
)

const op = "upload"

// Upload describes a file already staged inside the storage area.
type Upload struct {
	Path         string
	DeclaredSize int64
	Filename     string
}

// Limits bounds what Admit accepts.
type Limits struct {
	MaxBytes           int64
	MinDurationSeconds float64
	MaxDurationSeconds float64
}

// LimitsFromConfig reads admission limits from media configuration.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxBytes:           cfg.MaxUploadBytes(),
		MinDurationSeconds: cfg.Media.MinDurationSeconds,
		MaxDurationSeconds: cfg.Media.MaxDurationSeconds,
	}
}

// Recorder persists admitted files.
type Recorder interface {
	Create(ctx context.Context, in assets.NewAsset) (*assets.Asset, error)
}

// Validator admits or rejects staged uploads.
type Validator struct {
	recorder Recorder
	engine   transcode.Engine
	area     *storage.Area
	limits   Limits
	logger   *slog.Logger
}

// NewValidator constructs a Validator.
func NewValidator(recorder Recorder, engine transcode.Engine, area *storage.Area, limits Limits, logger *slog.Logger) *Validator {
	return &Validator{
		recorder: recorder,
		engine:   engine,
		area:     area,
		limits:   limits,
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// Admit validates up and records it, returning the new asset id. On any
// failure the staged file has been removed when Admit returns.
func (v *Validator) Admit(ctx context.Context, up Upload) (string, error) {
	if up.Path == "" || !v.area.Contains(up.Path) {
		return "", services.New(services.KindInvalidRequest, op, "upload is not staged in the storage area")
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := v.area.Remove(up.Path); err != nil {
			v.logger.Warn("failed to discard rejected upload",
				logging.String("path", up.Path),
				logging.Error(err),
			)
		}
	}()

	if v.limits.MaxBytes > 0 && up.DeclaredSize > v.limits.MaxBytes {
		return "", v.reject(ctx, services.KindPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", v.limits.MaxBytes), nil)
	}

	size, err := storage.Measure(up.Path)
	if err != nil {
		return "", v.reject(ctx, services.KindInvalidRequest, "staged upload is unreadable", err)
	}
	if v.limits.MaxBytes > 0 && size > v.limits.MaxBytes {
		return "", v.reject(ctx, services.KindPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", v.limits.MaxBytes), nil)
	}

	duration, err := v.engine.Probe(ctx, up.Path)
	if err != nil {
		return "", v.reject(ctx, services.KindInvalidMedia, "file is not readable media", err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return "", v.reject(ctx, services.KindInvalidMedia, "file has no measurable duration", nil)
	}
	if duration < v.limits.MinDurationSeconds || duration > v.limits.MaxDurationSeconds {
		return "", v.reject(ctx, services.KindDurationOutOfRange,
			fmt.Sprintf("duration %.2fs outside [%g, %g] seconds", duration, v.limits.MinDurationSeconds, v.limits.MaxDurationSeconds), nil)
	}

	asset, err := v.recorder.Create(ctx, assets.NewAsset{
		Filename:        storage.DisplayName(up.Filename, filepath.Base(up.Path)),
		StoragePath:     up.Path,
		SizeBytes:       size,
		DurationSeconds: duration,
		Origin:          assets.OriginUpload,
	})
	if err != nil {
		return "", v.reject(ctx, services.KindStore, "record upload", err)
	}
	committed = true

	logging.WithContext(ctx, v.logger).Info("upload admitted",
		logging.String(logging.FieldAssetID, asset.ID),
		logging.String("filename", asset.Filename),
		logging.Int64("size_bytes", size),
		logging.Float64("duration_seconds", duration),
	)
	return asset.ID, nil
}

func (v *Validator) reject(ctx context.Context, kind services.Kind, message string, cause error) error {
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorKind, kind.String()),
		logging.String("reason", message),
	}
	if cause != nil {
		attrs = append(attrs, logging.Error(cause))
	}
	logging.WithContext(ctx, v.logger).Info("upload rejected", logging.Args(attrs...)...)
	return services.Wrap(kind, op, message, cause)
}
