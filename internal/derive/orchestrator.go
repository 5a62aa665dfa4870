package derive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"clipvault/internal/assets"
	"clipvault/internal/logging"
	"clipvault/internal/services"
	"clipvault/internal/storage"
	"clipvault/internal/transcode"
)

const outputExt = ".mp4"

// Repository is the subset of the asset facade the orchestrator needs.
type Repository interface {
	Create(ctx context.Context, in assets.NewAsset) (*assets.Asset, error)
	FindByID(ctx context.Context, id string) (*assets.Asset, error)
	FindByIDs(ctx context.Context, ids []string) ([]*assets.Asset, error)
}

// Orchestrator runs trim and merge requests.
type Orchestrator struct {
	repo   Repository
	engine transcode.Engine
	area   *storage.Area
	logger *slog.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(repo Repository, engine transcode.Engine, area *storage.Area, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		repo:   repo,
		engine: engine,
		area:   area,
		logger: logging.NewComponentLogger(logger, "derive"),
	}
}

// Trim cuts [start, end) seconds out of asset id into a new asset.
func (o *Orchestrator) Trim(ctx context.Context, id string, start, end float64) (string, error) {
	const op = "trim"

	source, err := o.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if source == nil {
		return "", services.New(services.KindNotFound, op, "video not found")
	}
	if err := validateRange(start, end, source.DurationSeconds); err != nil {
		return "", services.Wrap(services.KindInvalidRange, op, err.Error(), nil)
	}

	output := o.area.Allocate(storage.PrefixTrim, outputExt)
	spec := transcode.Spec{
		Op:       transcode.OpTrim,
		Input:    source.StoragePath,
		Start:    start,
		Duration: end - start,
		Output:   output,
	}
	return o.produce(ctx, op, spec, assets.OriginTrim, source.ID)
}

// Merge concatenates the assets named by ids, in order of first occurrence.
func (o *Orchestrator) Merge(ctx context.Context, ids []string) (string, error) {
	const op = "merge"

	ordered := firstOccurrence(ids)
	if len(ordered) < 2 {
		return "", services.New(services.KindInvalidRequest, op, "at least two distinct video ids are required")
	}

	found, err := o.repo.FindByIDs(ctx, ordered)
	if err != nil {
		return "", err
	}
	byID := make(map[string]*assets.Asset, len(found))
	for _, a := range found {
		if a != nil {
			byID[a.ID] = a
		}
	}
	inputs := make([]string, 0, len(ordered))
	var missing []string
	for _, id := range ordered {
		a, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		inputs = append(inputs, a.StoragePath)
	}
	if len(missing) > 0 {
		return "", services.New(services.KindNotFound, op, "video not found: "+strings.Join(missing, ", "))
	}
	if len(inputs) < 2 {
		return "", services.New(services.KindNotFound, op, "at least two stored videos are required")
	}

	spec := transcode.Spec{
		Op:     transcode.OpConcat,
		Inputs: inputs,
		Output: o.area.Allocate(storage.PrefixMerge, outputExt),
	}
	return o.produce(ctx, op, spec, assets.OriginMerge, ordered...)
}

// produce runs spec, measures the output and records it. Any failure removes
// the output before returning.
func (o *Orchestrator) produce(ctx context.Context, op string, spec transcode.Spec, origin assets.Origin, sources ...string) (string, error) {
	logger := logging.WithContext(ctx, o.logger)

	recorded := false
	defer func() {
		if recorded {
			return
		}
		if err := o.area.Remove(spec.Output); err != nil {
			logger.Warn("failed to remove derivative output",
				logging.String("path", spec.Output),
				logging.Error(err),
			)
		}
	}()

	output, err := o.engine.Transform(ctx, spec)
	if err != nil {
		return "", services.Wrap(services.KindTranscodeFailed, op, "transform failed", err)
	}
	if output != spec.Output {
		// Engines must write where they were told; anything else escapes cleanup.
		_ = o.area.Remove(output)
		return "", services.New(services.KindTranscodeFailed, op, fmt.Sprintf("engine wrote unexpected path %s", filepath.Base(output)))
	}

	duration, err := o.engine.Probe(ctx, output)
	if err != nil {
		return "", services.Wrap(services.KindTranscodeFailed, op, "probe derivative", err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return "", services.New(services.KindTranscodeFailed, op, "derivative has no measurable duration")
	}
	size, err := storage.Measure(output)
	if err != nil {
		return "", services.Wrap(services.KindTranscodeFailed, op, "measure derivative", err)
	}

	asset, err := o.repo.Create(ctx, assets.NewAsset{
		Filename:        filepath.Base(output),
		StoragePath:     output,
		SizeBytes:       size,
		DurationSeconds: duration,
		Origin:          origin,
	})
	if err != nil {
		return "", err
	}
	recorded = true

	logger.Info("derivative recorded",
		logging.String(logging.FieldAssetID, asset.ID),
		logging.String("origin", string(origin)),
		logging.String("sources", strings.Join(sources, ",")),
		logging.Float64("duration_seconds", duration),
		logging.Int64("size_bytes", size),
	)
	return asset.ID, nil
}

// validateRange applies the trim checks in order; the first failure wins.
func validateRange(start, end, sourceDuration float64) error {
	switch {
	case math.IsNaN(start) || math.IsNaN(end):
		return errors.New("start and end must be numbers")
	case start < 0:
		return errors.New("start must not be negative")
	case end < 0:
		return errors.New("end must not be negative")
	case start >= end:
		return errors.New("start must be before end")
	case end > sourceDuration:
		return fmt.Errorf("end %.3f exceeds video duration %.3f", end, sourceDuration)
	}
	return nil
}

func firstOccurrence(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
