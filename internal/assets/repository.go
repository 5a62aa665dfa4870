package assets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"clipvault/internal/services"
)

// Backend is the persistence contract behind Repository.
type Backend interface {
	Create(ctx context.Context, in NewAsset) (*Asset, error)
	GetByID(ctx context.Context, id string) (*Asset, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Asset, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit int) ([]*Asset, error)
	Count(ctx context.Context) (int, error)
}

// Repository is the asset facade used by ingestion, derivation and retrieval.
// Every failure it returns carries services.KindStore.
type Repository struct {
	backend Backend
}

// NewRepository wraps backend.
func NewRepository(backend Backend) *Repository {
	return &Repository{backend: backend}
}

// Create records a measured file. Size and duration come from the caller's
// measurements, never from client input.
func (r *Repository) Create(ctx context.Context, in NewAsset) (*Asset, error) {
	if err := validateNew(in); err != nil {
		return nil, services.Wrap(services.KindStore, "create asset", "rejected record", err)
	}
	asset, err := r.backend.Create(ctx, in)
	if err != nil {
		return nil, services.Wrap(services.KindStore, "create asset", "", err)
	}
	return asset, nil
}

// FindByID returns the asset or nil when no such id exists. Malformed ids are
// treated as misses.
func (r *Repository) FindByID(ctx context.Context, id string) (*Asset, error) {
	id, ok := normalizeID(id)
	if !ok {
		return nil, nil
	}
	asset, err := r.backend.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.KindStore, "find asset", "", err)
	}
	return asset, nil
}

// FindByIDs returns every stored asset whose id appears in ids. Set semantics:
// duplicates and unknown ids are dropped, order is unspecified.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]*Asset, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if normalized, ok := normalizeID(id); ok {
			valid = append(valid, normalized)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	found, err := r.backend.FindByIDs(ctx, valid)
	if err != nil {
		return nil, services.Wrap(services.KindStore, "find assets", "", err)
	}
	return found, nil
}

// Delete removes a record, reporting whether it existed. The file is the
// caller's responsibility.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	id, ok := normalizeID(id)
	if !ok {
		return false, nil
	}
	removed, err := r.backend.Delete(ctx, id)
	if err != nil {
		return false, services.Wrap(services.KindStore, "delete asset", "", err)
	}
	return removed, nil
}

// List returns recent assets, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]*Asset, error) {
	list, err := r.backend.List(ctx, limit)
	if err != nil {
		return nil, services.Wrap(services.KindStore, "list assets", "", err)
	}
	return list, nil
}

// Count returns the number of stored assets.
func (r *Repository) Count(ctx context.Context) (int, error) {
	n, err := r.backend.Count(ctx)
	if err != nil {
		return 0, services.Wrap(services.KindStore, "count assets", "", err)
	}
	return n, nil
}

func validateNew(in NewAsset) error {
	if strings.TrimSpace(in.StoragePath) == "" {
		return errors.New("storage path required")
	}
	if in.SizeBytes < 0 {
		return fmt.Errorf("negative size %d", in.SizeBytes)
	}
	if math.IsNaN(in.DurationSeconds) || math.IsInf(in.DurationSeconds, 0) || in.DurationSeconds <= 0 {
		return fmt.Errorf("invalid duration %v", in.DurationSeconds)
	}
	switch in.Origin {
	case "", OriginUpload, OriginTrim, OriginMerge:
	default:
		return fmt.Errorf("unknown origin %q", in.Origin)
	}
	return nil
}

func normalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
