package derive_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"clipvault/internal/assets"
	"clipvault/internal/config"
	"clipvault/internal/derive"
	"clipvault/internal/services"
	"clipvault/internal/storage"
	"clipvault/internal/testsupport"
	"clipvault/internal/transcode"
)

type fixture struct {
	cfg    *config.Config
	repo   *assets.Repository
	engine *testsupport.FakeEngine
	orch   *derive.Orchestrator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	repo := assets.NewRepository(testsupport.MustOpenStore(t, cfg))
	area, err := storage.New(cfg.Paths.StorageDir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	engine := testsupport.NewFakeEngine()
	return fixture{
		cfg:    cfg,
		repo:   repo,
		engine: engine,
		orch:   derive.NewOrchestrator(repo, engine, area, nil),
	}
}

func TestTrimRecordsMeasuredDerivative(t *testing.T) {
	f := newFixture(t)
	source := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 10)

	id, err := f.orch.Trim(context.Background(), source.ID, 2, 5)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	derived, err := f.repo.FindByID(context.Background(), id)
	if err != nil || derived == nil {
		t.Fatalf("expected derived asset, got %v %v", derived, err)
	}
	if derived.DurationSeconds != 3 {
		t.Fatalf("expected 3s derivative, got %v", derived.DurationSeconds)
	}
	if derived.Origin != assets.OriginTrim {
		t.Fatalf("expected trim origin, got %q", derived.Origin)
	}
	base := filepath.Base(derived.StoragePath)
	if !strings.HasPrefix(base, "trimmed_") || !strings.HasSuffix(base, ".mp4") {
		t.Fatalf("unexpected output name %q", base)
	}
	if filepath.Dir(derived.StoragePath) != f.cfg.Paths.StorageDir {
		t.Fatalf("derivative written outside storage dir: %s", derived.StoragePath)
	}
	spec := f.engine.Transforms[0]
	if spec.Op != transcode.OpTrim || spec.Input != source.StoragePath || spec.Start != 2 || spec.Duration != 3 {
		t.Fatalf("unexpected transform spec %#v", spec)
	}
}

func TestTrimShortDerivativeIsNotWindowChecked(t *testing.T) {
	f := newFixture(t)
	source := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 10)
	id, err := f.orch.Trim(context.Background(), source.ID, 0, 1)
	if err != nil {
		t.Fatalf("1s trim should succeed, got %v", err)
	}
	derived, _ := f.repo.FindByID(context.Background(), id)
	if derived.DurationSeconds != 1 {
		t.Fatalf("expected 1s derivative, got %v", derived.DurationSeconds)
	}
}

func TestTrimRangeValidation(t *testing.T) {
	f := newFixture(t)
	source := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 10)

	cases := []struct {
		name       string
		start, end float64
		wantMsg    string
	}{
		{"negative start", -1, 5, "start must not be negative"},
		{"negative end", 1, -5, "end must not be negative"},
		{"start equals end", 4, 4, "start must be before end"},
		{"start after end", 6, 4, "start must be before end"},
		{"end past duration", 0, 10.5, "exceeds video duration"},
		{"negative start wins over order", -2, -5, "start must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orch.Trim(context.Background(), source.ID, tc.start, tc.end)
			if services.KindOf(err) != services.KindInvalidRange {
				t.Fatalf("expected invalid range, got %v", err)
			}
			if !strings.Contains(services.PublicMessage(err), tc.wantMsg) {
				t.Fatalf("expected %q in %q", tc.wantMsg, services.PublicMessage(err))
			}
		})
	}
	if f.engine.TransformCount() != 0 {
		t.Fatalf("validation failures must not reach the engine, got %d transforms", f.engine.TransformCount())
	}

	if _, err := f.orch.Trim(context.Background(), source.ID, 0, 10); err != nil {
		t.Fatalf("end equal to duration should be accepted: %v", err)
	}
}

func TestTrimUnknownAsset(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Trim(context.Background(), "7c9e6679-7425-40de-944b-e07fc1f90ae7", 0, 1)
	if services.KindOf(err) != services.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTrimTransformFailureLeavesNoFile(t *testing.T) {
	f := newFixture(t)
	source := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 10)
	f.engine.TransformErr = errors.New("encoder crashed")

	_, err := f.orch.Trim(context.Background(), source.ID, 1, 2)
	if services.KindOf(err) != services.KindTranscodeFailed {
		t.Fatalf("expected transcode failure, got %v", err)
	}
	if entries := testsupport.StorageEntries(t, f.cfg.Paths.StorageDir); len(entries) != 1 {
		t.Fatalf("expected only the source clip to remain, got %v", entries)
	}
	if n, _ := f.repo.Count(context.Background()); n != 1 {
		t.Fatalf("expected no new records, got %d", n)
	}
}

func TestMergeConcatenatesInRequestOrder(t *testing.T) {
	f := newFixture(t)
	a := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 10)
	b := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 12)

	id, err := f.orch.Merge(context.Background(), []string{b.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	merged, _ := f.repo.FindByID(context.Background(), id)
	if merged == nil || merged.DurationSeconds != 22 || merged.Origin != assets.OriginMerge {
		t.Fatalf("unexpected merged asset %#v", merged)
	}
	if !strings.HasPrefix(filepath.Base(merged.StoragePath), "merged_video_") {
		t.Fatalf("unexpected output name %q", merged.StoragePath)
	}
	spec := f.engine.Transforms[0]
	if len(spec.Inputs) != 2 || spec.Inputs[0] != b.StoragePath || spec.Inputs[1] != a.StoragePath {
		t.Fatalf("expected inputs in first-occurrence order, got %v", spec.Inputs)
	}
}

func TestMergeRequestValidation(t *testing.T) {
	f := newFixture(t)
	a := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 10)

	for _, ids := range [][]string{nil, {a.ID}, {a.ID, a.ID}, {"", a.ID}} {
		_, err := f.orch.Merge(context.Background(), ids)
		if services.KindOf(err) != services.KindInvalidRequest {
			t.Fatalf("Merge(%v): expected invalid request, got %v", ids, err)
		}
	}

	_, err := f.orch.Merge(context.Background(), []string{a.ID, "7c9e6679-7425-40de-944b-e07fc1f90ae7"})
	if services.KindOf(err) != services.KindNotFound {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
	if f.engine.TransformCount() != 0 {
		t.Fatal("engine must not run for rejected merges")
	}
}

type failingCreateRepo struct {
	*assets.Repository
}

func (failingCreateRepo) Create(context.Context, assets.NewAsset) (*assets.Asset, error) {
	return nil, services.Wrap(services.KindStore, "create asset", "", errors.New("disk full"))
}

func TestMergeStoreFailureRemovesOutput(t *testing.T) {
	f := newFixture(t)
	a := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 10)
	b := testsupport.SeedClip(t, f.cfg, f.repo, f.engine, 12)

	area, _ := storage.New(f.cfg.Paths.StorageDir)
	orch := derive.NewOrchestrator(failingCreateRepo{f.repo}, f.engine, area, nil)
	_, err := orch.Merge(context.Background(), []string{a.ID, b.ID})
	if services.KindOf(err) != services.KindStore {
		t.Fatalf("expected store failure, got %v", err)
	}
	if entries := testsupport.StorageEntries(t, f.cfg.Paths.StorageDir); len(entries) != 2 {
		t.Fatalf("expected merge output removed, got %v", entries)
	}
}
