package ingest_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipvault/internal/assets"
	"clipvault/internal/ingest"
	"clipvault/internal/services"
	"clipvault/internal/storage"
	"clipvault/internal/testsupport"
)

type fixture struct {
	validator *ingest.Validator
	repo      *assets.Repository
	engine    *testsupport.FakeEngine
	area      *storage.Area
}

func newFixture(t *testing.T, recorder ingest.Recorder) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	repo := assets.NewRepository(testsupport.MustOpenStore(t, cfg))
	area, err := storage.New(cfg.Paths.StorageDir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	engine := testsupport.NewFakeEngine()
	if recorder == nil {
		recorder = repo
	}
	return fixture{
		validator: ingest.NewValidator(recorder, engine, area, ingest.Limits{MaxBytes: 1024, MinDurationSeconds: 5, MaxDurationSeconds: 25}, nil),
		repo:      repo,
		engine:    engine,
		area:      area,
	}
}

func (f fixture) stage(t *testing.T, size int64, duration float64) string {
	t.Helper()
	path := f.area.Allocate(storage.PrefixUpload, ".mp4")
	testsupport.WriteFile(t, path, size)
	f.engine.SetDuration(path, duration)
	return path
}

func TestAdmitAcceptsDurationWindowInclusive(t *testing.T) {
	f := newFixture(t, nil)
	for _, d := range []float64{5, 12.3, 25} {
		path := f.stage(t, 512, d)
		id, err := f.validator.Admit(context.Background(), ingest.Upload{Path: path, DeclaredSize: 512, Filename: "clip.mp4"})
		if err != nil {
			t.Fatalf("Admit(%v) returned error: %v", d, err)
		}
		asset, err := f.repo.FindByID(context.Background(), id)
		if err != nil || asset == nil {
			t.Fatalf("expected stored asset for %v, got %v %v", d, asset, err)
		}
		if asset.DurationSeconds != d || asset.SizeBytes != 512 || asset.StoragePath != path {
			t.Fatalf("expected measured metadata, got %#v", asset)
		}
		if !testsupport.FileExists(t, path) {
			t.Fatalf("admitted file %s must be kept", path)
		}
	}
}

func TestAdmitRejectsAndDiscards(t *testing.T) {
	cases := []struct {
		name     string
		size     int64
		declared int64
		duration float64
		probeErr error
		want     services.Kind
	}{
		{name: "declared too large", size: 10, declared: 2048, duration: 10, want: services.KindPayloadTooLarge},
		{name: "measured too large", size: 1025, declared: 0, duration: 10, want: services.KindPayloadTooLarge},
		{name: "too short", size: 10, declared: 10, duration: 3, want: services.KindDurationOutOfRange},
		{name: "just under minimum", size: 10, declared: 10, duration: 4.999, want: services.KindDurationOutOfRange},
		{name: "too long", size: 10, declared: 10, duration: 25.01, want: services.KindDurationOutOfRange},
		{name: "zero duration", size: 10, declared: 10, duration: 0, want: services.KindInvalidMedia},
		{name: "probe failure", size: 10, declared: 10, duration: 10, probeErr: errors.New("moov atom not found"), want: services.KindInvalidMedia},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.engine.ProbeErr = tc.probeErr
			path := f.stage(t, tc.size, tc.duration)

			id, err := f.validator.Admit(context.Background(), ingest.Upload{Path: path, DeclaredSize: tc.declared, Filename: "x.mp4"})
			if err == nil {
				t.Fatalf("expected rejection, got id %s", id)
			}
			if kind := services.KindOf(err); kind != tc.want {
				t.Fatalf("expected %s, got %s (%v)", tc.want, kind, err)
			}
			if testsupport.FileExists(t, path) {
				t.Fatalf("rejected file %s must be deleted", path)
			}
			if n, _ := f.repo.Count(context.Background()); n != 0 {
				t.Fatalf("expected no records, got %d", n)
			}
		})
	}
}

func TestAdmitDeclaredSizeCheckedBeforeProbe(t *testing.T) {
	f := newFixture(t, nil)
	path := f.stage(t, 10, 10)
	if _, err := f.validator.Admit(context.Background(), ingest.Upload{Path: path, DeclaredSize: 4096}); err == nil {
		t.Fatal("expected rejection")
	}
	if len(f.engine.Probes) != 0 {
		t.Fatalf("oversize upload should not be probed, got %v", f.engine.Probes)
	}
}

type brokenRecorder struct{}

func (brokenRecorder) Create(context.Context, assets.NewAsset) (*assets.Asset, error) {
	return nil, services.Wrap(services.KindStore, "create asset", "", errors.New("database is locked"))
}

func TestAdmitStoreFailureLeavesNoOrphan(t *testing.T) {
	f := newFixture(t, brokenRecorder{})
	path := f.stage(t, 10, 10)

	_, err := f.validator.Admit(context.Background(), ingest.Upload{Path: path, DeclaredSize: 10})
	if services.KindOf(err) != services.KindStore {
		t.Fatalf("expected store kind, got %v", err)
	}
	if testsupport.FileExists(t, path) {
		t.Fatal("file must be removed when the record cannot be written")
	}
}

func TestAdmitRefusesPathsOutsideArea(t *testing.T) {
	f := newFixture(t, nil)
	outside := filepath.Join(t.TempDir(), "elsewhere.mp4")
	testsupport.WriteFile(t, outside, 10)

	_, err := f.validator.Admit(context.Background(), ingest.Upload{Path: outside})
	if services.KindOf(err) != services.KindInvalidRequest {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if !testsupport.FileExists(t, outside) {
		t.Fatal("files outside the storage area must not be touched")
	}
}

func TestAdmitNormalizesDisplayName(t *testing.T) {
	f := newFixture(t, nil)
	path := f.stage(t, 10, 10)
	id, err := f.validator.Admit(context.Background(), ingest.Upload{Path: path, Filename: "../secret/holiday?.mp4"})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	asset, _ := f.repo.FindByID(context.Background(), id)
	if asset.Filename != "holiday.mp4" {
		t.Fatalf("unexpected display name %q", asset.Filename)
	}
}
