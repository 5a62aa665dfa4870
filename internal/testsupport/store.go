package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"clipvault/internal/assets"
	"clipvault/internal/config"
)

// MustOpenStore opens an assets.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *assets.Store {
	t.Helper()

	store, err := assets.Open(cfg)
	if err != nil {
		t.Fatalf("assets.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustCreateAsset records an upload-origin asset without a backing file.
func MustCreateAsset(t testing.TB, store *assets.Store, filename string, durationSeconds float64) *assets.Asset {
	t.Helper()

	asset, err := store.Create(context.Background(), assets.NewAsset{
		Filename:        filename,
		StoragePath:     filepath.Join(filepath.Dir(store.Path()), "clips", uuid.NewString()+filepath.Ext(filename)),
		SizeBytes:       1024,
		DurationSeconds: durationSeconds,
		Origin:          assets.OriginUpload,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return asset
}

// SeedClip writes a clip into the storage directory, teaches engine its
// duration and records it through repo.
func SeedClip(t testing.TB, cfg *config.Config, repo *assets.Repository, engine *FakeEngine, durationSeconds float64) *assets.Asset {
	t.Helper()

	path := filepath.Join(cfg.Paths.StorageDir, "upload_"+uuid.NewString()+".mp4")
	WriteFile(t, path, 4096)
	engine.SetDuration(path, durationSeconds)

	asset, err := repo.Create(context.Background(), assets.NewAsset{
		Filename:        filepath.Base(path),
		StoragePath:     path,
		SizeBytes:       4096,
		DurationSeconds: durationSeconds,
		Origin:          assets.OriginUpload,
	})
	if err != nil {
		t.Fatalf("repo.Create: %v", err)
	}
	return asset
}
