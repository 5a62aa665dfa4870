package assets_test

import (
	"context"
	"path/filepath"
	"testing"

	"clipvault/internal/assets"
	"clipvault/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	asset, err := store.Create(ctx, assets.NewAsset{
		Filename:        "clip.mp4",
		StoragePath:     filepath.Join(cfg.Paths.StorageDir, "upload_a.mp4"),
		SizeBytes:       2048,
		DurationSeconds: 10.5,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if asset.ID == "" {
		t.Fatal("expected asset id to be assigned")
	}
	if asset.Origin != assets.OriginUpload {
		t.Fatalf("expected default upload origin, got %q", asset.Origin)
	}
	if asset.CreatedAt.IsZero() || asset.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %#v", asset)
	}

	fetched, err := store.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SizeBytes != 2048 || fetched.DurationSeconds != 10.5 {
		t.Fatalf("unexpected fetched asset: %#v", fetched)
	}

	// Reopening must not re-run applied migrations.
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)
	count, err := reopened.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Count after reopen = %d, %v", count, err)
	}
}

func TestCreateRejectsDuplicateStoragePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	in := assets.NewAsset{Filename: "a.mp4", StoragePath: "/clips/same.mp4", SizeBytes: 1, DurationSeconds: 6}
	if _, err := store.Create(ctx, in); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := store.Create(ctx, in); err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestGetByIDMissReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	asset, err := store.GetByID(context.Background(), "00000000-0000-4000-8000-000000000000")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if asset != nil {
		t.Fatalf("expected nil asset, got %#v", asset)
	}
}

func TestFindByIDsSkipsUnknownAndDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.MustCreateAsset(t, store, "a.mp4", 10)
	b := testsupport.MustCreateAsset(t, store, "b.mp4", 12)

	found, err := store.FindByIDs(ctx, []string{a.ID, "missing", b.ID, a.ID})
	if err != nil {
		t.Fatalf("FindByIDs: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(found))
	}
	ids := map[string]bool{found[0].ID: true, found[1].ID: true}
	if !ids[a.ID] || !ids[b.ID] {
		t.Fatalf("unexpected result set %v", ids)
	}

	none, err := store.FindByIDs(ctx, nil)
	if err != nil || none != nil {
		t.Fatalf("expected nil for empty ids, got %v %v", none, err)
	}
}

func TestListAndDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustCreateAsset(t, store, "first.mp4", 8)
	second := testsupport.MustCreateAsset(t, store, "second.mp4", 9)

	list, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %#v", list)
	}
	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(1) = %d, %v", len(limited), err)
	}

	removed, err := store.Delete(ctx, first.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	removed, err = store.Delete(ctx, first.ID)
	if err != nil || removed {
		t.Fatalf("second Delete = %v, %v", removed, err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("expected 1 remaining asset, got %d", n)
	}
}
