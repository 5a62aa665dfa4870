package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const assetColumns = "id, filename, storage_path, size_bytes, duration_seconds, origin, created_at, updated_at"

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Create inserts a new asset with a fresh identifier.
func (s *Store) Create(ctx context.Context, in NewAsset) (*Asset, error) {
	origin := in.Origin
	if origin == "" {
		origin = OriginUpload
	}
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(timestampLayout)

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO assets (
            id, filename, storage_path, size_bytes, duration_seconds, origin, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		in.Filename,
		in.StoragePath,
		in.SizeBytes,
		in.DurationSeconds,
		string(origin),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	asset, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("insert asset: row %s missing after insert", id)
	}
	return asset, nil
}

// GetByID fetches an asset. A missing row returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Asset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// FindByIDs returns the assets matching ids. Unknown ids are skipped and
// duplicates collapse; result order is unspecified.
func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]*Asset, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]any, len(unique))
	for i, id := range unique {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+assetColumns+` FROM assets WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("find assets: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

// List returns the most recent assets first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

// Delete removes the asset row, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete asset rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of stored assets.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM assets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

func collectAssets(rows *sql.Rows) ([]*Asset, error) {
	var out []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return out, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
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
