package assets

import (
	"errors"
	"time"
)

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*Asset, error) {
	var (
		asset      Asset
		origin     string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&asset.ID,
		&asset.Filename,
		&asset.StoragePath,
		&asset.SizeBytes,
		&asset.DurationSeconds,
		&origin,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	asset.Origin = Origin(origin)
	if created, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		asset.UpdatedAt = updated
	}
	return &asset, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
