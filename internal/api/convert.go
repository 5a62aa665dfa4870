package api

import (
	"clipvault/internal/assets"
	"clipvault/internal/preflight"
)

// FromAsset converts a stored asset to its API representation.
func FromAsset(a *assets.Asset) Asset {
	if a == nil {
		return Asset{}
	}
	dto := Asset{
		ID:              a.ID,
		Filename:        a.Filename,
		SizeBytes:       a.SizeBytes,
		DurationSeconds: a.DurationSeconds,
		Origin:          string(a.Origin),
	}
	if !a.CreatedAt.IsZero() {
		dto.CreatedAt = a.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromAssets converts a slice, skipping nil entries.
func FromAssets(list []*assets.Asset) []Asset {
	out := make([]Asset, 0, len(list))
	for _, a := range list {
		if a != nil {
			out = append(out, FromAsset(a))
		}
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}
