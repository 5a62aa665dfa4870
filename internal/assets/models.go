package assets

import "time"

// Origin records how an asset was produced.
type Origin string

const (
	OriginUpload Origin = "upload"
	OriginTrim   Origin = "trim"
	OriginMerge  Origin = "merge"
)

// Asset is a stored clip.
type Asset struct {
	ID              string
	Filename        string
	StoragePath     string
	SizeBytes       int64
	DurationSeconds float64
	Origin          Origin
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewAsset carries the measured attributes of a file about to be recorded.
type NewAsset struct {
	Filename        string
	StoragePath     string
	SizeBytes       int64
	DurationSeconds float64
	Origin          Origin
}
