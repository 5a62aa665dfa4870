package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Asset describes a stored clip in a transport-friendly format.
type Asset struct {
	ID              string  `json:"id"`
	Filename        string  `json:"filename"`
	SizeBytes       int64   `json:"sizeBytes"`
	DurationSeconds float64 `json:"durationSeconds"`
	Origin          string  `json:"origin"`
	CreatedAt       string  `json:"createdAt,omitempty"`
}

// IDResponse is returned by upload, trim and merge.
type IDResponse struct {
	ID string `json:"id"`
}

// LinkResponse carries a signed retrieval URL.
type LinkResponse struct {
	SignedURL string `json:"signedUrl"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// TrimRequest is the body of POST /videos:trim. Pointers distinguish a
// missing bound from zero.
type TrimRequest struct {
	ID    string   `json:"id"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// MergeRequest is the body of POST /videos:merge.
type MergeRequest struct {
	IDs []string `json:"ids"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports daemon readiness.
type HealthResponse struct {
	Status string `json:"status"`
	Assets int    `json:"assets"`
}

// AssetListResponse wraps a collection of assets.
type AssetListResponse struct {
	Items []Asset `json:"items"`
}

// CheckResult mirrors a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Status aggregates local runtime information for the CLI.
type Status struct {
	DaemonRunning bool          `json:"daemonRunning"`
	DatabasePath  string        `json:"databasePath"`
	LockFilePath  string        `json:"lockFilePath"`
	StorageDir    string        `json:"storageDir"`
	Assets        int           `json:"assets"`
	Checks        []CheckResult `json:"checks"`
}
