package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipvault/internal/assets"
	"clipvault/internal/capability"
	"clipvault/internal/derive"
	"clipvault/internal/ingest"
	"clipvault/internal/logging"
	"clipvault/internal/metrics"
	"clipvault/internal/services"
	"clipvault/internal/storage"
)

// Operation names used for logging and metrics.
const (
	OpUpload   = "upload"
	OpIngest   = "ingest"
	OpTrim     = "trim"
	OpMerge    = "merge"
	OpLink     = "link"
	OpRetrieve = "retrieve"
	OpRemove   = "remove"
)

// UploadRequest carries an incoming upload body.
type UploadRequest struct {
	Body     io.Reader
	Filename string
	// DeclaredSize is the client-stated size, or 0 when unknown.
	DeclaredSize int64
}

// VideoServiceConfig wires a VideoService.
type VideoServiceConfig struct {
	Repository        *assets.Repository
	Validator         *ingest.Validator
	Orchestrator      *derive.Orchestrator
	Tokens            *capability.Service
	Area              *storage.Area
	PublicURL         string
	MaxUploadBytes    int64
	AllowedExtensions []string
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// VideoService is the single entry point transports call.
type VideoService struct {
	repo       *assets.Repository
	validator  *ingest.Validator
	orch       *derive.Orchestrator
	tokens     *capability.Service
	area       *storage.Area
	publicURL  string
	maxBytes   int64
	extensions map[string]struct{}
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewVideoService constructs a VideoService.
func NewVideoService(cfg VideoServiceConfig) *VideoService {
	exts := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &VideoService{
		repo:       cfg.Repository,
		validator:  cfg.Validator,
		orch:       cfg.Orchestrator,
		tokens:     cfg.Tokens,
		area:       cfg.Area,
		publicURL:  cfg.PublicURL,
		maxBytes:   cfg.MaxUploadBytes,
		extensions: exts,
		metrics:    cfg.Metrics,
		logger:     logging.NewComponentLogger(cfg.Logger, "video-service"),
		now:        time.Now,
	}
}

// Upload stages req.Body into the storage area and admits it.
func (s *VideoService) Upload(ctx context.Context, req UploadRequest) (id string, err error) {
	ctx = services.WithOperation(ctx, OpUpload)
	defer func() { s.finish(ctx, OpUpload, err) }()

	if req.Body == nil {
		return "", services.New(services.KindInvalidRequest, OpUpload, "no file uploaded")
	}
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(req.Filename)))
	if !s.extensionAllowed(ext) {
		return "", services.New(services.KindInvalidRequest, OpUpload, "only mp4 and avi files are allowed")
	}
	if s.maxBytes > 0 && req.DeclaredSize > s.maxBytes {
		return "", services.New(services.KindPayloadTooLarge, OpUpload, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	staged, err := s.area.Stage(req.Body, ext, s.maxBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", services.Wrap(services.KindPayloadTooLarge, OpUpload, fmt.Sprintf("file exceeds %d bytes", s.maxBytes), err)
		}
		return "", services.Wrap(services.KindStore, OpUpload, "stage upload", err)
	}
	declared := req.DeclaredSize
	if declared <= 0 {
		declared = staged.Size
	}
	return s.validator.Admit(ctx, ingest.Upload{
		Path:         staged.Path,
		DeclaredSize: declared,
		Filename:     req.Filename,
	})
}

// IngestFile admits a local file through the same checks as Upload. The
// source is copied into the storage area and left in place.
func (s *VideoService) IngestFile(ctx context.Context, path string) (id string, err error) {
	ctx = services.WithOperation(ctx, OpIngest)
	defer func() { s.finish(ctx, OpIngest, err) }()

	if !s.extensionAllowed(strings.ToLower(filepath.Ext(path))) {
		return "", services.New(services.KindInvalidRequest, OpIngest, "only mp4 and avi files are allowed")
	}
	size, err := storage.Measure(path)
	if err != nil {
		return "", services.Wrap(services.KindInvalidRequest, OpIngest, "source file unreadable", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", services.New(services.KindPayloadTooLarge, OpIngest, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	staged, err := s.area.StageFile(path, s.maxBytes)
	if err != nil {
		return "", services.Wrap(services.KindStore, OpIngest, "stage file", err)
	}
	return s.validator.Admit(ctx, ingest.Upload{
		Path:         staged.Path,
		DeclaredSize: size,
		Filename:     filepath.Base(path),
	})
}

// Trim produces a new asset from [start, end) of id.
func (s *VideoService) Trim(ctx context.Context, id string, start, end float64) (newID string, err error) {
	ctx = services.WithOperation(ctx, OpTrim)
	defer func() { s.finish(ctx, OpTrim, err) }()
	return s.orch.Trim(ctx, id, start, end)
}

// Merge concatenates ids into a new asset.
func (s *VideoService) Merge(ctx context.Context, ids []string) (newID string, err error) {
	ctx = services.WithOperation(ctx, OpMerge)
	defer func() { s.finish(ctx, OpMerge, err) }()
	return s.orch.Merge(ctx, ids)
}

// IssueLink returns a signed retrieval URL for id and its expiry.
func (s *VideoService) IssueLink(ctx context.Context, id string) (link LinkResponse, err error) {
	ctx = services.WithOperation(ctx, OpLink)
	defer func() { s.finish(ctx, OpLink, err) }()

	if strings.TrimSpace(id) == "" {
		return LinkResponse{}, services.New(services.KindInvalidRequest, OpLink, "video id required")
	}
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return LinkResponse{}, err
	}
	if asset == nil {
		return LinkResponse{}, services.New(services.KindNotFound, OpLink, "video not found")
	}
	if s.tokens == nil {
		return LinkResponse{}, errSigningDisabled(OpLink)
	}
	issuedAt := s.now()
	token, err := s.tokens.Issue(asset.ID)
	if err != nil {
		return LinkResponse{}, err
	}
	return LinkResponse{
		SignedURL: capability.LinkFor(s.publicURL, asset.ID, token),
		ExpiresAt: issuedAt.Add(s.tokens.TTL()).UTC().Format(dateTimeFormat),
	}, nil
}

// Retrieve resolves a capability token to the asset it grants. Authorization
// rests on the token alone.
func (s *VideoService) Retrieve(ctx context.Context, token string) (asset *assets.Asset, err error) {
	ctx = services.WithOperation(ctx, OpRetrieve)
	defer func() { s.finish(ctx, OpRetrieve, err) }()

	if s.tokens == nil {
		return nil, errSigningDisabled(OpRetrieve)
	}
	id, err := s.tokens.Redeem(token)
	if err != nil {
		return nil, err
	}
	asset, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, services.New(services.KindNotFound, OpRetrieve, "video not found")
	}
	return asset, nil
}

// Open returns the content of a retrieved asset.
func (s *VideoService) Open(asset *assets.Asset) (*os.File, error) {
	file, err := os.Open(asset.StoragePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Error("asset file missing",
				logging.String(logging.FieldAssetID, asset.ID),
				logging.String("path", asset.StoragePath),
			)
			return nil, services.Wrap(services.KindNotFound, OpRetrieve, "video not found", err)
		}
		return nil, services.Wrap(services.KindStore, OpRetrieve, "open video", err)
	}
	return file, nil
}

// Describe returns a single asset.
func (s *VideoService) Describe(ctx context.Context, id string) (*Asset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil || asset == nil {
		return nil, err
	}
	dto := FromAsset(asset)
	return &dto, nil
}

// List returns recent assets, newest first.
func (s *VideoService) List(ctx context.Context, limit int) ([]Asset, error) {
	list, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromAssets(list), nil
}

// Remove deletes an asset record and its file.
func (s *VideoService) Remove(ctx context.Context, id string) (removed bool, err error) {
	ctx = services.WithOperation(ctx, OpRemove)
	defer func() { s.finish(ctx, OpRemove, err) }()

	asset, err := s.repo.FindByID(ctx, id)
	if err != nil || asset == nil {
		return false, err
	}
	removed, err = s.repo.Delete(ctx, asset.ID)
	if err != nil || !removed {
		return removed, err
	}
	if err := s.area.Remove(asset.StoragePath); err != nil {
		s.logger.Warn("asset record removed but file remains",
			logging.String(logging.FieldAssetID, asset.ID),
			logging.Error(err),
		)
	}
	return true, nil
}

// Health reports the stored asset count, failing when the store is unreachable.
func (s *VideoService) Health(ctx context.Context) (HealthResponse, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return HealthResponse{Status: "unavailable"}, err
	}
	return HealthResponse{Status: "ok", Assets: n}, nil
}

func (s *VideoService) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[ext]
	return ok
}

func (s *VideoService) finish(ctx context.Context, op string, err error) {
	s.metrics.ObserveOperation(op, err)
	if err == nil {
		return
	}
	kind := services.KindOf(err)
	logger := logging.WithContext(ctx, s.logger)
	attrs := logging.Args(
		logging.String(logging.FieldErrorKind, kind.String()),
		logging.Error(err),
	)
	switch kind {
	case services.KindTranscodeFailed, services.KindStore:
		logger.Error("operation failed", attrs...)
	default:
		logger.Debug("operation rejected", attrs...)
	}
}

func errSigningDisabled(op string) error {
	return services.New(services.KindStore, op, "signing secret not configured")
}
