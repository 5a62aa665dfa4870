package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"clipvault/internal/api"
	"clipvault/internal/config"
	"clipvault/internal/logging"
	"clipvault/internal/metrics"
	"clipvault/internal/services"
)

const (
	// multipartOverhead is the slack allowed on top of the upload cap for
	// boundaries and part headers.
	multipartOverhead = 1 << 20
	maxJSONBody       = 64 << 10
	shutdownTimeout   = 5 * time.Second
)

type apiServer struct {
	bind      string
	logger    *slog.Logger
	service   *api.VideoService
	metrics   *metrics.Metrics
	uploads   *rate.Limiter
	maxUpload int64
	listener  net.Listener
	server    *http.Server
}

func newAPIServer(cfg *config.Config, service *api.VideoService, m *metrics.Metrics, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || service == nil {
		return nil, errors.New("api server requires config and video service")
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, errors.New("api.bind is empty")
	}

	srv := &apiServer{
		bind:      bind,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		service:   service,
		metrics:   m,
		maxUpload: cfg.MaxUploadBytes(),
	}
	if perMinute := cfg.API.UploadRatePerMinute; perMinute > 0 {
		srv.uploads = rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /videos", srv.handleUpload)
	mux.HandleFunc("POST /videos:trim", srv.handleTrim)
	mux.HandleFunc("POST /videos:merge", srv.handleMerge)
	mux.HandleFunc("GET /videos/{id}/link", srv.handleLink)
	mux.HandleFunc("GET /videos/{id}", srv.handleRetrieve)
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	srv.server = &http.Server{
		Handler:           srv.logRequests(authMiddleware(cfg.API.Token, mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Derivative requests block on the engine.
		WriteTimeout: cfg.TranscodeTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploads != nil && !s.uploads.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "too many uploads, try again later")
		return
	}
	limit := s.maxUpload + multipartOverhead
	if s.maxUpload > 0 && r.ContentLength > limit {
		s.writeFailure(w, services.New(services.KindPayloadTooLarge, api.OpUpload, fmt.Sprintf("file exceeds %d bytes", s.maxUpload)))
		return
	}
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		s.writeFailure(w, services.Wrap(services.KindInvalidRequest, api.OpUpload, "multipart form body required", err))
		return
	}
	part, err := nextFilePart(reader)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer part.Close()

	id, err := s.service.Upload(r.Context(), api.UploadRequest{
		Body:     part,
		Filename: part.FileName(),
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.IDResponse{ID: id})
}

// nextFilePart returns the first part carrying the upload, accepting the
// "video" field name as an alias for "file".
func nextFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, services.New(services.KindInvalidRequest, api.OpUpload, "no file uploaded")
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, services.Wrap(services.KindPayloadTooLarge, api.OpUpload, "upload too large", err)
			}
			return nil, services.Wrap(services.KindInvalidRequest, api.OpUpload, "malformed multipart body", err)
		}
		switch part.FormName() {
		case "file", "video":
			return part, nil
		}
		_ = part.Close()
	}
}

func (s *apiServer) handleTrim(w http.ResponseWriter, r *http.Request) {
	var req api.TrimRequest
	if err := s.decodeJSON(w, r, &req, api.OpTrim); err != nil {
		s.writeFailure(w, err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		s.writeFailure(w, services.New(services.KindInvalidRequest, api.OpTrim, "video id required"))
		return
	}
	if req.Start == nil || req.End == nil {
		s.writeFailure(w, services.New(services.KindInvalidRequest, api.OpTrim, "start and end are required"))
		return
	}
	id, err := s.service.Trim(r.Context(), req.ID, *req.Start, *req.End)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.IDResponse{ID: id})
}

func (s *apiServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req api.MergeRequest
	if err := s.decodeJSON(w, r, &req, api.OpMerge); err != nil {
		s.writeFailure(w, err)
		return
	}
	id, err := s.service.Merge(r.Context(), req.IDs)
	if err != nil {
		// Unknown merge inputs are a bad request, not a missing resource.
		if services.KindOf(err) == services.KindNotFound {
			s.writeError(w, http.StatusBadRequest, services.PublicMessage(err))
			return
		}
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.IDResponse{ID: id})
}

func (s *apiServer) handleLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.service.IssueLink(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, link)
}

// handleRetrieve serves the asset named by the token. The path id is
// ignored.
func (s *apiServer) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		s.writeFailure(w, services.New(services.KindInvalidRequest, api.OpRetrieve, "token required"))
		return
	}
	asset, err := s.service.Retrieve(r.Context(), token)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	file, err := s.service.Open(asset)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer file.Close()

	modTime := asset.CreatedAt
	if info, err := file.Stat(); err == nil {
		modTime = info.ModTime()
	}
	w.Header().Set("Content-Type", contentType(asset.StoragePath))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": asset.Filename}))
	http.ServeContent(w, r, asset.Filename, modTime, file)
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".avi":
		return "video/x-msvideo"
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.service.Health(r.Context())
	if err != nil {
		s.logger.Warn("health check failed", logging.Error(err))
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *apiServer) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, op string) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.New(services.KindInvalidRequest, op, "request body required")
		}
		return services.Wrap(services.KindInvalidRequest, op, "invalid JSON body", err)
	}
	return nil
}

func (s *apiServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := uuid.NewString()
		ctx := services.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, rec.status)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logging.WithContext(ctx, s.logger).Log(ctx, level, "http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Int64("bytes", rec.bytes),
			logging.Duration("duration", time.Since(started)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	s.writeError(w, services.HTTPStatus(services.KindOf(err)), services.PublicMessage(err))
}
