package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"clipvault/internal/api"
	"clipvault/internal/config"
	"clipvault/internal/metrics"
	"clipvault/internal/testsupport"
)

// fixedProbe reports the same duration for every file so uploads arriving
// over HTTP can be admitted without knowing their staged path.
type fixedProbe struct {
	*testsupport.FakeEngine
	seconds float64
}

func (f fixedProbe) Probe(context.Context, string) (float64, error) {
	return f.seconds, nil
}

type testServer struct {
	cfg     *config.Config
	srv     *apiServer
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, seconds float64, opts ...testsupport.ConfigOption) testServer {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	m := metrics.New()
	rt, err := api.OpenRuntime(cfg, fixedProbe{FakeEngine: testsupport.NewFakeEngine(), seconds: seconds}, m, nil)
	if err != nil {
		t.Fatalf("OpenRuntime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	srv, err := newAPIServer(cfg, rt.Service, m, nil)
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	return testServer{cfg: cfg, srv: srv, metrics: m}
}

func (ts testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	ts.srv.server.Handler.ServeHTTP(w, req)
	return w
}

func (ts testServer) upload(t *testing.T, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/videos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return ts.do(t, req)
}

func (ts testServer) postJSON(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, req)
}

func (ts testServer) mustUpload(t *testing.T, filename string, content []byte) string {
	t.Helper()
	w := ts.upload(t, "file", filename, content)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload %s: expected 201, got %d: %s", filename, w.Code, w.Body.String())
	}
	var resp api.IDResponse
	decode(t, w, &resp)
	if resp.ID == "" {
		t.Fatal("expected id in upload response")
	}
	return resp.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	decode(t, w, &resp)
	return resp.Error
}

func TestAPIServerUploadTrimMergeLinkRetrieve(t *testing.T) {
	ts := newTestServer(t, 10)
	content := bytes.Repeat([]byte("clip"), 512)

	first := ts.mustUpload(t, "first.mp4", content)
	second := ts.mustUpload(t, "second.avi", []byte("second-clip"))

	w := ts.postJSON(t, "/videos:trim", map[string]any{"id": first, "start": 2, "end": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("trim: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var trimmed api.IDResponse
	decode(t, w, &trimmed)

	w = ts.postJSON(t, "/videos:merge", api.MergeRequest{IDs: []string{first, second, trimmed.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("merge: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var merged api.IDResponse
	decode(t, w, &merged)
	if merged.ID == "" || merged.ID == first {
		t.Fatalf("unexpected merge id %q", merged.ID)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/videos/"+first+"/link", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("link: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var link api.LinkResponse
	decode(t, w, &link)
	signed, err := url.Parse(link.SignedURL)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	if signed.Host != "clips.test" || signed.Path != "/videos/"+first {
		t.Fatalf("unexpected signed url %q", link.SignedURL)
	}
	if link.ExpiresAt == "" {
		t.Fatal("expected expiry in link response")
	}

	// Redeeming twice works and the path id plays no part in the lookup.
	for _, path := range []string{signed.RequestURI(), "/videos/" + second + "?" + signed.RawQuery} {
		w = ts.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("retrieve %s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
		if !bytes.Equal(w.Body.Bytes(), content) {
			t.Fatalf("retrieve %s: unexpected body length %d", path, w.Body.Len())
		}
		if ct := w.Header().Get("Content-Type"); ct != "video/mp4" {
			t.Fatalf("retrieve %s: unexpected content type %q", path, ct)
		}
	}

	req := httptest.NewRequest(http.MethodGet, signed.RequestURI(), nil)
	req.Header.Set("Range", "bytes=0-3")
	w = ts.do(t, req)
	if w.Code != http.StatusPartialContent {
		t.Fatalf("range retrieve: expected 206, got %d", w.Code)
	}
	if w.Body.String() != "clip" {
		t.Fatalf("unexpected range body %q", w.Body.String())
	}
}

func TestAPIServerUploadRejections(t *testing.T) {
	t.Run("wrong field", func(t *testing.T) {
		ts := newTestServer(t, 10)
		w := ts.upload(t, "attachment", "clip.mp4", []byte("data"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if msg := errorMessage(t, w); msg != "no file uploaded" {
			t.Fatalf("unexpected error %q", msg)
		}
	})

	t.Run("video alias", func(t *testing.T) {
		ts := newTestServer(t, 10)
		if w := ts.upload(t, "video", "clip.mp4", []byte("data")); w.Code != http.StatusCreated {
			t.Fatalf("expected 201 for video field, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("extension", func(t *testing.T) {
		ts := newTestServer(t, 10)
		w := ts.upload(t, "file", "clip.mov", []byte("data"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if len(testsupport.StorageEntries(t, ts.cfg.Paths.StorageDir)) != 0 {
			t.Fatal("expected nothing staged for rejected extension")
		}
	})

	t.Run("too short", func(t *testing.T) {
		ts := newTestServer(t, 3)
		w := ts.upload(t, "file", "clip.mp4", []byte("data"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if len(testsupport.StorageEntries(t, ts.cfg.Paths.StorageDir)) != 0 {
			t.Fatal("expected rejected upload to be removed")
		}
	})

	t.Run("oversize", func(t *testing.T) {
		ts := newTestServer(t, 10)
		ts.cfg.Media.MaxUploadMiB = 1
		ts.srv.maxUpload = ts.cfg.MaxUploadBytes()
		w := ts.upload(t, "file", "clip.mp4", bytes.Repeat([]byte{0}, 3<<20))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if len(testsupport.StorageEntries(t, ts.cfg.Paths.StorageDir)) != 0 {
			t.Fatal("expected oversize upload to leave no file")
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		ts := newTestServer(t, 10)
		w := ts.postJSON(t, "/videos", map[string]string{"file": "x"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestAPIServerUploadRateLimit(t *testing.T) {
	ts := newTestServer(t, 10, testsupport.WithUploadRate(1))
	ts.mustUpload(t, "first.mp4", []byte("data"))
	w := ts.upload(t, "file", "second.mp4", []byte("data"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestAPIServerTrimErrors(t *testing.T) {
	ts := newTestServer(t, 10)
	id := ts.mustUpload(t, "clip.mp4", []byte("data"))

	cases := []struct {
		name    string
		payload any
		status  int
	}{
		{"unknown id", map[string]any{"id": "1b4e28ba-2fa1-11d2-883f-0016d3cca427", "start": 0, "end": 1}, http.StatusNotFound},
		{"inverted range", map[string]any{"id": id, "start": 5, "end": 2}, http.StatusBadRequest},
		{"past end", map[string]any{"id": id, "start": 0, "end": 11}, http.StatusBadRequest},
		{"missing end", map[string]any{"id": id, "start": 0}, http.StatusBadRequest},
		{"missing id", map[string]any{"start": 0, "end": 1}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.postJSON(t, "/videos:trim", tc.payload)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/videos:trim", strings.NewReader("{not json"))
	if w := ts.do(t, req); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestAPIServerMergeErrorsAreBadRequests(t *testing.T) {
	ts := newTestServer(t, 10)
	id := ts.mustUpload(t, "clip.mp4", []byte("data"))

	for name, ids := range map[string][]string{
		"single id":  {id},
		"duplicates": {id, strings.ToUpper(id)},
		"unknown id": {id, "1b4e28ba-2fa1-11d2-883f-0016d3cca427"},
	} {
		t.Run(name, func(t *testing.T) {
			w := ts.postJSON(t, "/videos:merge", api.MergeRequest{IDs: ids})
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAPIServerLinkAndRetrieveErrors(t *testing.T) {
	ts := newTestServer(t, 10)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/videos/1b4e28ba-2fa1-11d2-883f-0016d3cca427/link", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("link unknown: expected 404, got %d", w.Code)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/videos/anything", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing token: expected 400, got %d", w.Code)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/videos/anything?token=garbage", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad token: expected 400, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "invalid or expired token" {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestAPIServerBearerGate(t *testing.T) {
	ts := newTestServer(t, 10, testsupport.WithAPIToken("s3cret"))

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "unauthorized" {
		t.Fatalf("unexpected error %q", msg)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if w := ts.do(t, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	if w := ts.do(t, req); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestAPIServerHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, 10)
	ts.mustUpload(t, "clip.mp4", []byte("data"))

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var health api.HealthResponse
	decode(t, w, &health)
	if health.Status != "ok" || health.Assets != 1 {
		t.Fatalf("unexpected health %+v", health)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		`clipvault_http_requests_total{code="201",route="POST /videos"} 1`,
		`clipvault_operations_total{operation="upload",outcome="ok"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
