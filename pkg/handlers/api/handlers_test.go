package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"video-gateway-go/pkg/appctx"
	"video-gateway-go/pkg/artifact"
	"video-gateway-go/pkg/auth"
	"video-gateway-go/pkg/config"
	"video-gateway-go/pkg/fetch"
	"video-gateway-go/pkg/httpclient"
	"video-gateway-go/pkg/interfaces"
	"video-gateway-go/pkg/logging"
	"video-gateway-go/pkg/probe"
	"video-gateway-go/pkg/ratelimit"
	"video-gateway-go/pkg/stream"
)

// scriptedEngine drives handler tests without invoking yt-dlp.
type scriptedEngine struct {
	probeInfo *interfaces.MediaInfo
	probeErr  error
	fetchErr  error
	// when writeExt is non-empty, Fetch resolves the template and writes
	// an artifact with that extension
	writeExt string
}

func (e *scriptedEngine) Probe(ctx context.Context, url string) (*interfaces.MediaInfo, error) {
	return e.probeInfo, e.probeErr
}

func (e *scriptedEngine) Fetch(ctx context.Context, url, format, outputTemplate string) error {
	if e.writeExt != "" {
		path := strings.ReplaceAll(outputTemplate, "%(ext)s", e.writeExt)
		if err := os.WriteFile(path, []byte("downloaded media"), 0644); err != nil {
			return err
		}
	}
	return e.fetchErr
}

type testEnv struct {
	handlers *Handlers
	store    *artifact.Store
	dir      string
}

func newTestEnv(t *testing.T, eng interfaces.Engine, apiKey string, limit int) *testEnv {
	t.Helper()

	dir := t.TempDir()
	log := logging.New("error", false, io.Discard)
	cfg := &config.Config{
		APIKey:     apiKey,
		RateLimit:  limit,
		RateWindow: time.Minute,
		TmpDir:     dir,
	}

	store := artifact.NewStore(dir)
	ctx := appctx.New(cfg, log).
		WithEngine(eng).
		WithGuard(auth.NewGuard(cfg.APIKey)).
		WithLimiter(ratelimit.New(cfg.RateLimit, cfg.RateWindow)).
		WithArtifacts(store).
		WithProber(probe.New(eng, log)).
		WithFetcher(fetch.New(eng, store, log)).
		WithResponder(stream.New(store, log)).
		WithHTTPClient(httpclient.New(cfg, log))

	return &testEnv{handlers: NewHandlers(ctx), store: store, dir: dir}
}

func (env *testEnv) mux() *http.ServeMux {
	mux := http.NewServeMux()
	env.handlers.RegisterRoutes(mux)
	return mux
}

func (env *testEnv) get(t *testing.T, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	env.mux().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, w.Body.String())
	}
	return body["error"]
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, &scriptedEngine{}, "", 5)

	w := env.get(t, "/", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/download") {
		t.Error("capability description should mention the download endpoint")
	}
}

func TestDownload_Unauthorized(t *testing.T) {
	env := newTestEnv(t, &scriptedEngine{}, "s3cr3t", 5)

	t.Run("missing header", func(t *testing.T) {
		w := env.get(t, "/download?url=https://example.com/v", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
		if msg := decodeError(t, w); !strings.Contains(msg, "invalid API key") {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("wrong header", func(t *testing.T) {
		w := env.get(t, "/download?url=https://example.com/v", map[string]string{"X-API-KEY": "nope"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestDownload_AuthPrecedesQuota(t *testing.T) {
	eng := &scriptedEngine{
		probeInfo: &interfaces.MediaInfo{Title: "My Video"},
		writeExt:  "mp4",
	}
	env := newTestEnv(t, eng, "s3cr3t", 2)

	// Unauthenticated probing must not consume the identity's quota.
	for i := 0; i < 10; i++ {
		if w := env.get(t, "/download?url=u", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	}

	key := map[string]string{"X-API-KEY": "s3cr3t"}
	for i := 0; i < 2; i++ {
		if w := env.get(t, "/download?url=u", key); w.Code != http.StatusOK {
			t.Fatalf("authorized request %d: status = %d, want 200", i+1, w.Code)
		}
	}
	if w := env.get(t, "/download?url=u", key); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 once the window is full", w.Code)
	}
}

func TestDownload_RateLimited(t *testing.T) {
	eng := &scriptedEngine{
		probeInfo: &interfaces.MediaInfo{Title: "v"},
		writeExt:  "mp4",
	}
	env := newTestEnv(t, eng, "", 1)

	if w := env.get(t, "/download?url=u", nil); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	w := env.get(t, "/download?url=u", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if msg := decodeError(t, w); !strings.Contains(msg, "too many requests") {
		t.Errorf("error = %q", msg)
	}
}

func TestDownload_MissingURL(t *testing.T) {
	env := newTestEnv(t, &scriptedEngine{}, "", 5)

	w := env.get(t, "/download", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDownload_Success(t *testing.T) {
	eng := &scriptedEngine{
		probeInfo: &interfaces.MediaInfo{Title: "My/Video"},
		writeExt:  "mp4",
	}
	env := newTestEnv(t, eng, "", 5)

	w := env.get(t, "/download?url=https://example.com/v", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "downloaded media" {
		t.Errorf("body = %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="My-Video.mp4"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	entries, err := os.ReadDir(env.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("artifact should be deleted after streaming, found %d files", len(entries))
	}
	if env.store.Outstanding() != 0 {
		t.Errorf("outstanding ids = %d, want 0", env.store.Outstanding())
	}
}

func TestDownload_ProbeFails(t *testing.T) {
	eng := &scriptedEngine{probeErr: errors.New("Unsupported URL: ftp://x")}
	env := newTestEnv(t, eng, "", 5)

	w := env.get(t, "/download?url=ftp://x", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if msg := decodeError(t, w); !strings.Contains(msg, "Unsupported URL") {
		t.Errorf("engine message should pass through, got %q", msg)
	}
}

func TestDownload_NoArtifactProduced(t *testing.T) {
	// Probe succeeds, download reports success but writes nothing.
	eng := &scriptedEngine{probeInfo: &interfaces.MediaInfo{Title: "My Video"}}
	env := newTestEnv(t, eng, "", 5)

	w := env.get(t, "/download?url=u", nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if msg := decodeError(t, w); !strings.Contains(msg, "download failed") {
		t.Errorf("error = %q, want download failure", msg)
	}

	entries, err := os.ReadDir(env.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no dangling files expected, found %d", len(entries))
	}
}

func TestInfo(t *testing.T) {
	eng := &scriptedEngine{
		probeInfo: &interfaces.MediaInfo{
			Title:           "Clip",
			ThumbnailURL:    "https://i.example.com/t.jpg",
			DurationSeconds: 120,
			Uploader:        "chan",
		},
	}
	env := newTestEnv(t, eng, "s3cr3t", 5)

	// No auth required for metadata.
	w := env.get(t, "/info?url=u", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var md map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &md); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if md["title"] != "Clip" {
		t.Errorf("title = %v", md["title"])
	}
}

func TestInfo_EngineErrorIsStill200(t *testing.T) {
	eng := &scriptedEngine{probeErr: errors.New("video unavailable")}
	env := newTestEnv(t, eng, "", 5)

	w := env.get(t, "/info?url=u", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (error surfaces in the payload)", w.Code)
	}
	if msg := decodeError(t, w); !strings.Contains(msg, "video unavailable") {
		t.Errorf("error = %q", msg)
	}
}

func TestPlaylistInfo_NotAPlaylist(t *testing.T) {
	eng := &scriptedEngine{probeInfo: &interfaces.MediaInfo{Title: "Single"}}
	env := newTestEnv(t, eng, "", 5)

	w := env.get(t, "/playlist/info?url=u", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if msg := decodeError(t, w); !strings.Contains(msg, "not a playlist") {
		t.Errorf("error = %q", msg)
	}
}

func TestPlaylistInfo_DropsNullMembers(t *testing.T) {
	eng := &scriptedEngine{
		probeInfo: &interfaces.MediaInfo{
			Title: "Mix",
			Entries: []*interfaces.MediaInfo{
				{ID: "v1", Title: "First", WebpageURL: "u1"},
				nil,
				{ID: "v2", Title: "Second", WebpageURL: "u2"},
			},
		},
	}
	env := newTestEnv(t, eng, "", 5)

	w := env.get(t, "/playlist/info?url=u", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var md struct {
		Title  string `json:"playlist_title"`
		Count  int    `json:"count"`
		Videos []struct {
			ID string `json:"id"`
		} `json:"videos"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &md); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if md.Count != 2 {
		t.Errorf("count = %d, want 2", md.Count)
	}
	if len(md.Videos) != 2 || md.Videos[0].ID != "v1" || md.Videos[1].ID != "v2" {
		t.Errorf("videos = %+v", md.Videos)
	}
}

func TestPlaylistInfo_EngineError(t *testing.T) {
	eng := &scriptedEngine{probeErr: errors.New("network unreachable")}
	env := newTestEnv(t, eng, "", 5)

	w := env.get(t, "/playlist/info?url=u", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestThumbnail(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegdata"))
	}))
	defer upstream.Close()

	env := newTestEnv(t, &scriptedEngine{}, "", 5)

	t.Run("relayed", func(t *testing.T) {
		w := env.get(t, "/thumbnail?url="+url.QueryEscape(upstream.URL), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Content-Type = %q", ct)
		}
		if w.Body.String() != "jpegdata" {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("missing url", func(t *testing.T) {
		w := env.get(t, "/thumbnail", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("non-http scheme refused", func(t *testing.T) {
		w := env.get(t, "/thumbnail?url="+url.QueryEscape("file:///etc/passwd"), nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unreachable upstream", func(t *testing.T) {
		w := env.get(t, "/thumbnail?url="+url.QueryEscape("http://127.0.0.1:1/x"), nil)
		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", w.Code)
		}
	})
}

func TestClientIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:55132"
	if got := clientIdentity(req); got != "203.0.113.9" {
		t.Errorf("clientIdentity = %q, want bare host", got)
	}

	req.RemoteAddr = "weird-no-port"
	if got := clientIdentity(req); got != "weird-no-port" {
		t.Errorf("clientIdentity = %q, want raw value when unparsable", got)
	}
}
