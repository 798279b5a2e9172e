package server

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yourusername/lyrics-catalog/internal/handlers"
	"github.com/yourusername/lyrics-catalog/internal/logging"
	"github.com/yourusername/lyrics-catalog/internal/ratelimit"
	"github.com/yourusername/lyrics-catalog/internal/storetest"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Output: io.Discard})
	os.Exit(m.Run())
}

type allowAll struct{}

func (allowAll) Verify(ctx context.Context, token, remoteIP string) error { return nil }

func newApp(t *testing.T, cfg Config) (*fiber.App, *storetest.Memory) {
	t.Helper()
	store := storetest.NewMemory()
	h := handlers.New(store, ratelimit.NewViewLimiter(), allowAll{})
	if cfg.AllowOrigins == nil {
		cfg.AllowOrigins = []string{"*"}
	}
	if cfg.ClientIPHeader == "" {
		cfg.ClientIPHeader = "CF-Connecting-IP"
	}
	if cfg.SubmitRateMax == 0 {
		cfg.SubmitRateMax = 100
		cfg.SubmitRateWindow = time.Minute
	}
	return New(h, cfg), store
}

func send(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, string, func(string) string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), resp.Header.Get
}

func TestAllDigits(t *testing.T) {
	tests := map[string]bool{
		"1":    true,
		"0042": true,
		"":     false,
		"abc":  false,
		"12a":  false,
		"-1":   false,
		"1.5":  false,
	}
	for in, want := range tests {
		if got := allDigits(in); got != want {
			t.Errorf("allDigits(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRouting_NonNumericIDFallsThrough(t *testing.T) {
	app, _ := newApp(t, Config{})

	tests := []struct {
		method, path, body string
	}{
		{"GET", "/api/admin/song/abc", ""},
		{"DELETE", "/api/admin/artist/x1", ""},
		{"PUT", "/api/admin/report/1e3", `{"status":"resolved"}`},
	}
	for _, tt := range tests {
		status, body, _ := send(t, app, tt.method, tt.path, tt.body)
		if status != 404 || !strings.Contains(body, `"Not found"`) {
			t.Errorf("%s %s = %d %s, want JSON 404", tt.method, tt.path, status, body)
		}
	}

	status, body, _ := send(t, app, "GET", "/api/admin/song/42", "")
	if status != 404 || !strings.Contains(body, "Song not found") {
		t.Errorf("numeric id should reach the handler, got %d %s", status, body)
	}
}

func TestRouting_UnknownAPIPath(t *testing.T) {
	app, _ := newApp(t, Config{StaticDir: t.TempDir()})

	for _, path := range []string{"/api", "/API/Nope"} {
		if status, body, _ := send(t, app, "GET", path, ""); status != 404 || !strings.Contains(body, `"Not found"`) {
			t.Errorf("%s = %d %s, want JSON 404", path, status, body)
		}
	}

	status, body, header := send(t, app, "GET", "/api/does-not-exist", "")
	if status != 404 || !strings.Contains(body, `"error":"Not found"`) {
		t.Errorf("got %d %s", status, body)
	}
	if got := header("Content-Type"); got != fiber.MIMEApplicationJSONCharsetUTF8 {
		t.Errorf("Content-Type = %q, want %q", got, fiber.MIMEApplicationJSONCharsetUTF8)
	}
}

func TestAdminGuard(t *testing.T) {
	app, _ := newApp(t, Config{AdminToken: "s3cret"})

	tests := []struct {
		auth string
		want int
	}{
		{"", 401},
		{"Bearer wrong", 401},
		{"s3cret", 401},
		{"Bearer s3cret", 200},
	}
	for _, tt := range tests {
		var headers []string
		if tt.auth != "" {
			headers = []string{"Authorization", tt.auth}
		}
		if status, body, _ := send(t, app, "GET", "/api/admin/stats", "", headers...); status != tt.want {
			t.Errorf("Authorization %q = %d %s, want %d", tt.auth, status, body, tt.want)
		}
	}

	if status, _, _ := send(t, app, "GET", "/api/songs", ""); status != 200 {
		t.Errorf("public routes must stay open, got %d", status)
	}
}

func TestAdminGuard_OpenWithoutToken(t *testing.T) {
	app, _ := newApp(t, Config{})
	if status, _, _ := send(t, app, "GET", "/api/admin/stats", ""); status != 200 {
		t.Errorf("got %d, want 200", status)
	}
}

func TestCacheControl(t *testing.T) {
	app, _ := newApp(t, Config{})
	send(t, app, "POST", "/api/admin/songs", `{"title":"Oceans","lyrics":"x"}`)

	tests := []struct {
		method, path, want string
	}{
		{"GET", "/api/songs", handlers.CacheDefault},
		{"GET", "/api/song/oceans", handlers.CacheDetail},
		{"GET", "/api/categories", handlers.CacheCategories},
		{"GET", "/api/admin/songs", handlers.CacheNone},
		{"GET", "/API/ADMIN/songs", handlers.CacheNone},
		{"GET", "/Api/Admin/stats", handlers.CacheNone},
		{"POST", "/api/view/oceans", handlers.CacheNone},
	}
	for _, tt := range tests {
		_, _, header := send(t, app, tt.method, tt.path, "")
		if got := header("Cache-Control"); got != tt.want {
			t.Errorf("%s %s Cache-Control = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	app, _ := newApp(t, Config{AllowOrigins: []string{"https://lyrics.example"}})

	status, _, header := send(t, app, "OPTIONS", "/api/admin/songs", "",
		"Origin", "https://lyrics.example",
		"Access-Control-Request-Method", "POST",
	)
	if status != 204 {
		t.Errorf("preflight status = %d, want 204", status)
	}
	if got := header("Access-Control-Allow-Origin"); got != "https://lyrics.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if !strings.Contains(header("Access-Control-Allow-Methods"), "PUT") {
		t.Errorf("Allow-Methods = %q", header("Access-Control-Allow-Methods"))
	}
}

func TestSubmissionLimiter(t *testing.T) {
	app, _ := newApp(t, Config{SubmitRateMax: 2, SubmitRateWindow: time.Hour})
	body := `{"name":"Jo","email":"jo@example.com","message":"hi","turnstile_token":"t"}`

	for i := 0; i < 2; i++ {
		if status, resp, _ := send(t, app, "POST", "/api/contact", body, "CF-Connecting-IP", "192.0.2.1"); status != 201 {
			t.Fatalf("submission %d = %d %s", i, status, resp)
		}
	}
	status, resp, _ := send(t, app, "POST", "/api/contact", body, "CF-Connecting-IP", "192.0.2.1")
	if status != 429 || !strings.Contains(resp, "Too many submissions") {
		t.Errorf("third submission = %d %s", status, resp)
	}
	if status, _, _ := send(t, app, "POST", "/api/report", body, "CF-Connecting-IP", "192.0.2.2"); status == 429 {
		t.Error("limiter must be keyed per client")
	}
}

func TestErrorBoundary(t *testing.T) {
	app, store := newApp(t, Config{})
	store.Err = storetest.ErrInjected

	status, body, header := send(t, app, "GET", "/api/popular", "")
	if status != 500 || body != `{"error":"Internal server error"}` {
		t.Errorf("got %d %s", status, body)
	}
	if header("Cache-Control") != handlers.CacheNone {
		t.Errorf("errors must not be cached, got %q", header("Cache-Control"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newApp(t, Config{})
	send(t, app, "GET", "/api/songs", "")

	status, body, _ := send(t, app, "GET", "/metrics", "")
	if status != 200 || !strings.Contains(body, "lyrics_http_requests_total") {
		t.Errorf("metrics = %d, body missing request counter", status)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"index.html":  "<h1>home</h1>",
		"song.html":   "<h1>song shell</h1>",
		"404.html":    "<h1>lost</h1>",
		"apiary.html": "<h1>bees</h1>",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	app, _ := newApp(t, Config{StaticDir: dir})

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", 200, "home"},
		{"/song/amazing-grace", 200, "song shell"},
		{"/nowhere", 404, "lost"},
		{"/apiary.html", 200, "bees"},
		{"/apix/anything", 404, "lost"},
	}
	for _, tt := range tests {
		status, body, _ := send(t, app, "GET", tt.path, "")
		if status != tt.status || !strings.Contains(body, tt.body) {
			t.Errorf("GET %s = %d %q, want %d containing %q", tt.path, status, body, tt.status, tt.body)
		}
	}
}
