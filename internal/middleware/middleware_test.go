// internal/middleware/middleware_test.go
//
// Run: go test ./internal/middleware -v

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		proto  string
		on     bool
		status int
	}{
		{"disabled", "http://example.com/login", "", false, http.StatusOK},
		{"redirects", "http://example.com/login?next=1", "", true, http.StatusPermanentRedirect},
		{"localhost", "http://localhost:8080/login", "", true, http.StatusOK},
		{"loopback", "http://127.0.0.1:8080/login", "", true, http.StatusOK},
		{"proxy tls", "http://example.com/login", "https", true, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			rec := httptest.NewRecorder()
			ForceHTTPS(tc.on)(okHandler).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.status == http.StatusPermanentRedirect {
				if loc := rec.Header().Get("Location"); loc != "https://example.com/login?next=1" {
					t.Fatalf("Location = %q", loc)
				}
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := Security(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got != csp {
		t.Fatalf("CSP = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Fatalf("handler override lost: %q", got)
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core).Sugar()

	h := chimw.RequestID(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login?password=x", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.Level != zap.WarnLevel {
		t.Fatalf("level = %v, want warn", e.Level)
	}
	fields := e.ContextMap()
	if fields["path"] != "/login" || fields["status"] != int64(503) || fields["req_id"] == "" {
		t.Fatalf("fields = %v", fields)
	}
}
