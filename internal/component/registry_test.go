// internal/component/registry_test.go
//
// Run: go test ./internal/component -v

package component

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type fake struct {
	name   string
	path   string
	closed *bool
}

func (f fake) Name() string { return f.name }

func (f fake) Routes(r chi.Router) {
	r.Get(f.path, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(f.name)) })
}

func (f fake) Close() error { *f.closed = true; return nil }

func TestRegisterMountClose(t *testing.T) {
	reset()
	t.Cleanup(reset)

	var closed, closedSignup bool
	if err := Register(fake{name: "auth", path: "/login", closed: &closed}); err != nil {
		t.Fatal(err)
	}
	if err := Register(fake{name: "auth", path: "/other", closed: &closed}); err == nil {
		t.Fatal("duplicate name accepted")
	}
	if err := Register(fake{name: "signup", path: "/signup", closed: &closedSignup}); err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	Mount(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "auth" {
		t.Fatalf("GET /login = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signup", nil))
	if rec.Body.String() != "signup" {
		t.Fatalf("GET /signup = %q", rec.Body.String())
	}

	if err := CloseAll(); err != nil || !closed || !closedSignup {
		t.Fatalf("CloseAll = %v, closed = %v/%v", err, closed, closedSignup)
	}
}
