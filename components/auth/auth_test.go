// components/auth/auth_test.go
//
// End-to-end tests for the login page over httptest.
//
//   • GET renders the card, inputs, token, and sign-up link.
//   • POST covers valid, rejected, unavailable, invalid, and CSRF failures.
//   • Duplicate posts of one form instance share one authenticate call.
//   • FormsDir and ThemeDir overrides take effect.
//
// Run: go test ./components/auth -v

package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/yanizio/adept-login/internal/authn"
	"github.com/yanizio/adept-login/internal/form"
	"github.com/yanizio/adept-login/internal/login"
	"github.com/yanizio/adept-login/internal/metrics"
)

var testKey = bytes.Repeat([]byte("k"), 32)

func newServer(t *testing.T, d Deps) (*httptest.Server, *form.Tokens) {
	t.Helper()
	if d.Tokens == nil {
		tok, err := form.NewTokens(testKey, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		d.Tokens = tok
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	c, err := New(d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	r := chi.NewRouter()
	c.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, d.Tokens
}

// noRedirect keeps 303s visible to the test.
var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

func post(t *testing.T, srv *httptest.Server, tok, user, pass string) (int, string) {
	t.Helper()
	vals := url.Values{
		"username":         {user},
		"password":         {pass},
		form.CSRFField:     {tok},
		form.RenderTSField: {strconv.FormatInt(time.Now().UnixMicro(), 10)},
	}
	resp, err := noRedirect.PostForm(srv.URL+"/login", vals)
	if err != nil {
		t.Errorf("POST: %v", err) // may run off the test goroutine
		return 0, ""
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.String()
}

func freshToken(t *testing.T, tokens *form.Tokens) string {
	t.Helper()
	tok, err := tokens.Generate()
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func stub() *authn.Stub { return &authn.Stub{Username: authn.StubUsername, Password: authn.StubPassword} }

func TestGetLogin(t *testing.T) {
	srv, _ := newServer(t, Deps{Auth: stub(), ThemeClass: "card-dark"})

	resp, err := http.Get(srv.URL + "/login")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	body := buf.String()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		"<h1>Log in</h1>",
		`name="username" type="text" placeholder="Username" autocomplete="username" required minlength="3"`,
		`name="password" type="password" placeholder="Password" autocomplete="current-password" required minlength="6"`,
		`name="csrf_token"`,
		`data-busy-label="Logging in..."`,
		`<span class="label">Log in</span>`,
		`or, <a href="/signup">sign up</a>`,
		`class="card card-dark"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, `class="server-error"`) {
		t.Error("fresh form shows a server error")
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newServer(t, Deps{Auth: stub()})
	for _, p := range []string{"/static/auth/login.js", "/static/auth/login.css"} {
		resp, err := http.Get(srv.URL + p)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", p, resp.StatusCode)
		}
	}
}

func TestPostSuccessFiresCallbackOnce(t *testing.T) {
	var (
		mu  sync.Mutex
		got []login.Credentials
	)
	srv, tokens := newServer(t, Deps{
		Auth: stub(),
		OnSuccess: func(c login.Credentials) {
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		},
	})

	status, body := post(t, srv, freshToken(t, tokens), "testuser", "password123")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "Welcome, testuser! Login successful.") {
		t.Fatalf("body = %s", body)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != (login.Credentials{Username: "testuser", Password: "password123"}) {
		t.Fatalf("callback got %+v", got)
	}
}

func TestPostSuccessRedirect(t *testing.T) {
	srv, tokens := newServer(t, Deps{Auth: stub(), SuccessURL: "/home"})
	status, _ := post(t, srv, freshToken(t, tokens), "testuser", "password123")
	if status != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", status)
	}
}

func TestPostFailures(t *testing.T) {
	down := login.AuthenticatorFunc(func(context.Context, login.Credentials) (login.Session, error) {
		return login.Session{}, errors.New("connection refused")
	})

	cases := []struct {
		name   string
		auth   login.Authenticator
		user   string
		pass   string
		status int
		want   []string
	}{
		{"rejected", stub(), "testuser", "wrongpass", http.StatusUnauthorized,
			[]string{`<p class="server-error" role="alert">Invalid username or password.</p>`, `value="testuser"`}},
		{"unavailable", down, "testuser", "password123", http.StatusServiceUnavailable,
			[]string{"We could not reach the sign-in service.  Please try again."}},
		{"empty", stub(), "", "", http.StatusUnprocessableEntity,
			[]string{"Username is required.", "Password is required."}},
		{"short", stub(), "ab", "12345", http.StatusUnprocessableEntity,
			[]string{"Username must be at least 3 characters.", "Password must be at least 6 characters.", `aria-invalid="true"`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, tokens := newServer(t, Deps{Auth: tc.auth})
			status, body := post(t, srv, freshToken(t, tokens), tc.user, tc.pass)
			if status != tc.status {
				t.Fatalf("status = %d, want %d", status, tc.status)
			}
			for _, w := range tc.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q", w)
				}
			}
			if strings.Contains(body, `value="`+tc.pass+`"`) && tc.pass != "" {
				t.Error("password echoed back into the page")
			}
		})
	}
}

func TestPostInvalidNeverAuthenticates(t *testing.T) {
	var calls atomic.Int32
	auth := login.AuthenticatorFunc(func(context.Context, login.Credentials) (login.Session, error) {
		calls.Add(1)
		return login.Session{}, nil
	})
	srv, tokens := newServer(t, Deps{Auth: auth})
	post(t, srv, freshToken(t, tokens), "ab", "password123")
	if n := calls.Load(); n != 0 {
		t.Fatalf("authenticate calls = %d, want 0", n)
	}
}

func TestPostBadToken(t *testing.T) {
	srv, _ := newServer(t, Deps{Auth: stub()})
	before := testutil.ToFloat64(metrics.FormRejectsTotal.WithLabelValues(form.ReasonCSRF))

	status, body := post(t, srv, "forged", "testuser", "password123")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "Security token invalid.") {
		t.Fatalf("body = %s", body)
	}
	if d := testutil.ToFloat64(metrics.FormRejectsTotal.WithLabelValues(form.ReasonCSRF)) - before; d != 1 {
		t.Fatalf("csrf rejects delta = %v", d)
	}
}

func TestDuplicatePostJoinsInFlight(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	auth := login.AuthenticatorFunc(func(ctx context.Context, c login.Credentials) (login.Session, error) {
		calls.Add(1)
		entered <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return login.Session{}, ctx.Err()
		}
		return login.Session{UserID: "1", Username: c.Username}, nil
	})

	var successes atomic.Int32
	srv, tokens := newServer(t, Deps{Auth: auth, OnSuccess: func(login.Credentials) { successes.Add(1) }})
	tok := freshToken(t, tokens)
	before := testutil.ToFloat64(metrics.DuplicateSubmitsTotal)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	wg.Add(1)
	go func() { defer wg.Done(); codes[0], _ = post(t, srv, tok, "testuser", "password123") }()
	<-entered

	wg.Add(1)
	go func() { defer wg.Done(); codes[1], _ = post(t, srv, tok, "testuser", "password123") }()
	// Give the duplicate time to reach the singleflight group.
	time.Sleep(150 * time.Millisecond)
	close(release)
	wg.Wait()

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("codes = %v", codes)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("authenticate calls = %d, want 1", n)
	}
	if n := successes.Load(); n != 1 {
		t.Fatalf("onSuccess calls = %d, want 1", n)
	}
	if d := testutil.ToFloat64(metrics.DuplicateSubmitsTotal) - before; d != 1 {
		t.Fatalf("duplicate submits delta = %v", d)
	}
}

func TestFlightKeySeparatesCredentials(t *testing.T) {
	a := flightKey("n1", login.Credentials{Username: "u", Password: "p1"})
	b := flightKey("n1", login.Credentials{Username: "u", Password: "p2"})
	c := flightKey("n1", login.Credentials{Username: "u", Password: "p1"})
	if a == b || a != c {
		t.Fatalf("keys: %s %s %s", a, b, c)
	}
}

func TestOverrides(t *testing.T) {
	forms := t.TempDir()
	yaml := strings.Replace(string(mustRead(t, "forms/login.yaml")), "minlength: 3", "minlength: 5", 1)
	if err := os.WriteFile(filepath.Join(forms, "login.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	theme := t.TempDir()
	welcome := `{{ template "layout" . }}{{ define "content" }}<p>Hi {{ .Username }}</p>{{ end }}`
	if err := os.WriteFile(filepath.Join(theme, "welcome.html"), []byte(welcome), 0o644); err != nil {
		t.Fatal(err)
	}

	srv, tokens := newServer(t, Deps{Auth: stub(), FormsDir: forms, ThemeDir: theme})

	status, body := post(t, srv, freshToken(t, tokens), "test", "password123")
	if status != http.StatusUnprocessableEntity || !strings.Contains(body, "Username must be at least 5 characters.") {
		t.Fatalf("forms override: %d %s", status, body)
	}

	status, body = post(t, srv, freshToken(t, tokens), "testuser", "password123")
	if status != http.StatusOK || !strings.Contains(body, "<p>Hi testuser</p>") {
		t.Fatalf("theme override: %d %s", status, body)
	}
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("New without Auth succeeded")
	}
}

func mustRead(t *testing.T, name string) []byte {
	t.Helper()
	b, err := assets.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
