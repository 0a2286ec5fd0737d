// components/auth/auth.go
//
// Adept authentication component – login flow.
//
// Context
//   The component serves one page, the login card, at /login.  Field rules
//   come from forms/login.yaml, markup from templates/*.html, and the busy
//   spinner from static/login.js.  All three are embedded; an operator may
//   override the YAML (Deps.FormsDir) or the templates (Deps.ThemeDir)
//   without rebuilding.
//
// Workflow
//   •  GET  /login  renders an Idle form with a fresh CSRF token.
//   •  POST /login  runs the form-level checks (CSRF, timing), then one
//      login.Controller per form instance.  Identical re-posts of the same
//      instance join the submission already in flight.
//   •  Success renders the welcome page or redirects to SuccessURL.
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/adept-login/internal/component"
	"github.com/yanizio/adept-login/internal/form"
	"github.com/yanizio/adept-login/internal/login"
	"github.com/yanizio/adept-login/internal/view"
)

// FormID is the registry key of the login form definition.
const FormID = "auth/login"

// DefaultSubmitTimeout bounds one authenticate call started from a POST.
const DefaultSubmitTimeout = 10 * time.Second

//go:embed forms/*.yaml templates/*.html static/*
var assets embed.FS

// Compile-time assertions.
var (
	_ component.Component = (*Component)(nil)
	_ component.Closer    = (*Component)(nil)
)

// Deps carries everything the component needs from cmd/web.
type Deps struct {
	Auth   login.Authenticator
	Tokens *form.Tokens
	Timing form.TimingPolicy

	// OnSuccess is the optional success callback.  It receives the
	// submitted credentials once per successful submission.
	OnSuccess func(login.Credentials)

	SignupURL  string // "or, sign up" target; defaults to /signup
	SuccessURL string // empty renders the welcome page

	InvalidMessage     string
	UnavailableMessage string
	SubmitTimeout      time.Duration

	FormsDir   string // optional YAML override directory
	ThemeDir   string // optional template override directory
	ThemeClass string // extra CSS class on the card
	CacheSize  int

	Log *zap.SugaredLogger
}

// Component encapsulates login functionality.
type Component struct {
	deps   Deps
	fd     *form.FormDef
	schema *login.Schema
	view   *view.Engine
	static fs.FS
	log    *zap.SugaredLogger

	flights singleflight.Group

	// base parents every submission so Close can cancel them on shutdown.
	base   context.Context
	cancel context.CancelFunc
}

// New loads the form definition, builds the schema and view engine, and
// returns a ready component.
func New(d Deps) (*Component, error) {
	if d.Auth == nil {
		return nil, errors.New("auth: Deps.Auth is required")
	}
	if d.Tokens == nil {
		return nil, errors.New("auth: Deps.Tokens is required")
	}
	if d.SignupURL == "" {
		d.SignupURL = "/signup"
	}
	if d.SubmitTimeout <= 0 {
		d.SubmitTimeout = DefaultSubmitTimeout
	}
	if d.Log == nil {
		d.Log = zap.S()
	}

	if err := form.RegisterFS(assets, "forms"); err != nil {
		return nil, err
	}
	if d.FormsDir != "" {
		if err := form.RegisterFS(os.DirFS(d.FormsDir), "."); err != nil {
			return nil, err
		}
	}
	fd, ok := form.Get(FormID)
	if !ok {
		return nil, errors.New("auth: form " + FormID + " not registered")
	}
	schema, err := login.SchemaFromForm(fd)
	if err != nil {
		return nil, err
	}

	tpl, err := fs.Sub(assets, "templates")
	if err != nil {
		return nil, err
	}
	eng, err := view.New(tpl, view.Options{
		ThemeDir:   d.ThemeDir,
		ThemeClass: d.ThemeClass,
		CacheSize:  d.CacheSize,
		Shared:     []string{"layout"},
	})
	if err != nil {
		return nil, err
	}

	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}

	base, cancel := context.WithCancel(context.Background())
	return &Component{
		deps:   d,
		fd:     fd,
		schema: schema,
		view:   eng,
		static: static,
		log:    d.Log.With("component", "auth"),
		base:   base,
		cancel: cancel,
	}, nil
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Routes registers the login page and its static assets.
func (c *Component) Routes(r chi.Router) {
	r.Get("/login", c.handleLoginGET)
	r.Post("/login", c.handleLoginPOST)
	r.Handle("/static/auth/*", http.StripPrefix("/static/auth/", http.FileServer(http.FS(c.static))))
}

// Close cancels every in-flight submission.  Their callers receive a
// transport failure; onSuccess does not fire.
func (c *Component) Close() error {
	c.cancel()
	return nil
}

// Schema exposes the schema built from the form definition.
func (c *Component) Schema() *login.Schema { return c.schema }
