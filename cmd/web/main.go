// cmd/web/main.go
//
// Adept login – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Optional Vault client (when VAULT_ADDR is set) so config values like
//     `vault:secret/adept#csrf` resolve.
//
//  2. Load config: conf/.env → conf/global.yaml → ADEPT_ env overrides.
//
//  3. Start daily rotating logger (tees to console when running in a TTY
//     or when log.tee is set).
//
//  4. Build the configured authenticator (stub, sql, or remote).
//
//  5. Build CSRF tokens, the request-info service, and the auth component.
//
//  6. Root router:
//
//     • RequestID → Recoverer → AccessLog → ForceHTTPS → Security
//     • requestinfo.Enrich (IP, UA, Geo for attempt logs)
//     • /metrics  – Prometheus
//     • /healthz  – liveness
//     • /         – redirect to /login
//     • components (auth: /login, /static/auth/*)
//
//  7. Serve until SIGINT/SIGTERM, then drain for ten seconds.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/adept-login/components/auth"
	"github.com/yanizio/adept-login/internal/authn"
	"github.com/yanizio/adept-login/internal/component"
	"github.com/yanizio/adept-login/internal/config"
	"github.com/yanizio/adept-login/internal/form"
	"github.com/yanizio/adept-login/internal/logger"
	"github.com/yanizio/adept-login/internal/middleware"
	"github.com/yanizio/adept-login/internal/requestinfo"
	"github.com/yanizio/adept-login/internal/server"
	"github.com/yanizio/adept-login/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Vault (optional) ────────────────────────────────────────────
	//
	var secrets config.SecretResolver
	if vault.Enabled() {
		cli, err := vault.New(ctx, zap.S())
		if err != nil {
			log.Fatalf("vault: %v", err)
		}
		secrets = cli
	}

	//
	// ── 2.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	//
	// ── 3.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(logger.Options{
		Root:  cfg.Paths.Root,
		Dir:   cfg.Log.Dir,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Tee || runningInTTY(),
	})
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer logOut.Sync()

	if err := run(ctx, cfg, logOut); err != nil {
		logOut.Errorw("exit", "err", err)
		logOut.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logOut *zap.SugaredLogger) error {
	//
	// ── 4.  Authenticator ───────────────────────────────────────────────
	//
	authenticator, closeAuth, err := authn.FromConfig(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer closeAuth()

	//
	// ── 5.  CSRF tokens, request info, auth component ───────────────────
	//
	var key []byte
	if cfg.Form.CSRFKey != "" {
		if key, err = form.DecodeKey(cfg.Form.CSRFKey); err != nil {
			return err
		}
	} else {
		logOut.Warnw("form.csrf_key unset; using a random key, tokens reset on restart")
	}
	tokens, err := form.NewTokens(key, cfg.Form.MaxAge)
	if err != nil {
		return err
	}

	info, err := requestinfo.New(cfg.GeoIP.DBPath)
	if err != nil {
		return err
	}
	defer info.Close()

	authComp, err := auth.New(auth.Deps{
		Auth:               authenticator,
		Tokens:             tokens,
		Timing:             form.TimingPolicy{Min: cfg.Form.MinFill, Max: cfg.Form.MaxAge},
		SignupURL:          cfg.Form.SignupURL,
		SuccessURL:         cfg.Form.SuccessURL,
		InvalidMessage:     cfg.Auth.InvalidMessage,
		UnavailableMessage: cfg.Auth.UnavailableMessage,
		FormsDir:           cfg.Form.FormsDir,
		ThemeDir:           cfg.View.ThemeDir,
		ThemeClass:         cfg.View.ThemeClass,
		CacheSize:          cfg.View.CacheSize,
		Log:                logOut,
	})
	if err != nil {
		return err
	}
	if err := component.Register(authComp); err != nil {
		return err
	}
	defer component.CloseAll()

	//
	// ── 6.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.Recoverer,
		middleware.AccessLog(logOut),
		middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS),
		middleware.Security,
		info.Enrich,
	)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	component.Mount(r)

	//
	// ── 7.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})
	return server.Run(ctx, srv, logOut)
}
