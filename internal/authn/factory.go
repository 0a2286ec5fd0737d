// internal/authn/factory.go
//
// Backend selection shared by cmd/web and cmd/tui.

package authn

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/adept-login/internal/config"
	"github.com/yanizio/adept-login/internal/database"
	"github.com/yanizio/adept-login/internal/login"
)

// FromConfig builds the authenticator named by cfg.Auth.Backend.  The
// returned close func releases backend resources (the SQL pool) and is
// never nil.
func FromConfig(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (login.Authenticator, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Auth.Backend {
	case "stub":
		log.Warnw("using stub authenticator", "username", cfg.Auth.StubUsername, "delay", cfg.Auth.StubDelay)
		return &Stub{
			Delay:    cfg.Auth.StubDelay,
			Username: cfg.Auth.StubUsername,
			Password: cfg.Auth.StubPassword,
		}, noop, nil

	case "sql":
		db, err := database.OpenWithOptions(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, noop, fmt.Errorf("authn: open database: %w", err)
		}
		log.Infow("using sql authenticator")
		return &SQL{DB: db}, db.Close, nil

	case "remote":
		log.Infow("using remote authenticator", "url", cfg.Auth.RemoteURL)
		return NewRemote(cfg.Auth.RemoteURL, RemoteOptions{
			Timeout:  cfg.Auth.RemoteTimeout,
			RetryMax: cfg.Auth.RemoteRetries,
			Log:      log,
		}), noop, nil
	}
	return nil, noop, fmt.Errorf("authn: unknown backend %q", cfg.Auth.Backend)
}
