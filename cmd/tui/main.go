// cmd/tui/main.go
//
// Adept login – terminal entry point.
//
// Boot sequence
// -------------
//
//  1. Optional Vault client (when VAULT_ADDR is set).
//
//  2. Load config (same conf/global.yaml and ADEPT_ env as cmd/web).
//
//  3. Start the file logger.  No console tee: stdout belongs to the UI.
//
//  4. Build the configured authenticator and run the bubbletea program.
//
// Exit status is 0 after a successful login, 1 when the user quits or the
// program fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/yanizio/adept-login/internal/authn"
	"github.com/yanizio/adept-login/internal/config"
	"github.com/yanizio/adept-login/internal/logger"
	"github.com/yanizio/adept-login/internal/login"
	"github.com/yanizio/adept-login/internal/tui"
	"github.com/yanizio/adept-login/internal/vault"
)

// errNoLogin ends the program without a message when the user quits.
var errNoLogin = errors.New("no login")

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errNoLogin) {
			fmt.Fprintln(os.Stderr, "adept-login:", err)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var secrets config.SecretResolver
	if vault.Enabled() {
		cli, err := vault.New(ctx, zap.S())
		if err != nil {
			return err
		}
		secrets = cli
	}

	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Options{Root: cfg.Paths.Root, Dir: cfg.Log.Dir, Level: cfg.Log.Level})
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer log.Sync()

	auth, closeAuth, err := authn.FromConfig(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAuth()

	model := tui.New(auth, tui.Options{SignupURL: cfg.Form.SignupURL, Ctx: ctx},
		login.WithLogger(log.With("ui", "tui")),
		login.WithMessages(cfg.Auth.InvalidMessage, cfg.Auth.UnavailableMessage),
	)

	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.Model); !ok || m.Welcome() == "" {
		return errNoLogin
	}
	return nil
}
