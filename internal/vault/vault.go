// internal/vault/vault.go
//
// Vault client wrapper for Adept login.
//
// Context
// -------
//   - Provides a concurrency-safe client around the HashiCorp Vault Go SDK.
//   - Adds background token renewal, KV-v2 reads, and per-key caching.
//   - *Client satisfies config.SecretResolver, so any config value written
//     as `vault:<mount>/<path>#<key>` (CSRF key, database DSN) is resolved
//     here during boot.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log)                  // during boot, if VAULT_ADDR is set.
//  2. cfg, err := config.Load(ctx, cli)                // resolves vault: references.
//  3. pw,  err := cli.GetKV(ctx, path, key, ttl)       // anywhere else.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

//
// SECTION 1.  Public façade
//

// kvReader is the slice of the SDK GetKV needs.
type kvReader interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
}

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger
	kv  func(mount string) kvReader

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
	now     func() time.Time
}

type cached struct {
	val string
	exp time.Time
}

// Enabled reports whether the environment points at a Vault server.
func Enabled() bool { return os.Getenv("VAULT_ADDR") != "" }

// New constructs a Vault client and starts a background token-renewal loop
// that stops when ctx is cancelled.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault-token).
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(log, func(mount string) kvReader { return apiCli.KVv2(mount) })
	c.api = apiCli

	go c.renewLoop(ctx)

	return c, nil
}

func newClient(log *zap.SugaredLogger, kv func(string) kvReader) *Client {
	return &Client{
		log:   log,
		kv:    kv,
		cache: make(map[string]cached),
		now:   time.Now,
	}
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.  Subsequent callers within the TTL receive the
// cached copy.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("vault: secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && c.now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	if rel == "" {
		return "", fmt.Errorf("vault: %q has no path below the mount", secretPath)
	}
	sec, err := c.kv(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: c.now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	c.log.Debugw("vault secret read", "path", secretPath, "key", key)

	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
probe:
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelf(0)
		if err != nil {
			c.log.Warnw("vault token renew self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warnw("vault watcher init failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		go watcher.Start()

		for {
			select {
			case <-ctx.Done():
				watcher.Stop()
				return
			case err := <-watcher.DoneCh():
				watcher.Stop()
				if err != nil {
					c.log.Warnw("vault token renewal stopped", "err", err)
				}
				backoff(ctx, 15*time.Second)
				continue probe
			case ev := <-watcher.RenewCh():
				if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
					c.log.Debugw("vault token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
				}
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

// splitMount separates "secret/adept/db" into ("secret", "adept/db").
func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
