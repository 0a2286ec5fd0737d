// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last) on top of `Defaults()`:

  1. Optional `.env` file at `<root>/conf/.env`.
  2. Optional `conf/global.yaml`.
  3. Environment variables prefixed `ADEPT_`, where `__` maps to “.”
     (e.g., `ADEPT_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, every string value that starts with `vault:` is swapped for
the secret it names (`vault:<mount>/<path>#<key>`).  The tree is then
unmarshalled into strongly-typed structs, validated, enriched with the
runtime root path, and cached in an `atomic.Pointer` for lock-free reads.
`Reload()` calls `Load()` again with the same resolver and swaps the
pointer.

Instrumentation
---------------
  • DEBUG spans - root discovery, YAML read, env overlay, vault lookups.
  • ERROR spans - YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  - final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "ADEPT_"
	vaultPrefix = "vault:"
	secretTTL   = 10 * time.Minute
)

// SecretResolver fetches one key of a KV secret.  *vault.Client satisfies
// it.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

var (
	current  atomic.Pointer[Config]
	resolver atomic.Value // holds resolverBox
)

type resolverBox struct{ r SecretResolver }

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves ADEPT_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("ADEPT_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves vault references through
// r (may be nil), validates, and caches Config.
func Load(ctx context.Context, r SecretResolver) (*Config, error) {
	resolver.Store(resolverBox{r})

	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if _, err := os.Stat(yamlPath); errors.Is(err, fs.ErrNotExist) {
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	} else {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: ADEPT_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, r); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"auth_backend", cfg.Auth.Backend,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps ADEPT_AUTH__BACKEND to auth.backend.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// resolveSecrets replaces every "vault:<path>#<key>" string in k.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, r SecretResolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}
		if r == nil {
			return fmt.Errorf("config %s: vault reference but no vault client configured", key)
		}
		path, field, ok := strings.Cut(strings.TrimPrefix(s, vaultPrefix), "#")
		if !ok || path == "" || field == "" {
			return fmt.Errorf("config %s: malformed vault reference %q", key, s)
		}
		secret, err := r.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key, "path", path)
		if err := k.Set(key, secret); err != nil {
			return err
		}
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

// Reload re-runs Load with the resolver from the previous call.
func Reload(ctx context.Context) error {
	var r SecretResolver
	if b, ok := resolver.Load().(resolverBox); ok {
		r = b.r
	}
	_, err := Load(ctx, r)
	return err
}
