// internal/config/model.go
//
// Typed configuration model for Adept login.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         - dotenv values,
//   • `conf/global.yaml`                      - primary static file,
//   • `ADEPT_`-prefixed environment overrides - highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Defaults() seeds every field; YAML and env only override.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
}

//
// Auth section
//

// Auth selects and tunes the authenticate backend.
type Auth struct {
	Backend string `koanf:"backend" validate:"required,oneof=stub sql remote"`

	StubDelay    time.Duration `koanf:"stub_delay"    validate:"gte=0"`
	StubUsername string        `koanf:"stub_username" validate:"required_if=Backend stub"`
	StubPassword string        `koanf:"stub_password" validate:"required_if=Backend stub"`

	RemoteURL     string        `koanf:"remote_url"     validate:"required_if=Backend remote,omitempty,url"`
	RemoteTimeout time.Duration `koanf:"remote_timeout" validate:"gte=0"`
	RemoteRetries int           `koanf:"remote_retries" validate:"gte=0,lte=10"`

	InvalidMessage     string `koanf:"invalid_message"`
	UnavailableMessage string `koanf:"unavailable_message"`
}

//
// Database section
//

// Database holds the DSN for the SQL backend.
//
// Keep the password portion in Vault (`vault:secret/adept#db_dsn`) so
// credentials stay out of flat files and git history.
type Database struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"gte=0"`
}

//
// Form section
//

// Form configures CSRF and submit timing.
type Form struct {
	CSRFKey    string        `koanf:"csrf_key"` // base64, ≥ 32 bytes; empty = random per boot
	MaxAge     time.Duration `koanf:"max_age"  validate:"gte=0"`
	MinFill    time.Duration `koanf:"min_fill" validate:"gte=0"`
	FormsDir   string        `koanf:"forms_dir"` // optional YAML override directory
	SignupURL  string        `koanf:"signup_url" validate:"required"`
	SuccessURL string        `koanf:"success_url"` // empty renders the welcome page
}

//
// Log section
//

// Log configures the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// View section
//

// View is the styling hook: an extra CSS class for the card and an
// optional directory whose templates override the embedded ones.
type View struct {
	ThemeDir   string `koanf:"theme_dir"`
	ThemeClass string `koanf:"theme_class"`
	CacheSize  int    `koanf:"cache_size" validate:"gte=1"`
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // ADEPT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Auth     Auth     `koanf:"auth"`
	Database Database `koanf:"database"`
	Form     Form     `koanf:"form"`
	Log      Log      `koanf:"log"`
	View     View     `koanf:"view"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"-"`
}

// Defaults returns the baseline every layer overrides.
func Defaults() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:   ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Auth: Auth{
			Backend:       "stub",
			StubDelay:     1500 * time.Millisecond,
			StubUsername:  "testuser",
			StubPassword:  "password123",
			RemoteTimeout: 5 * time.Second,
			RemoteRetries: 2,
		},
		Database: Database{MaxOpenConns: 15, MaxIdleConns: 5},
		Form: Form{
			MaxAge:    2 * time.Hour,
			SignupURL: "/signup",
		},
		Log:  Log{Dir: "logs", Level: "info"},
		View: View{CacheSize: 256},
	}
}
