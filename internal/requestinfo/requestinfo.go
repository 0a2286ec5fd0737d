//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, IP + geolocation, and timestamp).  Login
//  attempts are logged with these fields so an operator can tell a
//  scripted burst from a person mistyping a password.  The structs are
//  inert; they contain no handles or large buffers, so they are safe to
//  log or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties.
type UA struct {
	Browser     string // "Chrome", "Firefox", "Safari", etc.
	Version     string // "124.0.6367"
	OS          string // "MacOSX", "Windows", "Android", "iOS", etc.
	OSVersion   string // "14.5", "11", "10"
	Device      string // "Desktop", "Phone", "Tablet", "TV", ...
	Platform    string // "Mac", "Windows", "Linux", "iPad", "iPhone", ...
	IsBot       bool
	PrimaryLang string // First tag from Accept-Language ("en", "es", ...)
}

// Geo holds IP-based geolocation hints.
// These are best-effort and may be empty if the DB has no match.
type Geo struct {
	IP         net.IP
	CountryISO string // "US", "CA", "FR", ...
	City       string // "Chicago", "Paris", ...
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

// cityReader is the slice of *geoip2.Reader we use.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// Service owns the optional GeoLite2 handle.  A Service with no reader
// still parses UA and IP; Geo then carries only the address.
type Service struct {
	geo cityReader
}

// New opens the GeoLite2-City database at dbPath.  An empty path yields a
// Service without geolocation.
func New(dbPath string) (*Service, error) {
	if dbPath == "" {
		return &Service{}, nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	return &Service{geo: r}, nil
}

// Close releases the GeoLite2 handle, if any.
func (s *Service) Close() error {
	if s.geo == nil {
		return nil
	}
	return s.geo.Close()
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{}

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// WithInfo stores info in ctx.  Enrich calls it; tests may too.
func WithInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(uaHeader, acceptLang string) UA {
	u := uasurfer.Parse(uaHeader)

	return UA{
		Browser:     u.Browser.Name.StringTrimPrefix(),
		Version:     trimVersion(u.Browser.Version),
		OS:          u.OS.Name.StringTrimPrefix(),
		OSVersion:   trimVersion(u.OS.Version),
		Device:      deviceTypeToString(u.DeviceType),
		Platform:    u.OS.Platform.StringTrimPrefix(),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// trimVersion builds "major.minor.patch" and drops trailing zero parts.
func trimVersion(v uasurfer.Version) string {
	parts := []string{strconv.Itoa(v.Major), strconv.Itoa(v.Minor), strconv.Itoa(v.Patch)}
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// deviceTypeToString maps uasurfer.DeviceType to a user-friendly string.
func deviceTypeToString(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceConsole:
		return "Console"
	case uasurfer.DeviceWearable:
		return "Wearable"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}

// lookupGeo returns best-effort Geo data.
func (s *Service) lookupGeo(ip net.IP) Geo {
	if s.geo == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := s.geo.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
