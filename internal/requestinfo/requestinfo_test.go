// internal/requestinfo/requestinfo_test.go
//
// Run: go test ./internal/requestinfo -v

package requestinfo

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type fakeCity struct{}

func (fakeCity) City(ip net.IP) (*geoip2.City, error) {
	if !ip.Equal(net.ParseIP("203.0.113.7")) {
		return nil, errors.New("no record")
	}
	var c geoip2.City
	c.Country.IsoCode = "FR"
	c.City.Names = map[string]string{"en": "Paris"}
	return &c, nil
}

func (fakeCity) Close() error { return nil }

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		xrip   string
		remote string
		want   string
	}{
		{"xff left-most", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.7"},
		{"xff garbage", "unknown, 198.51.100.4", "", "10.0.0.2:1234", "198.51.100.4"},
		{"real ip", "", "198.51.100.9", "10.0.0.2:1234", "198.51.100.9"},
		{"remote addr", "", "", "192.0.2.5:5555", "192.0.2.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/login", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xrip != "" {
				r.Header.Set("X-Real-Ip", tc.xrip)
			}
			if got := clientIP(r); !got.Equal(net.ParseIP(tc.want)) {
				t.Fatalf("clientIP = %v, want %s", got, tc.want)
			}
		})
	}
}

func TestEnrichAttachesInfo(t *testing.T) {
	s := &Service{geo: fakeCity{}}

	var got *RequestInfo
	h := s.Enrich(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.RemoteAddr = "203.0.113.7:4444"
	r.Header.Set("User-Agent", chromeMac)
	r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatal("RequestInfo missing from context")
	}
	if got.Geo.CountryISO != "FR" || got.Geo.City != "Paris" {
		t.Fatalf("geo = %+v", got.Geo)
	}
	if got.UA.Browser != "Chrome" || got.UA.Device != "Desktop" || got.UA.IsBot {
		t.Fatalf("ua = %+v", got.UA)
	}
	if got.UA.PrimaryLang != "en-gb" {
		t.Fatalf("lang = %q", got.UA.PrimaryLang)
	}
}

func TestNoGeoDatabase(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	ip := net.ParseIP("192.0.2.1")
	if g := s.lookupGeo(ip); !g.IP.Equal(ip) || g.CountryISO != "" {
		t.Fatalf("geo = %+v", g)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()) != nil {
		t.Fatal("FromContext without Enrich should be nil")
	}
}

func TestTrimVersion(t *testing.T) {
	cases := map[uasurfer.Version]string{
		{Major: 124}:                     "124",
		{Major: 10, Minor: 15, Patch: 7}: "10.15.7",
		{Major: 14, Minor: 5}:            "14.5",
		{}:                               "0",
	}
	for in, want := range cases {
		if got := trimVersion(in); got != want {
			t.Fatalf("trimVersion(%+v) = %q, want %q", in, got, want)
		}
	}
	if got := primaryLang("es;q=0.8"); got != "es" {
		t.Fatalf("primaryLang = %q", got)
	}
}
