// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ForceHTTPS returns a chi-style middleware.  When enabled and the request
// is plain HTTP on a non-local host, it issues a 308 Permanent Redirect to
// the HTTPS version of the same URL.  Otherwise it calls the next handler
// unchanged.  X-Forwarded-Proto is honoured for TLS-terminating proxies.
func ForceHTTPS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Already HTTPS or dev host → continue.
			if r.TLS != nil ||
				strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") ||
				isLocal(stripPort(r.Host)) {
				next.ServeHTTP(w, r)
				return
			}

			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
		})
	}
}

func isLocal(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return h
}
