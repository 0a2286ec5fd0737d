// internal/middleware/accesslog.go
//
// One structured access-log line per request.  Runs after chi's RequestID
// so every line carries the request ID that handlers also log.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AccessLog logs method, path, status, bytes, and duration at INFO (5xx at
// WARN).  Query strings are omitted so form values never reach the log.
func AccessLog(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logf := log.Infow
			if status >= 500 {
				logf = log.Warnw
			}
			logf("http request",
				"req_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"dur_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
