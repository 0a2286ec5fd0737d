// internal/server/server.go
//
// HTTP server helper with robust timeouts and graceful shutdown.
//
// Production hardening recommends:
//
//   • ReadTimeout   – abort slow-loris headers (10 s)
//   • WriteTimeout  – cap total response time (15 s); must exceed the
//                     slowest authenticate backend
//   • IdleTimeout   – close keep-alives on idle clients (60 s)
//
// Zero values in Timeouts fall back to those defaults.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Timeouts mirrors config.HTTP.
type Timeouts struct {
	Read, Write, Idle time.Duration
}

const shutdownGrace = 10 * time.Second

// New constructs an *http.Server with the given timeouts.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       orDefault(t.Read, 10*time.Second),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      orDefault(t.Write, 15*time.Second),
		IdleTimeout:       orDefault(t.Idle, 60*time.Second),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to ten seconds.  A clean shutdown returns nil.
func Run(ctx context.Context, srv *http.Server, log *zap.SugaredLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down", "grace", shutdownGrace)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
