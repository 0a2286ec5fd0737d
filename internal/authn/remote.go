// internal/authn/remote.go
//
// HTTP authenticator for an external identity service.
//
// Wire contract
// -------------
//
//	POST <endpoint>
//	Content-Type: application/json
//	{"username": "...", "password": "..."}
//
//	200  {"user_id": "...", "username": "...", "token": "...", "expires_at": "RFC3339"}
//	401  rejected credentials  (403 treated the same)
//	*    anything else is a service failure
//
// Transport is hashicorp/go-retryablehttp: connection errors and 5xx are
// retried with backoff up to RetryMax; 4xx never are.  Retries are safe
// because a login check has no side effects the user can observe.
package authn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yanizio/adept-login/internal/login"
)

var _ login.Authenticator = (*Remote)(nil)

// maxBody caps how much of a response we read.
const maxBody = 64 << 10

// Remote posts credentials to Endpoint.
type Remote struct {
	Endpoint string
	client   *retryablehttp.Client
}

// RemoteOptions tunes the HTTP client.
type RemoteOptions struct {
	Timeout  time.Duration // per attempt
	RetryMax int
	Log      *zap.SugaredLogger
}

// NewRemote builds a Remote with a retrying client.
func NewRemote(endpoint string, opts RemoteOptions) *Remote {
	cli := retryablehttp.NewClient()
	cli.RetryMax = opts.RetryMax
	cli.RetryWaitMin = 100 * time.Millisecond
	cli.RetryWaitMax = 2 * time.Second
	if opts.Timeout > 0 {
		cli.HTTPClient.Timeout = opts.Timeout
	}
	cli.Logger = nil
	if opts.Log != nil {
		cli.Logger = zapLeveled{opts.Log}
	}
	return &Remote{Endpoint: endpoint, client: cli}
}

// Authenticate performs one logical login call (with transport retries).
func (r *Remote) Authenticate(ctx context.Context, c login.Credentials) (login.Session, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return login.Session{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return login.Session{}, fmt.Errorf("authn: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return login.Session{}, fmt.Errorf("authn: remote call: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var s login.Session
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&s); err != nil {
			return login.Session{}, fmt.Errorf("authn: decode session: %w", err)
		}
		if s.Username == "" {
			s.Username = c.Username
		}
		return s, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return login.Session{}, login.ErrInvalidCredentials
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return login.Session{}, fmt.Errorf("authn: remote status %d", resp.StatusCode)
	}
}

// zapLeveled adapts a sugared logger to retryablehttp.LeveledLogger.
type zapLeveled struct{ s *zap.SugaredLogger }

func (z zapLeveled) Error(msg string, kv ...interface{}) { z.s.Errorw(msg, kv...) }
func (z zapLeveled) Info(msg string, kv ...interface{})  { z.s.Infow(msg, kv...) }
func (z zapLeveled) Debug(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z zapLeveled) Warn(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
