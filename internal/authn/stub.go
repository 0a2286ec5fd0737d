// Package authn holds the concrete authenticators behind login.Authenticator.
//
//   - Stub    – demo backend: fixed delay, one hard-coded account.
//   - SQL     – MySQL user table with bcrypt hashes.
//   - Remote  – JSON over HTTP to an external identity service.
//
// Every backend returns login.ErrInvalidCredentials (possibly wrapped) for
// a wrong username or password and any other error when the check itself
// failed.
package authn

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/yanizio/adept-login/internal/login"
)

// Stub defaults.
const (
	StubDelay    = 1500 * time.Millisecond
	StubUsername = "testuser"
	StubPassword = "password123"
)

var _ login.Authenticator = (*Stub)(nil)

// Stub accepts exactly one username/password pair after Delay.  It stands
// in for a real identity service during development.
type Stub struct {
	Delay    time.Duration
	Username string
	Password string
}

// NewStub returns a Stub with the stock demo account.
func NewStub() *Stub {
	return &Stub{Delay: StubDelay, Username: StubUsername, Password: StubPassword}
}

// Authenticate waits Delay (or until ctx ends) and compares credentials.
func (s *Stub) Authenticate(ctx context.Context, c login.Credentials) (login.Session, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return login.Session{}, ctx.Err()
		case <-t.C:
		}
	}

	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(s.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(c.Password), []byte(s.Password)) == 1
	if !userOK || !passOK {
		return login.Session{}, login.ErrInvalidCredentials
	}
	return login.Session{UserID: "stub-1", Username: c.Username}, nil
}
