// internal/login/authenticate.go
//
// The authenticate capability.
//
// The controller never knows how credentials are checked.  It calls an
// Authenticator and waits.  Implementations live in internal/authn (stub,
// SQL, remote HTTP); tests plug in AuthenticatorFunc doubles.
//
// Contract
//   • Return ErrInvalidCredentials (or wrap it) when the user got it wrong.
//   • Return any other error when the check could not be made.
//   • Honour ctx; the controller cancels it when the form is closed.

package login

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned by an Authenticator that rejected the
// username/password pair.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Session is what a successful authentication yields.  Adept does not
// persist it; callers decide what to do with it.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Authenticator verifies credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, c Credentials) (Session, error)
}

// AuthenticatorFunc adapts a plain function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, c Credentials) (Session, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, c Credentials) (Session, error) {
	return f(ctx, c)
}
