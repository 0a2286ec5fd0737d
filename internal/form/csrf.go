// internal/form/csrf.go
//
// Adept – Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Adept pages embed a hidden `csrf_token` input generated at render time.
//   The server verifies this token on POST to ensure the request originated
//   from a form it rendered.  The token is stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.  Doubles as the form-instance ID, so two
//      posts of the same rendered form share a nonce.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC – keyed with the process secret.  Verifies authenticity.
//
//   No server-side sessions are required, keeping the system cache-friendly
//   and multi-instance safe as long as every instance shares the key.
//
// Workflow
//   •  NewTokens(key, maxAge) → *Tokens.  Empty key generates a random one.
//   •  Generate()            → token string for the renderer.
//   •  Verify(tok)           → form-instance ID, or ErrTokenInvalid /
//                               ErrTokenExpired.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"
)

const (
	nonceBytes    = 16
	tokenBytes    = nonceBytes + 8 + sha256.Size // nonce + ts + sig
	DefaultMaxAge = 2 * time.Hour
	maxClockSkew  = time.Minute
	minKeyBytes   = 32
)

var (
	ErrTokenInvalid = errors.New("csrf token invalid")
	ErrTokenExpired = errors.New("csrf token expired")
	ErrKeyTooShort  = errors.New("csrf key must be at least 32 bytes")
)

// Tokens issues and verifies CSRF tokens under one secret.
type Tokens struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewTokens returns a Tokens keyed by key.  When key is empty a random key
// is generated; tokens then stop verifying after a restart.  maxAge ≤ 0
// selects DefaultMaxAge.
func NewTokens(key []byte, maxAge time.Duration) (*Tokens, error) {
	if len(key) == 0 {
		key = make([]byte, minKeyBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	} else if len(key) < minKeyBytes {
		return nil, ErrKeyTooShort
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Tokens{key: key, maxAge: maxAge, now: time.Now}, nil
}

// DecodeKey parses a base64url (raw or padded) or standard base64 key.
func DecodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding, base64.RawStdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("csrf key is not valid base64")
}

// Generate creates a new token.  Call once per form render.
func (t *Tokens) Generate() (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(t.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, t.sign(nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify checks signature and age.  On success it returns the hex nonce,
// which identifies the rendered form instance.
func (t *Tokens) Verify(tok string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return "", ErrTokenInvalid
	}

	nonce := raw[:nonceBytes]
	tsBytes := raw[nonceBytes : nonceBytes+8]
	sig := raw[nonceBytes+8:]

	if !hmac.Equal(sig, t.sign(nonce, tsBytes)) {
		return "", ErrTokenInvalid
	}

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := t.now()
	if now.Sub(issued) > t.maxAge || issued.Sub(now) > maxClockSkew {
		return "", ErrTokenExpired
	}
	return hex.EncodeToString(nonce), nil
}

func (t *Tokens) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, t.key)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
