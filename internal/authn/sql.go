// internal/authn/sql.go
//
// SQL-backed authenticator.
//
// Context
// -------
// Accounts live in the Adept database:
//
//	user (id PK, username UNIQUE, password_hash, disabled_at NULL)
//
// `password_hash` is a bcrypt hash.  A lookup miss still runs one bcrypt
// comparison against a fixed dummy hash so response time does not reveal
// whether a username exists.
//
// Notes
// -----
// • Query uses `?` placeholders (MySQL / MariaDB driver).
// • Oxford commas, two spaces after periods.
package authn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/adept-login/internal/login"
)

const userByUsername = `SELECT id, username, password_hash
                          FROM user
                         WHERE username = ? AND disabled_at IS NULL
                         LIMIT 1`

var (
	dummyOnce sync.Once
	dummyHash []byte
)

func dummy() []byte {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("adept-dummy-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}

var _ login.Authenticator = (*SQL)(nil)

// SQL verifies credentials against the user table.
type SQL struct {
	DB *sqlx.DB
}

type userRow struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Hash     string `db:"password_hash"`
}

// Authenticate looks the user up and compares the bcrypt hash.
func (s *SQL) Authenticate(ctx context.Context, c login.Credentials) (login.Session, error) {
	var row userRow
	err := s.DB.GetContext(ctx, &row, userByUsername, c.Username)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummy(), []byte(c.Password))
		return login.Session{}, login.ErrInvalidCredentials
	}
	if err != nil {
		return login.Session{}, fmt.Errorf("authn: user lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.Hash), []byte(c.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return login.Session{}, login.ErrInvalidCredentials
		}
		return login.Session{}, fmt.Errorf("authn: compare hash: %w", err)
	}

	return login.Session{
		UserID:   strconv.FormatInt(row.ID, 10),
		Username: row.Username,
	}, nil
}
