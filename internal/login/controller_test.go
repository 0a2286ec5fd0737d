// internal/login/controller_test.go
//
// Unit-tests for the login controller state machine.
//
// Context
// -------
// countingAuth is a deterministic authenticator double: it accepts
// testuser/password123, rejects everything else, and counts calls.  Tests
// that need a pending call use blockingAuth, which parks until released or
// until its context is cancelled.
//
// Run: go test ./internal/login -v

package login

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/yanizio/adept-login/internal/metrics"
)

type countingAuth struct{ calls atomic.Int32 }

func (a *countingAuth) Authenticate(_ context.Context, c Credentials) (Session, error) {
	a.calls.Add(1)
	if c.Username == "testuser" && c.Password == "password123" {
		return Session{UserID: "1", Username: c.Username}, nil
	}
	return Session{}, ErrInvalidCredentials
}

type blockingAuth struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan error
}

func newBlockingAuth() *blockingAuth {
	return &blockingAuth{entered: make(chan struct{}, 4), release: make(chan error, 4)}
}

func (a *blockingAuth) Authenticate(ctx context.Context, c Credentials) (Session, error) {
	a.calls.Add(1)
	a.entered <- struct{}{}
	select {
	case err := <-a.release:
		if err != nil {
			return Session{}, err
		}
		return Session{Username: c.Username}, nil
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

func fill(t *testing.T, c *Controller, user, pass string) {
	t.Helper()
	if err := c.SetUsername(user); err != nil {
		t.Fatalf("SetUsername: %v", err)
	}
	if err := c.SetPassword(pass); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
}

func TestSubmitInvalidNeverAuthenticates(t *testing.T) {
	cases := []struct {
		user, pass string
		field      Field
		msg        string
	}{
		{"ab", "secret1", FieldUsername, "Username must be at least 3 characters."},
		{"", "secret1", FieldUsername, "Username is required."},
		{"testuser", "", FieldPassword, "Password is required."},
		{"testuser", "12345", FieldPassword, "Password must be at least 6 characters."},
	}
	for _, tc := range cases {
		auth := &countingAuth{}
		c := New(auth)
		fill(t, c, tc.user, tc.pass)

		_, err := c.Submit(context.Background())
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%q/%q: err = %v, want *ValidationError", tc.user, tc.pass, err)
		}
		if n := auth.calls.Load(); n != 0 {
			t.Fatalf("%q/%q: authenticate called %d times", tc.user, tc.pass, n)
		}
		st := c.State()
		if st.Errors[tc.field] != tc.msg {
			t.Fatalf("%q/%q: error = %q, want %q", tc.user, tc.pass, st.Errors[tc.field], tc.msg)
		}
		if st.Submitting || st.Status != StatusIdle {
			t.Fatalf("state after invalid submit = %+v", st)
		}
	}
}

func TestSubmitSuccessCallsBackOnce(t *testing.T) {
	auth := &countingAuth{}
	var got []Credentials
	c := New(auth, OnSuccess(func(cr Credentials) { got = append(got, cr) }))
	fill(t, c, "testuser", "password123")

	sess, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sess.Username != "testuser" {
		t.Fatalf("session = %+v", sess)
	}
	want := []Credentials{{Username: "testuser", Password: "password123"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("callback mismatch (-want +got):\n%s", diff)
	}
	st := c.State()
	if st.Submitting || st.ServerError != "" || st.Status != StatusIdle {
		t.Fatalf("state after success = %+v", st)
	}
}

func TestSubmitRejected(t *testing.T) {
	before := testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeRejected))

	called := false
	c := New(&countingAuth{}, OnSuccess(func(Credentials) { called = true }))
	fill(t, c, "testuser", "wrongpass")

	_, err := c.Submit(context.Background())
	var ae *AuthenticationError
	if !errors.As(err, &ae) || !ae.Rejected() {
		t.Fatalf("err = %v, want rejected *AuthenticationError", err)
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("errors.Is(err, ErrInvalidCredentials) = false")
	}
	st := c.State()
	if st.ServerError != "Invalid username or password." {
		t.Fatalf("server error = %q", st.ServerError)
	}
	if st.Submitting || st.Status != StatusErrored {
		t.Fatalf("state after reject = %+v", st)
	}
	if st.Errors != nil {
		t.Fatalf("field errors after reject = %v", st.Errors)
	}
	if called {
		t.Fatal("success callback fired on rejection")
	}

	after := testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeRejected))
	if after != before+1 {
		t.Fatalf("rejected counter %v → %v, want +1", before, after)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	auth := AuthenticatorFunc(func(context.Context, Credentials) (Session, error) {
		return Session{}, boom
	})
	c := New(auth, WithMessages("", "Service down."))
	fill(t, c, "testuser", "password123")

	_, err := c.Submit(context.Background())
	var ae *AuthenticationError
	if !errors.As(err, &ae) || ae.Rejected() {
		t.Fatalf("err = %v, want unavailable *AuthenticationError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("cause not wrapped")
	}
	if got := c.State().ServerError; got != "Service down." {
		t.Fatalf("server error = %q", got)
	}
}

func TestSubmitWhileSubmitting(t *testing.T) {
	auth := newBlockingAuth()
	c := New(auth)
	fill(t, c, "testuser", "password123")

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-auth.entered

	if st := c.State(); !st.Submitting || st.Status != StatusSubmitting {
		t.Fatalf("state during flight = %+v", st)
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("second Submit err = %v, want ErrSubmitInFlight", err)
	}

	auth.release <- nil
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if n := auth.calls.Load(); n != 1 {
		t.Fatalf("authenticate called %d times, want 1", n)
	}
}

func TestResubmitClearsStaleError(t *testing.T) {
	var seen []State
	var c *Controller
	var n int
	auth := AuthenticatorFunc(func(context.Context, Credentials) (Session, error) {
		seen = append(seen, c.State())
		n++
		if n == 1 {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, nil
	})
	c = New(auth)
	fill(t, c, "testuser", "password123")

	if _, err := c.Submit(context.Background()); err == nil {
		t.Fatal("first Submit succeeded, want rejection")
	}
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	if n != 2 {
		t.Fatalf("authenticate called %d times, want 2", n)
	}
	if seen[1].ServerError != "" || !seen[1].Submitting {
		t.Fatalf("state during second flight = %+v", seen[1])
	}
	if st := c.State(); st.ServerError != "" || st.Status != StatusIdle {
		t.Fatalf("final state = %+v", st)
	}
}

func TestSetClearsOnlyEditedField(t *testing.T) {
	c := New(&countingAuth{})
	if _, err := c.Submit(context.Background()); err == nil {
		t.Fatal("empty Submit succeeded")
	}
	if got := len(c.State().Errors); got != 2 {
		t.Fatalf("errors = %d, want 2", got)
	}

	_ = c.SetUsername("a")
	st := c.State()
	if _, ok := st.Errors[FieldUsername]; ok {
		t.Fatal("username error not cleared by edit")
	}
	if st.Errors[FieldPassword] != "Password is required." {
		t.Fatalf("password error = %q", st.Errors[FieldPassword])
	}

	fe, err := c.Check(FieldUsername)
	if err != nil || fe == nil || fe.Kind != KindTooShort {
		t.Fatalf("Check = %v, %v", fe, err)
	}

	if err := c.Set("email", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Set unknown err = %v", err)
	}
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	auth := newBlockingAuth()
	var called atomic.Bool
	c := New(auth, OnSuccess(func(Credentials) { called.Store(true) }))
	fill(t, c, "testuser", "password123")

	var wg sync.WaitGroup
	var err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = c.Submit(context.Background())
	}()
	<-auth.entered

	c.Close()
	wg.Wait()

	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit err = %v, want ErrClosed", err)
	}
	if called.Load() {
		t.Fatal("success callback fired after close")
	}
	if err := c.SetUsername("x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set after close err = %v", err)
	}
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit after close err = %v", err)
	}
}

func TestCallerContextCancel(t *testing.T) {
	auth := newBlockingAuth()
	c := New(auth)
	fill(t, c, "testuser", "password123")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Submit(ctx)
	var ae *AuthenticationError
	if !errors.As(err, &ae) || ae.Rejected() {
		t.Fatalf("err = %v, want unavailable *AuthenticationError", err)
	}
	if st := c.State(); st.Submitting || st.Status != StatusErrored {
		t.Fatalf("state after timeout = %+v", st)
	}
}
