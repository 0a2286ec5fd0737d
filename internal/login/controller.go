// internal/login/controller.go
//
// Adept – Login: form controller.
//
// Context
//   A Controller owns the state of one mounted login form: field values,
//   per-field errors, the submitting flag, and the non-field server error.
//   Presentation code (the web handler, the terminal UI) pushes edits in
//   with Set and asks for Submit; it reads back a State snapshot to draw.
//
// State machine
//
//	Idle ──Submit(valid)──▶ Submitting ──ok──▶ Idle      (onSuccess fires)
//	  ▲                         │
//	  └──────Submit(valid)── Errored ◀──fail──┘
//
//   •  Submit with invalid values never leaves Idle/Errored and never calls
//      the authenticator.
//   •  Submit while Submitting returns ErrSubmitInFlight.  One flight per
//      controller.
//   •  Set clears the edited field's error only.
//   •  Close cancels the in-flight call.  A late result is dropped and
//      onSuccess does not fire.
//
// Locking
//   The mutex guards state only.  The authenticator runs unlocked so State
//   stays readable (for a spinner) while the call is pending.  onSuccess is
//   invoked unlocked as well, so callbacks may read State.
//
//------------------------------------------------------------------------------

package login

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adept-login/internal/metrics"
)

// Default user-facing server messages.
const (
	DefaultInvalidMessage     = "Invalid username or password."
	DefaultUnavailableMessage = "We could not reach the sign-in service.  Please try again."
)

// Status is the controller's coarse state.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusErrored:
		return "errored"
	}
	return "unknown"
}

// State is a point-in-time copy of the form.  Mutating it has no effect on
// the controller.
type State struct {
	Values      Credentials
	Errors      map[Field]string
	Submitting  bool
	ServerError string
	Status      Status
}

// binding ties one input to its value, validator, and current error.
type binding struct {
	value    string
	validate func(string) *FieldError
	err      *FieldError
}

// Controller drives a single login form instance.  Create one per mounted
// form; it is safe for concurrent use.
type Controller struct {
	auth      Authenticator
	schema    *Schema
	onSuccess func(Credentials)
	log       *zap.SugaredLogger

	invalidMsg     string
	unavailableMsg string

	mu          sync.Mutex
	fields      map[Field]*binding
	order       []Field
	status      Status
	serverError string
	closed      bool
	cancel      context.CancelFunc // non-nil while a submission is in flight
}

// Option customises a Controller.
type Option func(*Controller)

// WithSchema replaces DefaultSchema.
func WithSchema(s *Schema) Option { return func(c *Controller) { c.schema = s } }

// OnSuccess registers the callback invoked once per successful submission.
func OnSuccess(fn func(Credentials)) Option { return func(c *Controller) { c.onSuccess = fn } }

// WithLogger sets the logger.  Defaults to zap.S().
func WithLogger(l *zap.SugaredLogger) Option { return func(c *Controller) { c.log = l } }

// WithMessages overrides the non-field error texts.  Empty strings keep the
// defaults.
func WithMessages(invalid, unavailable string) Option {
	return func(c *Controller) {
		if invalid != "" {
			c.invalidMsg = invalid
		}
		if unavailable != "" {
			c.unavailableMsg = unavailable
		}
	}
}

// New returns an Idle controller with empty fields.
func New(auth Authenticator, opts ...Option) *Controller {
	c := &Controller{
		auth:           auth,
		schema:         DefaultSchema(),
		invalidMsg:     DefaultInvalidMessage,
		unavailableMsg: DefaultUnavailableMessage,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.S()
	}
	c.bind()
	return c
}

// bind builds the explicit field map from the schema.
func (c *Controller) bind() {
	c.fields = make(map[Field]*binding)
	for _, r := range c.schema.Rules() {
		f := r.Field
		c.fields[f] = &binding{
			validate: func(v string) *FieldError { return c.schema.ValidateField(f, v) },
		}
		c.order = append(c.order, f)
	}
	// The credential fields always exist, even under a partial schema.
	for _, f := range []Field{FieldUsername, FieldPassword} {
		if _, ok := c.fields[f]; !ok {
			c.fields[f] = &binding{validate: func(string) *FieldError { return nil }}
			c.order = append(c.order, f)
		}
	}
}

/*──────────────────────────── edits ────────────────────────────────────────*/

// Set stores a new value for field and clears that field's error.
func (c *Controller) Set(field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	b, ok := c.fields[field]
	if !ok {
		return ErrUnknownField
	}
	b.value = value
	b.err = nil
	return nil
}

// SetUsername is shorthand for Set(FieldUsername, v).
func (c *Controller) SetUsername(v string) error { return c.Set(FieldUsername, v) }

// SetPassword is shorthand for Set(FieldPassword, v).
func (c *Controller) SetPassword(v string) error { return c.Set(FieldPassword, v) }

// Check validates one field in place (e.g. on blur) and returns its error.
func (c *Controller) Check(field Field) (*FieldError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.fields[field]
	if !ok {
		return nil, ErrUnknownField
	}
	b.err = b.validate(b.value)
	return b.err, nil
}

/*──────────────────────────── submit ───────────────────────────────────────*/

// Submit validates the current values and, when they pass, calls the
// authenticator.  It blocks until the call returns or ctx ends.
//
// Errors: *ValidationError, *AuthenticationError, ErrSubmitInFlight,
// ErrClosed.
func (c *Controller) Submit(ctx context.Context) (Session, error) {
	creds, runCtx, err := c.begin(ctx)
	if err != nil {
		return Session{}, err
	}

	start := time.Now()
	sess, aerr := c.auth.Authenticate(runCtx, creds)
	metrics.AuthenticateSeconds.Observe(time.Since(start).Seconds())

	return c.finish(creds, sess, aerr)
}

// begin performs the Idle → Submitting transition under the lock.
func (c *Controller) begin(ctx context.Context) (Credentials, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Credentials{}, nil, ErrClosed
	}
	if c.status == StatusSubmitting {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeBusy).Inc()
		return Credentials{}, nil, ErrSubmitInFlight
	}

	creds := Credentials{
		Username: c.fields[FieldUsername].value,
		Password: c.fields[FieldPassword].value,
	}

	var failed map[Field]*FieldError
	for _, f := range c.order {
		b := c.fields[f]
		b.err = b.validate(b.value)
		if b.err != nil {
			if failed == nil {
				failed = make(map[Field]*FieldError)
			}
			failed[f] = b.err
			metrics.ValidationFailuresTotal.WithLabelValues(string(f), b.err.Kind.String()).Inc()
		}
	}
	if failed != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return Credentials{}, nil, &ValidationError{Fields: failed}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.serverError = ""
	c.status = StatusSubmitting
	return creds, runCtx, nil
}

// finish applies the authenticator's outcome.
func (c *Controller) finish(creds Credentials, sess Session, aerr error) (Session, error) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.closed {
		c.mu.Unlock()
		c.log.Debugw("login result discarded after close", "username", creds.Username)
		return Session{}, ErrClosed
	}

	if aerr != nil {
		ae := &AuthenticationError{Err: aerr, Message: c.unavailableMsg}
		outcome := metrics.OutcomeUnavailable
		if ae.Rejected() {
			ae.Message = c.invalidMsg
			outcome = metrics.OutcomeRejected
		}
		c.status = StatusErrored
		c.serverError = ae.Message
		c.mu.Unlock()

		metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
		if outcome == metrics.OutcomeRejected {
			c.log.Infow("login rejected", "username", creds.Username)
		} else {
			c.log.Warnw("login unavailable", "username", creds.Username, "err", aerr)
		}
		return Session{}, ae
	}

	c.status = StatusIdle
	cb := c.onSuccess
	c.mu.Unlock()

	metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.log.Infow("login succeeded", "username", creds.Username, "user_id", sess.UserID)
	if cb != nil {
		cb(creds)
	}
	return sess, nil
}

/*──────────────────────────── lifecycle ────────────────────────────────────*/

// Close unmounts the form.  Any in-flight call is cancelled and its result
// discarded.  Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// State returns a snapshot for rendering.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Values: Credentials{
			Username: c.fields[FieldUsername].value,
			Password: c.fields[FieldPassword].value,
		},
		Submitting:  c.status == StatusSubmitting,
		ServerError: c.serverError,
		Status:      c.status,
	}
	for _, f := range c.order {
		if b := c.fields[f]; b.err != nil {
			if st.Errors == nil {
				st.Errors = make(map[Field]string)
			}
			st.Errors[f] = b.err.Message()
		}
	}
	return st
}

// Schema returns the controller's schema.
func (c *Controller) Schema() *Schema { return c.schema }
