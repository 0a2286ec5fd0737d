// internal/form/submit.go
//
// Adept – Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body and runs the
//   form-level checks.  HandleSubmit provides that convenience so component
//   code stays terse and only deals with its own fields.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Submission is a post that passed the form-level checks.
type Submission struct {
	InstanceID string     // CSRF nonce; identical for re-posts of one render
	Values     url.Values // r.PostForm
}

// HandleSubmit parses r and verifies CSRF and timing.  On a refused post it
// returns a *RejectError (check with IsRejected).  Other errors are system
// failures.
func HandleSubmit(r *http.Request, tokens *Tokens, policy TimingPolicy) (*Submission, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	id, err := CheckPosted(r.PostForm, tokens, policy, time.Now())
	if err != nil {
		return nil, err
	}
	return &Submission{InstanceID: id, Values: r.PostForm}, nil
}

// IsRejected reports whether err came from a failed form-level check.
func IsRejected(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}

// RejectMessage returns the user-facing text of a *RejectError, or "".
func RejectMessage(err error) string {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}
