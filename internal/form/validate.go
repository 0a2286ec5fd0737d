// internal/form/validate.go
//
// Adept – Forms subsystem: form-level submission checks.
//
// Context
//   Before any field is looked at, a post must prove it came from a form we
//   rendered, and recently.  The renderer writes a CSRF token and a render
//   timestamp into hidden inputs; CheckPosted verifies both.  Field rules
//   belong to the consuming component (see internal/login) and run only
//   after these checks pass.
//
// Workflow
//   •  CSRF token verified first.  Its nonce becomes the form-instance ID.
//   •  Render timestamp checked against TimingPolicy.  Min catches scripted
//      posts that never rendered the page; Max catches stale tabs.
//   •  Failures are *RejectError values carrying a machine reason and a
//      user-facing message so the page can re-render instead of 500.
//
// Style
//   Comments follow Adept's guide: full sentences, two space spacing, Oxford
//   comma, and IDs like “CSRF.”
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/url"
	"strconv"
	"time"
)

// Hidden input names written by the renderer.
const (
	CSRFField     = "csrf_token"
	RenderTSField = "render_ts"
)

// Reject reasons, used as metric labels.
const (
	ReasonCSRF     = "csrf"
	ReasonExpired  = "expired"
	ReasonTooFast  = "too_fast"
	ReasonBadStamp = "bad_timestamp"
)

// RejectError describes a post refused before field validation.
type RejectError struct {
	Reason  string
	Message string
}

func (e *RejectError) Error() string { return "form rejected: " + e.Reason }

// TimingPolicy bounds the delay between render and submit.  Zero disables
// the respective bound.
type TimingPolicy struct {
	Min time.Duration
	Max time.Duration
}

// CheckPosted verifies CSRF and timing for posted values and returns the
// form-instance ID.
func CheckPosted(posted url.Values, tokens *Tokens, policy TimingPolicy, now time.Time) (string, error) {
	id, err := tokens.Verify(posted.Get(CSRFField))
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return "", &RejectError{ReasonExpired, "Form expired.  Please reload and submit again."}
		}
		return "", &RejectError{ReasonCSRF, "Security token invalid.  Please refresh and try again."}
	}
	if err := checkTiming(posted.Get(RenderTSField), policy, now); err != nil {
		return "", err
	}
	return id, nil
}

// checkTiming ensures the form was not submitted suspiciously fast or too
// late.
func checkTiming(tsRaw string, p TimingPolicy, now time.Time) error {
	if p.Min == 0 && p.Max == 0 {
		return nil
	}
	if tsRaw == "" {
		return &RejectError{ReasonBadStamp, "Timestamp missing.  Please reload the page."}
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return &RejectError{ReasonBadStamp, "Bad timestamp.  Please retry."}
	}
	delta := now.Sub(time.UnixMicro(ts))
	switch {
	case p.Min > 0 && delta < p.Min:
		return &RejectError{ReasonTooFast, "Form submitted too quickly.  Please enter the fields manually."}
	case p.Max > 0 && delta > p.Max:
		return &RejectError{ReasonExpired, "Form expired.  Please reload and submit again."}
	}
	return nil
}
