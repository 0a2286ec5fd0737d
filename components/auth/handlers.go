// components/auth/handlers.go
//
// GET and POST handlers for /login.
//
// Status codes
//   200  form rendered, or login succeeded (welcome page)
//   303  login succeeded and SuccessURL is set
//   400  post refused by CSRF or timing checks (form re-rendered)
//   401  authenticator rejected the credentials
//   422  field validation failed
//   503  authenticator unreachable
//   500  anything else; logged, generic body
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"html/template"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yanizio/adept-login/internal/form"
	"github.com/yanizio/adept-login/internal/login"
	"github.com/yanizio/adept-login/internal/metrics"
	"github.com/yanizio/adept-login/internal/requestinfo"
)

// loginPage is the data handed to templates/login.html.
type loginPage struct {
	Title       string
	SubmitLabel string
	BusyLabel   string
	Fields      template.HTML
	FormError   string
	ServerError string
	Submitting  bool
	SignupURL   string
}

// welcomePage is the data handed to templates/welcome.html.
type welcomePage struct {
	Title    string
	Username string
}

// result is what one submission produces; shared by joined posts.
type result struct {
	state login.State
	sess  login.Session
	err   error
}

/*──────────────────────────── GET ──────────────────────────────────────────*/

func (c *Component) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	c.renderForm(w, r, http.StatusOK, login.State{}, "")
}

/*──────────────────────────── POST ─────────────────────────────────────────*/

func (c *Component) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	sub, err := form.HandleSubmit(r, c.deps.Tokens, c.deps.Timing)
	if err != nil {
		var re *form.RejectError
		if errors.As(err, &re) {
			metrics.FormRejectsTotal.WithLabelValues(re.Reason).Inc()
			c.attemptLog(r, "", "form_rejected", "reason", re.Reason)
			st := login.State{Values: login.Credentials{Username: r.PostForm.Get(string(login.FieldUsername))}}
			c.renderForm(w, r, http.StatusBadRequest, st, re.Message)
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	creds := login.Credentials{
		Username: sub.Values.Get(string(login.FieldUsername)),
		Password: sub.Values.Get(string(login.FieldPassword)),
	}

	res, joined := c.submit(sub.InstanceID, creds)
	if joined {
		metrics.DuplicateSubmitsTotal.Inc()
	}

	var (
		ve *login.ValidationError
		ae *login.AuthenticationError
	)
	switch {
	case res.err == nil:
		c.attemptLog(r, creds.Username, "success", "joined", joined)
		if c.deps.SuccessURL != "" {
			http.Redirect(w, r, c.deps.SuccessURL, http.StatusSeeOther)
			return
		}
		c.render(w, r, http.StatusOK, "welcome", welcomePage{Title: "Welcome", Username: creds.Username})

	case errors.As(res.err, &ve):
		c.attemptLog(r, creds.Username, "invalid")
		c.renderForm(w, r, http.StatusUnprocessableEntity, res.state, "")

	case errors.As(res.err, &ae):
		status, outcome := http.StatusServiceUnavailable, "unavailable"
		if ae.Rejected() {
			status, outcome = http.StatusUnauthorized, "rejected"
		}
		c.attemptLog(r, creds.Username, outcome, "joined", joined)
		c.renderForm(w, r, status, res.state, "")

	default:
		c.log.Errorw("login submit failed", "req_id", chimw.GetReqID(r.Context()), "err", res.err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// submit runs one controller for this form instance.  A post identical to
// one already in flight (same instance, same credentials) waits for and
// shares that result; joined reports whether this caller was such a
// duplicate.
func (c *Component) submit(instanceID string, creds login.Credentials) (res result, joined bool) {
	leader := false
	v, _, _ := c.flights.Do(flightKey(instanceID, creds), func() (any, error) {
		leader = true

		ctl := login.New(c.deps.Auth,
			login.WithSchema(c.schema),
			login.WithLogger(c.log),
			login.WithMessages(c.deps.InvalidMessage, c.deps.UnavailableMessage),
			login.OnSuccess(c.deps.OnSuccess),
		)
		defer ctl.Close()
		_ = ctl.SetUsername(creds.Username)
		_ = ctl.SetPassword(creds.Password)

		// Detached from the request so a client that drops its connection
		// does not fail the joined duplicates; bounded by SubmitTimeout and
		// cancelled by Close.
		ctx, cancel := context.WithTimeout(c.base, c.deps.SubmitTimeout)
		defer cancel()

		sess, err := ctl.Submit(ctx)
		return result{state: ctl.State(), sess: sess, err: err}, nil
	})
	return v.(result), !leader
}

// flightKey joins only byte-identical posts of one rendered form, so a
// re-post with a different password never inherits another's outcome.
func flightKey(instanceID string, creds login.Credentials) string {
	h := sha256.New()
	h.Write([]byte(creds.Username))
	h.Write([]byte{0})
	h.Write([]byte(creds.Password))
	return instanceID + ":" + hex.EncodeToString(h.Sum(nil))
}

/*──────────────────────────── rendering ────────────────────────────────────*/

// renderForm draws the login card from a controller State.  Every render
// carries a fresh token, so a re-post after an error is a new instance.
func (c *Component) renderForm(w http.ResponseWriter, r *http.Request, status int, st login.State, formErr string) {
	tok, err := c.deps.Tokens.Generate()
	if err != nil {
		c.fail(w, r, err)
		return
	}

	errs := make(map[string]string, len(st.Errors))
	for f, msg := range st.Errors {
		errs[string(f)] = msg
	}
	fields, err := form.Render(c.fd, form.RenderOptions{
		Prefill: map[string]string{string(login.FieldUsername): st.Values.Username},
		Errors:  errs,
		Token:   tok,
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}

	c.render(w, r, status, "login", loginPage{
		Title:       c.fd.Title,
		SubmitLabel: c.fd.SubmitLabel,
		BusyLabel:   c.fd.BusyLabel,
		Fields:      fields,
		FormError:   formErr,
		ServerError: st.ServerError,
		Submitting:  st.Submitting,
		SignupURL:   c.deps.SignupURL,
	})
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := c.view.Render(w, status, name, data); err != nil {
		c.fail(w, r, err)
	}
}

func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	c.log.Errorw("render failed", "req_id", chimw.GetReqID(r.Context()), "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// attemptLog records one login post with request metadata.  The password
// is never passed here.
func (c *Component) attemptLog(r *http.Request, username, outcome string, kv ...any) {
	fields := []any{
		"req_id", chimw.GetReqID(r.Context()),
		"username", username,
		"outcome", outcome,
	}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		fields = append(fields,
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"bot", info.UA.IsBot,
		)
	}
	c.log.Infow("login attempt", append(fields, kv...)...)
}
