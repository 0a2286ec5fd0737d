// internal/tui/model.go
//
// Adept – Login: terminal form.
//
// Context
//   A bubbletea rendition of the login card.  The Model owns one
//   login.Controller and mirrors it the same way the web page does: key
//   presses become Set calls, Enter becomes Submit, and View draws from the
//   controller's State.
//
// Keys
//   •  Tab / Shift+Tab / ↑ / ↓   switch field
//   •  Enter                     submit
//   •  Esc / Ctrl+C              quit (cancels an in-flight submission)
//
// Workflow
//   •  Invalid input is submitted synchronously; the controller rejects it
//      without calling the authenticator and the field errors appear at
//      once.
//   •  Valid input is submitted from a tea.Cmd so the spinner keeps
//      ticking while the authenticator runs.
//   •  On success the model records the welcome line and quits.
//
//------------------------------------------------------------------------------

package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yanizio/adept-login/internal/login"
)

// Labels shared with the web card.
const (
	Title       = "Log in"
	SubmitLabel = "Log in"
	BusyLabel   = "Logging in..."
)

// submitResultMsg carries the outcome of an async Submit.
type submitResultMsg struct {
	sess login.Session
	err  error
}

// Options configures a Model.
type Options struct {
	SignupURL string
	OnSuccess func(login.Credentials)
	Ctx       context.Context // parent of every submission; nil means Background
}

// Model is the bubbletea model for the login form.
type Model struct {
	ctl    *login.Controller
	fields []login.Field
	inputs []textinput.Model
	focus  int

	spin    spinner.Model
	pending bool

	welcome   string
	quitting  bool
	signupURL string
	ctx       context.Context
	styles    styles
}

// New builds a Model around a fresh controller for auth.
func New(auth login.Authenticator, opts Options, ctlOpts ...login.Option) Model {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if opts.OnSuccess != nil {
		ctlOpts = append(ctlOpts, login.OnSuccess(opts.OnSuccess))
	}

	user := textinput.New()
	user.Placeholder = "Username"
	user.Prompt = ""
	user.CharLimit = 128
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "Password"
	pass.Prompt = ""
	pass.CharLimit = 256
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return Model{
		ctl:       login.New(auth, ctlOpts...),
		fields:    []login.Field{login.FieldUsername, login.FieldPassword},
		inputs:    []textinput.Model{user, pass},
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		signupURL: opts.SignupURL,
		ctx:       opts.Ctx,
		styles:    defaultStyles(),
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Welcome returns the success line, or "" if login has not succeeded.
func (m Model) Welcome() string { return m.welcome }

// Controller exposes the underlying controller.
func (m Model) Controller() *login.Controller { return m.ctl }

// Update handles keys, spinner ticks, and submission results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.ctl.Close()
			m.quitting = true
			return m, tea.Quit
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		case "enter":
			return m.submit()
		}
		if m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		_ = m.ctl.Set(m.fields[m.focus], m.inputs[m.focus].Value())
		return m, cmd

	case submitResultMsg:
		m.pending = false
		if msg.err == nil {
			m.welcome = "Welcome, " + m.inputs[0].Value() + "! Login successful."
			m.quitting = true
			return m, tea.Quit
		}
		if errors.Is(msg.err, login.ErrClosed) {
			return m, nil
		}
		// Move focus to the first field with an error so the user can fix it.
		st := m.ctl.State()
		for i, f := range m.fields {
			if _, bad := st.Errors[f]; bad {
				return m, m.setFocus(i)
			}
		}
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// submit validates up front; only valid input goes async.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	creds := login.Credentials{Username: m.inputs[0].Value(), Password: m.inputs[1].Value()}

	if !m.ctl.Schema().Validate(creds).Valid() {
		_, err := m.ctl.Submit(m.ctx)
		return m.Update(submitResultMsg{err: err})
	}

	m.pending = true
	ctl, ctx := m.ctl, m.ctx
	run := func() tea.Msg {
		sess, err := ctl.Submit(ctx)
		return submitResultMsg{sess: sess, err: err}
	}
	return m, tea.Batch(run, m.spin.Tick)
}

// setFocus moves focus, wrapping at both ends.
func (m *Model) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	m.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == m.focus {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}
