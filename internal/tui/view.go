// internal/tui/view.go
//
// Rendering for the terminal login card.

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	card    lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	focused lipgloss.Style
	err     lipgloss.Style
	button  lipgloss.Style
	busy    lipgloss.Style
	help    lipgloss.Style
	success lipgloss.Style
}

func defaultStyles() styles {
	accent := lipgloss.AdaptiveColor{Light: "#1A56DB", Dark: "#76A9FA"}
	red := lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}
	return styles{
		card:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 3).Width(44),
		title:   lipgloss.NewStyle().Bold(true).MarginBottom(1),
		label:   lipgloss.NewStyle().Faint(true),
		focused: lipgloss.NewStyle().Foreground(accent).Bold(true),
		err:     lipgloss.NewStyle().Foreground(red),
		button:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(accent).Padding(0, 2),
		busy:    lipgloss.NewStyle().Foreground(accent),
		help:    lipgloss.NewStyle().Faint(true).MarginTop(1),
		success: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"}),
	}
}

// View draws the card from the controller's State.
func (m Model) View() string {
	if m.welcome != "" {
		return m.styles.success.Render(m.welcome) + "\n"
	}
	if m.quitting {
		return ""
	}

	st := m.ctl.State()
	var b strings.Builder

	b.WriteString(m.styles.title.Render(Title))
	b.WriteString("\n")

	labels := []string{"Username", "Password"}
	for i, f := range m.fields {
		label := m.styles.label.Render(labels[i])
		if i == m.focus {
			label = m.styles.focused.Render(labels[i])
		}
		b.WriteString(label + "\n")
		b.WriteString(m.inputs[i].View() + "\n")
		if msg := st.Errors[f]; msg != "" {
			b.WriteString(m.styles.err.Render(msg))
		}
		b.WriteString("\n")
	}

	if st.ServerError != "" {
		b.WriteString(m.styles.err.Render(st.ServerError) + "\n\n")
	}

	if m.pending {
		b.WriteString(m.styles.busy.Render(m.spin.View() + " " + BusyLabel))
	} else {
		b.WriteString(m.styles.button.Render(SubmitLabel))
	}
	b.WriteString("\n")

	if m.signupURL != "" {
		b.WriteString(m.styles.label.Render("or, sign up at " + m.signupURL))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.help.Render("tab switch field • enter submit • esc quit"))

	return m.styles.card.Render(b.String()) + "\n"
}
