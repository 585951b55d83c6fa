// Package theme holds the terminal styles of the chat front end.
package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mathguide/internal/hint"
)

// Palette
var (
	Primary = lipgloss.Color("#6366F1") // Indigo
	Info    = lipgloss.Color("#0EA5E9") // Sky
	Warning = lipgloss.Color("#F59E0B") // Amber
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC")
	TextDim = lipgloss.Color("#94A3B8")
	Border  = lipgloss.Color("#334155")
)

var (
	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)

	Prompt = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Problem = lipgloss.NewStyle().
		Foreground(Text).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(Primary).
		PaddingLeft(1)

	Hint = lipgloss.NewStyle().
		Foreground(Info).
		Italic(true)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Flag = lipgloss.NewStyle().
		Foreground(Error)

	Nudge = lipgloss.NewStyle().
		Foreground(Warning)
)

// ForAction picks the style that renders the tutor's reply to a decision.
func ForAction(a hint.Action) lipgloss.Style {
	switch a {
	case hint.ActionPresentProblem:
		return Problem
	case hint.ActionEmitHint:
		return Hint
	case hint.ActionConfirmCorrect:
		return Correct
	case hint.ActionFlagError:
		return Flag
	case hint.ActionRequestNewAttempt:
		return Nudge
	default:
		return Body
	}
}
