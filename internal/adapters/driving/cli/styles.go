package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette shared by every command.
var (
	colourPrimary   = lipgloss.Color("#7C3AED") // Purple
	colourSecondary = lipgloss.Color("#06B6D4") // Cyan
	colourMuted     = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess   = lipgloss.Color("#A6E3A1") // Green
	colourWarning   = lipgloss.Color("#F9E2AF") // Yellow
	colourError     = lipgloss.Color("#F38BA8") // Red
)

// styles renders command output. When the writer is not a terminal every
// method returns its input unchanged so piped output stays plain.
type styles struct {
	plain bool

	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func stylesFor(w io.Writer) *styles {
	return &styles{
		plain: !isTerminal(w),

		title:   lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		label:   lipgloss.NewStyle().Bold(true).Foreground(colourSecondary),
		muted:   lipgloss.NewStyle().Foreground(colourMuted),
		success: lipgloss.NewStyle().Foreground(colourSuccess),
		warning: lipgloss.NewStyle().Foreground(colourWarning),
		failure: lipgloss.NewStyle().Bold(true).Foreground(colourError),
	}
}

func (s *styles) render(style lipgloss.Style, text string) string {
	if s.plain {
		return text
	}
	return style.Render(text)
}

func (s *styles) Title(text string) string   { return s.render(s.title, text) }
func (s *styles) Label(text string) string   { return s.render(s.label, text) }
func (s *styles) Muted(text string) string   { return s.render(s.muted, text) }
func (s *styles) Success(text string) string { return s.render(s.success, text) }
func (s *styles) Warning(text string) string { return s.render(s.warning, text) }
func (s *styles) Failure(text string) string { return s.render(s.failure, text) }

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
