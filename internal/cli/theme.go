package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Title     lipgloss.Color
	Accent    lipgloss.Color
	Highlight lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Title:     lipgloss.Color("#5FAFD7"), // light blue
	Accent:    lipgloss.Color("#00D787"), // green
	Highlight: lipgloss.Color("#FFAF00"), // amber
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

// printer writes command output, styled only when the destination is a
// terminal and NO_COLOR is unset.
type printer struct {
	w      io.Writer
	styled bool
	theme  Theme
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, styled: isTerminal(w), theme: defaultTheme}
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) title(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(p.theme.Title).Bold(true), s)
}

func (p *printer) accent(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(p.theme.Accent), s)
}

func (p *printer) highlight(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(p.theme.Highlight).Bold(true), s)
}

func (p *printer) hint(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(p.theme.Hint).Italic(true), s)
}

func (p *printer) println(parts ...string) {
	_, _ = io.WriteString(p.w, strings.Join(parts, "")+"\n")
}

// cell fits s into exactly width display columns, truncating with an
// ellipsis. Wide runes count as two columns.
func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// rcell is cell aligned to the right.
func rcell(s string, width int) string {
	return runewidth.FillLeft(runewidth.Truncate(s, width, "…"), width)
}
