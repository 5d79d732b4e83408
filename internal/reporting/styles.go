package reporting

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#5FD700"}
	colorFailure = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	colorRunning = lipgloss.AdaptiveColor{Light: "#875F00", Dark: "#FFD75F"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#A8A8A8"}
	colorLink    = lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#5FAFFF"}
)

// styles holds the line styles of one output stream.
type styles struct {
	plain   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	running lipgloss.Style
	muted   lipgloss.Style
	link    lipgloss.Style
}

// newStyles builds styles for w. Writers that are not terminals get no
// escape sequences.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		plain:   r.NewStyle(),
		success: r.NewStyle().Foreground(colorSuccess),
		failure: r.NewStyle().Foreground(colorFailure),
		running: r.NewStyle().Foreground(colorRunning),
		muted:   r.NewStyle().Foreground(colorMuted),
		link:    r.NewStyle().Foreground(colorLink),
	}
}
