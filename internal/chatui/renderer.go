// Package chatui renders a duet conversation in a terminal.
package chatui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"

	"github.com/apresai/duet/internal/dialogue"
)

const maxPhaseStep = 4

var (
	mikeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	mileyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)
)

// Renderer prints turns with colour and a status line on a TTY, or plain
// lines otherwise.
type Renderer struct {
	out     io.Writer
	isTTY   bool
	width   int
	start   time.Time
	pending bool // a status line is on screen
}

// NewRenderer creates a renderer that writes to out.
// It auto-detects TTY mode and terminal width.
func NewRenderer(out *os.File) *Renderer {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())

	width := 80
	if tty {
		if w, _, err := term.GetSize(out.Fd()); err == nil && w > 0 {
			width = w
		}
	}
	return newRenderer(out, tty, width)
}

func newRenderer(out io.Writer, tty bool, width int) *Renderer {
	return &Renderer{out: out, isTTY: tty, width: width, start: time.Now()}
}

// Waiting shows a transient status line until the next output.
func (r *Renderer) Waiting(msg string) {
	r.start = time.Now()
	if !r.isTTY {
		return
	}
	r.clearStatus()
	fmt.Fprint(r.out, dimStyle.Render("  "+msg))
	r.pending = true
}

// Turn prints one utterance, wrapped to the terminal width.
func (r *Renderer) Turn(speaker, text string) {
	r.clearStatus()

	label := speaker + ":"
	if r.isTTY {
		label = speakerStyle(speaker).Render(label)
	}
	indent := strings.Repeat(" ", len(speaker)+4)
	body := ansi.Wordwrap(text, r.textWidth(len(indent)), "")
	body = strings.ReplaceAll(body, "\n", "\n"+indent)
	fmt.Fprintf(r.out, "  %s %s\n", label, body)
}

// Phase prints a one-line summary of where the dialogue is: a bar for the
// article walk-through, the phase name and how long the turn took.
func (r *Renderer) Phase(step int) {
	r.clearStatus()
	pct := float64(step) / maxPhaseStep
	line := fmt.Sprintf("  %s step %d, %s  %s",
		renderBar(pct, r.barWidth()),
		step,
		dialogue.PhaseFor(step),
		formatElapsed(time.Since(r.start)),
	)
	if r.isTTY {
		line = dimStyle.Render(line)
	}
	fmt.Fprintln(r.out, line)
}

// Info prints a dim informational line.
func (r *Renderer) Info(format string, args ...any) {
	r.clearStatus()
	line := "  " + fmt.Sprintf(format, args...)
	if r.isTTY {
		line = dimStyle.Render(line)
	}
	fmt.Fprintln(r.out, line)
}

// Error prints err and keeps the conversation going.
func (r *Renderer) Error(err error) {
	r.clearStatus()
	line := fmt.Sprintf("  Error: %v", err)
	if r.isTTY {
		line = errorStyle.Render(line)
	}
	fmt.Fprintln(r.out, line)
}

func (r *Renderer) clearStatus() {
	if !r.pending {
		return
	}
	fmt.Fprint(r.out, "\r\033[2K")
	r.pending = false
}

func speakerStyle(speaker string) lipgloss.Style {
	switch speaker {
	case dialogue.Mike.Name:
		return mikeStyle
	case dialogue.Miley.Name:
		return mileyStyle
	default:
		return userStyle
	}
}

func (r *Renderer) textWidth(indent int) int {
	w := r.width - indent - 2
	if w < 20 {
		w = 20
	}
	return w
}

// barWidth returns the width available for the bar, leaving room for the
// step, phase name and elapsed time.
func (r *Renderer) barWidth() int {
	w := r.width - 50
	if w < 10 {
		w = 10
	}
	if w > 30 {
		w = 30
	}
	return w
}

// renderBar draws a [####....] style bar of the given width.
func renderBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", empty) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	mins := total / 60
	secs := total % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}
