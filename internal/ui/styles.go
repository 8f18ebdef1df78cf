package ui

import (
	"fmt"

	"github.com/alfredjeanlab/guardian/internal/model"
)

// ANSI256 color codes.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorWarning = 215 // amber
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderWarning returns s in the warning (amber) color.
func RenderWarning(s string) string { return paint(colorWarning, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// SeverityLabel is the badge text shown for a severity.
func SeverityLabel(sev model.Severity) string {
	if sev == model.SeverityWarning {
		return "보호 필요"
	}
	return "정상 통과"
}

// FormatEntry renders one log entry as a single terminal line:
// clock, badge, headline and (when it differs from the headline) the URL.
func FormatEntry(e model.LogEntry) string {
	badge := "[" + SeverityLabel(e.Severity) + "]"
	headline := e.Headline()
	if e.Severity == model.SeverityWarning {
		badge = RenderWarning(badge)
		headline = RenderWarning(headline)
	} else {
		badge = RenderAccent(badge)
	}

	line := RenderMuted(e.Clock()) + " " + badge + " " + headline
	if e.URL != e.Headline() {
		line += " " + RenderMuted(e.URL)
	}
	return line
}
