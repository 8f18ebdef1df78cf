package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether stdout gets ANSI colors.
func ShouldUseColor() bool {
	return colorEnabled(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

// colorEnabled applies the NO_COLOR / CLICOLOR conventions (no-color.org,
// bixense.com/clicolors) on top of TTY detection. A dumb terminal gets no
// color unless forced.
func colorEnabled(getenv func(string) string, tty bool) bool {
	switch {
	case getenv("NO_COLOR") != "":
		return false
	case strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1":
		return true
	case strings.TrimSpace(getenv("CLICOLOR")) == "0", getenv("TERM") == "dumb":
		return false
	}
	return tty
}
