package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/ui"
)

var (
	// Unindented lines ending in ":" ("Monitoring:", "Flags:").
	reGroupHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`)

	// "  watch       Show the live ..." rows.
	reCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// "--log-level string", "--interval duration".
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|duration|strings)\b`)

	reDefault = regexp.MustCompile(`\(default "?[^)"]*"?\)`)
)

// colorizedHelpFunc renders cobra's usage text, colored when stdout is a
// color-capable terminal.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)

		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	s = reGroupHeader.ReplaceAllStringFunc(s, func(m string) string {
		return ui.RenderAccent(strings.TrimSpace(m))
	})
	s = reCommand.ReplaceAllStringFunc(s, func(m string) string {
		p := reCommand.FindStringSubmatch(m)
		return p[1] + ui.RenderCommand(p[2]) + p[3]
	})
	s = reFlagType.ReplaceAllStringFunc(s, func(m string) string {
		p := reFlagType.FindStringSubmatch(m)
		return p[1] + ui.RenderMuted(p[2])
	})
	return reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
