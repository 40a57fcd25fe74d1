package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xucongyong/duet/internal/ui"
)

var (
	// "Worker Control:" and the other group titles from root.go.
	groupHeaderRE   = regexp.MustCompile(`(?m)^[A-Z][A-Za-z &]+:\s*$`)
	sectionHeaderRE = regexp.MustCompile(`(?m)^(Examples|Flags|Usage|Global Flags|Aliases|Available Commands):`)
	// "  schedule    Show the daily run window"
	commandLineRE = regexp.MustCompile(`(?m)^(  )([a-z][a-z0-9]*(?:-[a-z0-9]+)*)(\s{2,})(.*)$`)
	// "  -n, --tail int   Lines to show (default 50)"
	flagLineRE = regexp.MustCompile(`(?m)^(\s+)(-\w,\s+--[\w-]+|--[\w-]+)(\s+)(string|int|duration|bool|float)?(\s*.*)$`)
	defaultRE  = regexp.MustCompile(`\(default[^)]*\)`)
	quotedRE   = regexp.MustCompile(`'([a-z][a-z0-9 -]+)'`)
)

func colorizedHelpFunc(cmd *cobra.Command, args []string) {
	var b strings.Builder
	switch {
	case cmd.Long != "":
		b.WriteString(cmd.Long + "\n\n")
	case cmd.Short != "":
		b.WriteString(cmd.Short + "\n\n")
	}
	b.WriteString(cmd.UsageString())
	fmt.Fprint(cmd.OutOrStdout(), colorizeHelp(b.String()))
}

// colorizeHelp accents section headers and styles command and flag names.
func colorizeHelp(help string) string {
	out := groupHeaderRE.ReplaceAllStringFunc(help, func(m string) string {
		return ui.RenderAccent(strings.TrimSpace(m))
	})
	out = sectionHeaderRE.ReplaceAllStringFunc(out, ui.RenderAccent)

	out = commandLineRE.ReplaceAllStringFunc(out, func(m string) string {
		p := commandLineRE.FindStringSubmatch(m)
		desc := quotedRE.ReplaceAllStringFunc(p[4], func(q string) string {
			return "'" + ui.RenderCommand(q[1:len(q)-1]) + "'"
		})
		desc = strings.Replace(desc, "(start here)", ui.RenderAccent("(start here)"), 1)
		return p[1] + ui.RenderCommand(p[2]) + p[3] + desc
	})

	return flagLineRE.ReplaceAllStringFunc(out, func(m string) string {
		p := flagLineRE.FindStringSubmatch(m)
		typ := p[4]
		if typ != "" {
			typ = ui.RenderMuted(typ)
		}
		desc := defaultRE.ReplaceAllStringFunc(p[5], ui.RenderMuted)
		return p[1] + ui.RenderCommand(p[2]) + p[3] + typ + desc
	})
}

func init() {
	rootCmd.SetHelpFunc(colorizedHelpFunc)
}
