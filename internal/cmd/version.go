package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/xucongyong/duet/internal/cmd.Commit=..."
// and so on. Commit and Branch fall back to the VCS stamp Go embeds.
var (
	Version = "0.1.0"
	Build   = "dev"
	Commit  = ""
	Branch  = ""
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: GroupDiag,
	Short:   "Print version information",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		commit := firstNonEmpty(Commit, buildSetting("vcs.revision"))
		branch := firstNonEmpty(Branch, buildSetting("vcs.branch"))
		fmt.Fprintln(cmd.OutOrStdout(), versionString(commit, branch))
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionString renders "duet version 0.1.0 (dev: main@0123456789ab)",
// leaving out whatever revision information is unknown.
func versionString(commit, branch string) string {
	rev := shortCommit(commit)
	if rev != "" && branch != "" {
		rev = branch + "@" + rev
	}
	if rev == "" {
		return fmt.Sprintf("duet version %s (%s)", Version, Build)
	}
	return fmt.Sprintf("duet version %s (%s: %s)", Version, Build, rev)
}

// shortCommit returns the first 12 characters of a hash. Run IDs use it too.
func shortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func buildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return strings.TrimSpace(s.Value)
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
