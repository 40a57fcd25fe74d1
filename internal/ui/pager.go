package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions configures ToPager.
type PagerOptions struct {
	NoPager bool // --no-pager
}

// pagerTTY returns w as a terminal file when paging is allowed.
func pagerTTY(w io.Writer, opts PagerOptions) (*os.File, bool) {
	if opts.NoPager || os.Getenv("DUET_NO_PAGER") != "" {
		return nil, false
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	return f, true
}

// getPagerCommand returns DUET_PAGER, then PAGER, then "less".
func getPagerCommand() string {
	for _, env := range []string{"DUET_PAGER", "PAGER"} {
		if pager := os.Getenv(env); pager != "" {
			return pager
		}
	}
	return "less"
}

func contentHeight(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// ToPager writes content to w, through a pager when w is a terminal and
// content is taller than the screen.
func ToPager(w io.Writer, content string, opts PagerOptions) error {
	f, ok := pagerTTY(w, opts)
	if !ok {
		_, err := fmt.Fprint(w, content)
		return err
	}

	// Leave a row for the prompt.
	if _, height, err := term.GetSize(int(f.Fd())); err == nil && contentHeight(content) < height {
		_, err := fmt.Fprint(f, content)
		return err
	}

	parts := strings.Fields(getPagerCommand())
	if len(parts) == 0 {
		_, err := fmt.Fprint(f, content)
		return err
	}

	cmd := exec.Command(parts[0], parts[1:]...) //nolint:gosec // G204: pager comes from the user's environment
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = f
	cmd.Stderr = os.Stderr
	// -R keeps colors, -F exits when the content fits, -X leaves the screen alone.
	if os.Getenv("LESS") == "" {
		cmd.Env = append(os.Environ(), "LESS=-RFX")
	}
	return cmd.Run()
}
