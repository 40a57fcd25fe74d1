//go:build windows

package supervisor

import (
	"os"
	"os/exec"
)

// setSysProcAttr sets platform-specific process attributes.
// On Windows, no special attributes are needed.
func setSysProcAttr(cmd *exec.Cmd) {
	// No-op on Windows
}

// sendTermSignal sends a termination signal.
// On Windows, there's no SIGTERM - we use Kill() directly.
func sendTermSignal(p *os.Process) error {
	return p.Kill()
}

// sendKillSignal sends a kill signal.
// On Windows, Kill() is the only option.
func sendKillSignal(p *os.Process) error {
	return p.Kill()
}
