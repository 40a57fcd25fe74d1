package cmd

import (
	"errors"
	"strconv"
)

// Exit codes. Any other failure exits 1.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUnreachable = 2 // status could not reach the control panel
)

// SilentExitError ends the process with Code without printing anything.
// The command is expected to have written its own output already.
type SilentExitError struct {
	Code int
}

func (e *SilentExitError) Error() string {
	return "exit " + strconv.Itoa(e.Code)
}

// NewSilentExit creates a SilentExitError with the given exit code.
func NewSilentExit(code int) *SilentExitError {
	return &SilentExitError{Code: code}
}

// IsSilentExit reports whether err wraps a SilentExitError, and its code.
func IsSilentExit(err error) (int, bool) {
	var se *SilentExitError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// exitCode maps a command error to the process exit code and reports
// whether the error still needs printing.
func exitCode(err error) (code int, report bool) {
	if err == nil {
		return exitOK, false
	}
	if code, ok := IsSilentExit(err); ok {
		return code, false
	}
	return exitFailure, true
}
