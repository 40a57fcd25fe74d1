package cmd

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantReport bool
	}{
		{"success", nil, exitOK, false},
		{"plain error", errors.New("boom"), exitFailure, true},
		{"unreachable", NewSilentExit(exitUnreachable), exitUnreachable, false},
		{"wrapped silent", fmt.Errorf("status: %w", NewSilentExit(exitUnreachable)), exitUnreachable, false},
		{"silent zero", NewSilentExit(0), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, report := exitCode(tt.err)
			if code != tt.wantCode || report != tt.wantReport {
				t.Errorf("exitCode(%v) = (%d, %v), want (%d, %v)", tt.err, code, report, tt.wantCode, tt.wantReport)
			}
		})
	}
}

func TestSilentExitError_Message(t *testing.T) {
	if got := NewSilentExit(exitUnreachable).Error(); got != "exit 2" {
		t.Errorf("Error() = %q, want %q", got, "exit 2")
	}
	if _, ok := IsSilentExit(nil); ok {
		t.Error("IsSilentExit(nil) should be false")
	}
}
