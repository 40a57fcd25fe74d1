package ui

import (
	"bytes"
	"os"
	"testing"
)

func TestContentHeight(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 3},
	}
	for _, tt := range tests {
		if got := contentHeight(tt.content); got != tt.want {
			t.Errorf("contentHeight(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestGetPagerCommand(t *testing.T) {
	t.Setenv("DUET_PAGER", "")
	t.Setenv("PAGER", "more")
	if got := getPagerCommand(); got != "more" {
		t.Errorf("getPagerCommand() = %q, want more", got)
	}
	t.Setenv("DUET_PAGER", "most -s")
	if got := getPagerCommand(); got != "most -s" {
		t.Errorf("getPagerCommand() = %q, want DUET_PAGER value", got)
	}
	t.Setenv("DUET_PAGER", "")
	t.Setenv("PAGER", "")
	if got := getPagerCommand(); got != "less" {
		t.Errorf("getPagerCommand() = %q, want less", got)
	}
}

func TestToPager_NonTerminalWritesDirectly(t *testing.T) {
	var buf bytes.Buffer
	if err := ToPager(&buf, "a\nb\n", PagerOptions{}); err != nil {
		t.Fatalf("ToPager: %v", err)
	}
	if buf.String() != "a\nb\n" {
		t.Errorf("wrote %q", buf.String())
	}
}

func TestPagerTTY_Disabled(t *testing.T) {
	if _, ok := pagerTTY(os.Stdout, PagerOptions{NoPager: true}); ok {
		t.Error("pager used despite NoPager")
	}
	t.Setenv("DUET_NO_PAGER", "1")
	if _, ok := pagerTTY(os.Stdout, PagerOptions{}); ok {
		t.Error("pager used despite DUET_NO_PAGER")
	}
}
