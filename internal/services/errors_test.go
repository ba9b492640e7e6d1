package services_test

import (
	"errors"
	"strings"
	"testing"

	"motionmux/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transform", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transform", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestFailureKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrExternalTool, "transform", "mux", "", errors.New("exit 1")), "transform"},
		{services.Wrap(services.ErrFilesystem, "dispatch", "copy", "", errors.New("denied")), "filesystem"},
		{services.Wrap(services.ErrLedger, "ledger", "record", "", errors.New("disk full")), "ledger"},
		{services.Wrap(services.ErrConfiguration, "cli", "flags", "conflict", nil), "configuration"},
		{errors.New("plain"), "unknown"},
	}
	for _, tt := range tests {
		if got := services.FailureKind(tt.err); got != tt.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
