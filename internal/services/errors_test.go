package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"autocrack/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "unpack", "steamless", "failed", base)
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
	for _, fragment := range []string{"unpack", "steamless", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want services.Kind
	}{
		{nil, services.KindNone},
		{services.Wrap(services.ErrNotFound, "deps", "", "missing", nil), services.KindNotFound},
		{fmt.Errorf("copy: %w", services.ErrTransient), services.KindTransientIO},
		{services.Wrap(services.ErrExternalTool, "unpack", "", "", nil), services.KindExternalTool},
		{services.ErrNoOp, services.KindNoOp},
		{services.Wrap(services.ErrSerialization, "archive", "", "", nil), services.KindSerialization},
		{services.Wrap(services.ErrEmit, "progress", "", "", nil), services.KindEmit},
		{services.ErrConfiguration, services.KindConfiguration},
		{errors.New("other"), services.KindUnknown},
	}
	for _, tt := range tests {
		if got := services.Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecoverable(t *testing.T) {
	if !services.Recoverable(services.Wrap(services.ErrExternalTool, "unpack", "", "", nil)) {
		t.Fatal("expected tool failures to be recoverable")
	}
	if !services.Recoverable(services.ErrNoOp) {
		t.Fatal("expected no-op outcomes to be recoverable")
	}
	if services.Recoverable(services.Wrap(services.ErrTransient, "replace", "", "", nil)) {
		t.Fatal("expected exhausted transient failures to be fatal")
	}
}
