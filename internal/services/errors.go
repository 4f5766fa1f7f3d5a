package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
	ErrExternalTool  = errors.New("external tool error")
	ErrNoOp          = errors.New("nothing to do")
	ErrSerialization = errors.New("serialization error")
	ErrEmit          = errors.New("progress emit failure")
	ErrConfiguration = errors.New("configuration error")
)

// Kind labels a failure for logs and the run ledger.
type Kind string

const (
	KindNone          Kind = ""
	KindNotFound      Kind = "not_found"
	KindTransientIO   Kind = "transient_io"
	KindExternalTool  Kind = "external_tool"
	KindNoOp          Kind = "no_op"
	KindSerialization Kind = "serialization"
	KindEmit          Kind = "emit"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto the failure taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoOp):
		return KindNoOp
	case errors.Is(err, ErrEmit):
		return KindEmit
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	case errors.Is(err, ErrSerialization):
		return KindSerialization
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTransient):
		return KindTransientIO
	default:
		return KindUnknown
	}
}

// Recoverable reports whether the pipeline absorbs the failure instead of
// aborting the run.
func Recoverable(err error) bool {
	switch Classify(err) {
	case KindNoOp, KindExternalTool:
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
