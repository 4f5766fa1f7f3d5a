package steamless

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
)

type commandExecutor struct{}

// Run executes binary with stdout and stderr merged into one line stream.
func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	out := &lineWriter{emit: onOutput}
	cmd.Stdout = out
	cmd.Stderr = out
	err := cmd.Run()
	out.flush()
	return err
}

// lineWriter splits written bytes into lines. Steamless ends lines with
// CRLF, so a trailing carriage return is dropped.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.line(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.line(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) line(raw []byte) {
	if w.emit != nil {
		w.emit(strings.TrimRight(string(raw), "\r"))
	}
}
