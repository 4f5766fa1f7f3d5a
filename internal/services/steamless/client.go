package steamless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"autocrack/internal/fileutil"
	"autocrack/internal/guard"
	"autocrack/internal/logging"
	"autocrack/internal/services"
)

// UnpackedSuffix is appended to the executable path by --unpacked-name.
const UnpackedSuffix = ".unpacked.exe"

// Flags precede the executable path on every invocation.
var Flags = []string{"--quiet", "--keep-bind-section", "--unpacked-name", "--all-plugins"}

// ErrToolMissing indicates the Steamless CLI (or its launcher) is absent.
var ErrToolMissing = fmt.Errorf("%w: steamless cli", services.ErrNotFound)

// ExitError reports an unsuccessful Steamless run. It is recoverable: most
// executables simply carry no wrapper. Code is -1 when the process timed out
// or could not be started.
type ExitError struct {
	Exe  string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("steamless failed for %s: %v", e.Exe, e.Err)
	}
	return fmt.Sprintf("steamless exited with code %d for %s", e.Code, e.Exe)
}

// Unwrap exposes the external tool marker and the process error.
func (e *ExitError) Unwrap() []error {
	return []error{services.ErrExternalTool, e.Err}
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLauncher runs the tool through an interpreter such as mono or wine.
func WithLauncher(launcher string) Option {
	return func(c *Client) {
		c.launcher = strings.TrimSpace(launcher)
	}
}

// WithTimeout bounds each invocation. Zero waits indefinitely.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client wraps Steamless CLI interactions.
type Client struct {
	tool     string
	launcher string
	timeout  time.Duration
	exec     Executor
	logger   *slog.Logger
}

// New constructs a Steamless client for the tool at path.
func New(tool string, opts ...Option) (*Client, error) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return nil, errors.New("steamless tool path required")
	}
	client := &Client{
		tool: tool,
		exec: commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "steamless")
	return client, nil
}

// Tool returns the configured tool path.
func (c *Client) Tool() string {
	return c.tool
}

// Command returns the binary and arguments used to unpack exe.
func (c *Client) Command(exe string) (string, []string) {
	args := append(append([]string(nil), Flags...), exe)
	if c.launcher == "" {
		return c.tool, args
	}
	return c.launcher, append([]string{c.tool}, args...)
}

// Unpack runs Steamless against exe. A non-zero exit yields *ExitError.
func (c *Client) Unpack(ctx context.Context, exe string) error {
	if !fileutil.Exists(c.tool) {
		return fmt.Errorf("%w: %s", ErrToolMissing, c.tool)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger).With(logging.String("exe", exe))
	binary, args := c.Command(exe)
	logger.Debug("running steamless", logging.String("binary", binary), logging.Any("args", args))

	err := c.exec.Run(runCtx, binary, args, func(line string) {
		if line = strings.TrimSpace(line); line != "" {
			logger.Debug("steamless output", logging.String("line", line))
		}
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: launcher %s: %w", ErrToolMissing, binary, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Exe: exe, Code: exitErr.ExitCode(), Err: err}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("run steamless on %s: %w", exe, ctx.Err())
	}
	if runCtx.Err() != nil {
		return &ExitError{Exe: exe, Code: -1, Err: fmt.Errorf("timed out after %s: %w", c.timeout, runCtx.Err())}
	}
	// The tool exists but did not start (not executable, wrong format).
	return &ExitError{Exe: exe, Code: -1, Err: err}
}

// Reconciliation describes what Reconcile found beside an executable.
type Reconciliation string

const (
	// NoWrapper means Steamless produced no unpacked artifact.
	NoWrapper Reconciliation = "no_wrapper"
	// Unpacked means the original moved to its backup and the unpacked file took its place.
	Unpacked Reconciliation = "unpacked"
	// UnpackedBackupKept means an earlier backup existed, so the original was deleted.
	UnpackedBackupKept Reconciliation = "unpacked_backup_kept"
)

// UnpackedPath returns the artifact Steamless writes for exe.
func UnpackedPath(exe string) string {
	return exe + UnpackedSuffix
}

// Reconcile moves the unpacked artifact over exe, preserving the first
// original as the .svrn backup. On success exactly one file sits at exe.
func Reconcile(exe string) (Reconciliation, error) {
	unpacked := UnpackedPath(exe)
	if !fileutil.Exists(unpacked) {
		return NoWrapper, nil
	}

	outcome := Unpacked
	backup := guard.BackupPath(exe)
	if fileutil.Exists(backup) {
		outcome = UnpackedBackupKept
		if err := os.Remove(exe); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove original %s: %w", exe, err)
		}
	} else if err := os.Rename(exe, backup); err != nil {
		return "", fmt.Errorf("move original %s to backup: %w", exe, err)
	}

	if err := os.Rename(unpacked, exe); err != nil {
		return "", fmt.Errorf("move unpacked %s into place: %w", unpacked, err)
	}
	return outcome, nil
}
