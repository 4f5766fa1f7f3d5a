// Package guard replaces files in a game directory while keeping one pristine
// copy of each original beside it.
//
// Backup protocol: the backup of "dir/name.ext" is "dir/name.svrn". A backup is
// taken only when the file on disk differs in size from the replacement, which
// marks it as a genuine original; an equal size means an earlier run already
// replaced it and the existing backup is left alone. Replacement is not
// transactional: a failure after the backup step leaves the backup in place as
// the recovery path.
package guard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autocrack/internal/fileutil"
	"autocrack/internal/logging"
	"autocrack/internal/services"
)

const (
	// BackupExt is the reserved extension for preserved originals.
	BackupExt = ".svrn"

	DefaultRetryBudget = 5
	DefaultDelay       = time.Second
)

// BackupPath returns the backup location for original.
func BackupPath(original string) string {
	return strings.TrimSuffix(original, filepath.Ext(original)) + BackupExt
}

// CopyFunc copies src over dst.
type CopyFunc func(src, dst string) error

// Record describes a backup taken during Replace.
type Record struct {
	Original string
	Backup   string
	Size     int64
	Digest   string
}

// Outcome reports what Replace did.
type Outcome struct {
	Original string
	// Backup is set when a pristine copy was taken.
	Backup          *Record
	AlreadyReplaced bool
	OriginalMissing bool
	// Attempts is the number of copies of the replacement that were tried.
	Attempts int
}

// RetryError reports a copy that kept failing after the whole retry budget.
type RetryError struct {
	Src      string
	Dst      string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("copy %s to %s failed after %d attempts: %v", e.Src, e.Dst, e.Attempts, e.Err)
}

// Unwrap exposes both the transient marker and the last copy error.
func (e *RetryError) Unwrap() []error {
	return []error{services.ErrTransient, e.Err}
}

// Replacer performs guarded replacements.
type Replacer struct {
	budget int
	delay  time.Duration
	copy   CopyFunc
	logger *slog.Logger
}

// Option configures a Replacer.
type Option func(*Replacer)

// WithRetryBudget sets how many extra attempts follow a failed copy.
func WithRetryBudget(n int) Option {
	return func(r *Replacer) {
		if n >= 0 {
			r.budget = n
		}
	}
}

// WithDelay sets the wait between attempts.
func WithDelay(d time.Duration) Option {
	return func(r *Replacer) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithCopyFunc overrides the file copy, primarily for tests.
func WithCopyFunc(fn CopyFunc) Option {
	return func(r *Replacer) {
		if fn != nil {
			r.copy = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replacer) {
		r.logger = logger
	}
}

// New constructs a Replacer with the default budget and delay.
func New(opts ...Option) *Replacer {
	r := &Replacer{
		budget: DefaultRetryBudget,
		delay:  DefaultDelay,
		copy:   fileutil.CopyFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "guard")
	return r
}

// Replace copies source over original following the backup protocol.
func (r *Replacer) Replace(ctx context.Context, original, source string) (Outcome, error) {
	outcome := Outcome{Original: original}

	sourceSize, ok, err := fileutil.Size(source)
	if err != nil {
		return outcome, fmt.Errorf("stat replacement %s: %w", source, err)
	}
	if !ok {
		return outcome, fmt.Errorf("%w: replacement %s", services.ErrNotFound, source)
	}

	originalSize, exists, err := fileutil.Size(original)
	if err != nil {
		return outcome, fmt.Errorf("stat original %s: %w", original, err)
	}

	logger := logging.WithContext(ctx, r.logger)
	switch {
	case !exists:
		outcome.OriginalMissing = true
		logger.Info("original absent, copying replacement without backup", logging.String("path", original))
	case originalSize == sourceSize:
		outcome.AlreadyReplaced = true
		logger.Info("original already replaced, keeping existing backup",
			logging.String("path", original),
			logging.Int64("size", originalSize),
		)
	default:
		record, err := r.backup(ctx, original, originalSize)
		if err != nil {
			return outcome, err
		}
		outcome.Backup = &record
	}

	attempts, err := r.retry(ctx, source, original)
	outcome.Attempts = attempts
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (r *Replacer) backup(ctx context.Context, original string, size int64) (Record, error) {
	backup := BackupPath(original)
	if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("remove stale backup %s: %w", backup, err)
	}
	if _, err := r.retry(ctx, original, backup); err != nil {
		return Record{}, fmt.Errorf("backup %s: %w", original, err)
	}
	digest, err := fileutil.Digest(backup)
	if err != nil {
		return Record{}, fmt.Errorf("digest backup %s: %w", backup, err)
	}
	logging.WithContext(ctx, r.logger).Info("original backed up",
		logging.String("path", original),
		logging.String("backup", backup),
		logging.String("digest", digest),
	)
	return Record{Original: original, Backup: backup, Size: size, Digest: digest}, nil
}

// retry attempts the copy once plus up to budget more times, waiting delay
// between attempts. It returns the number of attempts made.
func (r *Replacer) retry(ctx context.Context, src, dst string) (int, error) {
	logger := logging.WithContext(ctx, r.logger)
	for attempt := 1; ; attempt++ {
		err := r.copy(src, dst)
		if err == nil {
			if attempt > 1 {
				logger.Info("copy succeeded after retry",
					logging.String("dst", dst),
					logging.Int("attempt", attempt),
				)
			}
			return attempt, nil
		}
		if attempt > r.budget {
			return attempt, &RetryError{Src: src, Dst: dst, Attempts: attempt, Err: err}
		}
		logger.Debug("copy failed, retrying",
			logging.String("dst", dst),
			logging.Int("attempt", attempt),
			logging.Duration("delay", r.delay),
			logging.Error(err),
		)
		if err := wait(ctx, r.delay); err != nil {
			return attempt, fmt.Errorf("copy %s to %s interrupted after %d attempts: %w", src, dst, attempt, err)
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
