package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"autocrack/internal/logging"
	"autocrack/internal/progress"
)

// newProgressReporter draws a progress bar on w when it is a terminal and
// otherwise logs sampled progress lines. The returned func finishes the
// display and must be called once the run returns.
func newProgressReporter(w io.Writer, logger *slog.Logger) (progress.Reporter, func()) {
	if isTerminal(w) {
		return newBarReporter(w)
	}
	return newLogReporter(logger), func() {}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newBarReporter(w io.Writer) (progress.Reporter, func()) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	reporter := progress.Func(func(_ context.Context, event progress.Event) error {
		bar.Describe(event.Message)
		return bar.Set(event.Percent)
	})
	return reporter, func() { _ = bar.Finish() }
}

// newLogReporter logs progress when the phase changes or the percentage
// crosses a 10% bucket. The phase is the message text before its colon.
func newLogReporter(logger *slog.Logger) progress.Reporter {
	logger = logging.NewComponentLogger(logger, "progress")
	sampler := logging.NewProgressSampler(10)
	return progress.Func(func(ctx context.Context, event progress.Event) error {
		phase, _, found := strings.Cut(event.Message, ":")
		if !found {
			phase = ""
		}
		if !sampler.ShouldLog(event.Percent, phase) {
			return nil
		}
		logger.InfoContext(ctx, event.Message,
			logging.String(logging.FieldEventType, "progress"),
			logging.Int("percent", event.Percent),
		)
		return nil
	})
}
