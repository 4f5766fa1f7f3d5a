package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"autocrack/internal/fileutil"
	"autocrack/internal/guard"
	"autocrack/internal/ledger"
	"autocrack/internal/logging"
	"autocrack/internal/progress"
	"autocrack/internal/scanner"
	"autocrack/internal/services"
	"autocrack/internal/services/steamless"
)

const stageUnpack = "unpack"

// UnpackSummary counts the outcomes of the unpack phase.
type UnpackSummary struct {
	Disabled  bool
	Total     int
	Unpacked  int
	NoWrapper int
	Failed    int
}

// Line renders the summary line that precedes the library lines.
func (s UnpackSummary) Line() string {
	switch {
	case s.Disabled:
		return "Steamless skipped (disabled)"
	case s.Total == 0:
		return "Steamless found no executables"
	default:
		return fmt.Sprintf("Steamless processed %d executables: %d unpacked, %d without wrapper, %d failed",
			s.Total, s.Unpacked, s.NoWrapper, s.Failed)
	}
}

// Unpack runs only the unpack phase over every executable under gameDir,
// spreading it across the whole progress range.
func (p *Pipeline) Unpack(ctx context.Context, gameDir string, reporter progress.Reporter) (UnpackSummary, error) {
	if p.unpacker == nil {
		return UnpackSummary{Disabled: true}, services.Wrap(services.ErrConfiguration, stageUnpack, "", "unpacking is disabled", nil)
	}
	abs, err := resolveGameDir(gameDir)
	if err != nil {
		return UnpackSummary{}, services.Wrap(services.ErrConfiguration, stageUnpack, "", "resolve game directory", err)
	}
	scan, err := scanner.Scan(abs)
	if err != nil && !errors.Is(err, scanner.ErrNoTargetsFound) {
		return UnpackSummary{}, err
	}
	runID, err := p.beginRun(ctx, Request{GameDir: abs})
	if err != nil {
		return UnpackSummary{}, err
	}
	ctx = services.WithRunID(ctx, runID)
	stream := progress.NewStream(reporter)
	budget := progress.NewBudget(0, 100, len(scan.Executables))
	summary, err := p.unpackPhase(ctx, runID, abs, scan.Executables, stream, &budget)
	if err == nil {
		err = stream.Emit(ctx, 100, "Done")
	}
	p.finishRun(ctx, runID, Result{Lines: []string{summary.Line()}}, err)
	return summary, err
}

func (p *Pipeline) unpackPhase(ctx context.Context, runID, gameDir string, exes []scanner.Executable, stream *progress.Stream, budget *progress.Budget) (UnpackSummary, error) {
	var summary UnpackSummary
	ctx = services.WithStage(ctx, stageUnpack)
	logger := logging.WithContext(ctx, p.logger)

	if p.unpacker == nil {
		summary.Disabled = true
		return summary, stream.Emit(ctx, budget.End(), "Steamless skipped")
	}

	candidates := make([]string, 0, len(exes))
	for _, exe := range exes {
		candidates = append(candidates, exe.Path)
	}
	summary.Total = len(candidates)
	if len(candidates) == 0 {
		return summary, stream.Emit(ctx, budget.End(), "No executables found for Steamless")
	}
	*budget = progress.NewBudget(float64(budget.Current()), float64(budget.End()), len(candidates))

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("executables", len(candidates)),
	)
	for _, exe := range candidates {
		rel := relative(gameDir, exe)
		if err := stream.Emit(ctx, budget.Current(), "Processing EXE: "+rel); err != nil {
			return summary, err
		}
		exeCtx := services.WithTarget(ctx, exe)
		switch err := p.unpackOne(exeCtx, runID, gameDir, exe); {
		case err == nil:
			summary.Unpacked++
		case errors.Is(err, services.ErrNoOp):
			summary.NoWrapper++
		case services.Recoverable(err):
			summary.Failed++
			logging.WarnWithContext(logging.WithContext(exeCtx, p.logger), "steamless failed, continuing", "unpack_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, string(services.Classify(err))),
				logging.String(logging.FieldErrorHint, "the executable may not be wrapped or may need a manual unpack"),
				logging.String(logging.FieldImpact, "executable left unchanged"),
			)
		default:
			return summary, err
		}
		if err := stream.Emit(ctx, budget.Advance(), "Processed EXE: "+rel); err != nil {
			return summary, err
		}
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("unpacked", summary.Unpacked),
		logging.Int("no_wrapper", summary.NoWrapper),
		logging.Int("failed", summary.Failed),
	)
	return summary, stream.Emit(ctx, budget.End(), "Steamless completed")
}

var errNoWrapper = fmt.Errorf("%w: no drm wrapper", services.ErrNoOp)

// unpackOne returns nil when exe was unpacked, errNoWrapper when Steamless
// produced nothing, and a recoverable error when reconciliation failed.
func (p *Pipeline) unpackOne(ctx context.Context, runID, gameDir, exe string) error {
	if err := p.unpacker.Unpack(ctx, exe); err != nil {
		return err
	}
	outcome, err := steamless.Reconcile(exe)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stageUnpack, "reconcile", "post-unpack handling failed", err)
	}
	switch outcome {
	case steamless.NoWrapper:
		return errNoWrapper
	case steamless.Unpacked:
		backup := guard.BackupPath(exe)
		digest, err := fileutil.Digest(backup)
		if err != nil {
			return services.Wrap(services.ErrTransient, stageUnpack, "digest", backup, err)
		}
		size, _, err := fileutil.Size(backup)
		if err != nil {
			return services.Wrap(services.ErrTransient, stageUnpack, "stat", backup, err)
		}
		if err := p.record(ctx, runID, gameDir, ledger.Artifact{
			Kind:     ledger.ArtifactBackup,
			Original: exe,
			Backup:   backup,
			Digest:   digest,
			Size:     size,
		}); err != nil {
			return err
		}
	}
	logging.WithContext(ctx, p.logger).Info("executable unpacked",
		logging.String(logging.FieldEventType, "unpack_complete"),
		logging.String("reconciliation", string(outcome)),
	)
	return nil
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
