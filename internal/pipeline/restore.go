package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"autocrack/internal/fileutil"
	"autocrack/internal/ledger"
	"autocrack/internal/logging"
	"autocrack/internal/services"
)

const stageRestore = "restore"

// RestoreResult lists what Restore reverted.
type RestoreResult struct {
	Restored []string
	Removed  []string
	Skipped  []string
}

// Summary renders one line per reverted or skipped path.
func (r RestoreResult) Summary() string {
	var lines []string
	for _, path := range r.Restored {
		lines = append(lines, "Restored "+path)
	}
	for _, path := range r.Removed {
		lines = append(lines, "Removed "+path)
	}
	for _, path := range r.Skipped {
		lines = append(lines, "Skipped "+path)
	}
	if len(lines) == 0 {
		return "Nothing to restore"
	}
	return strings.Join(lines, "\n")
}

// Restore reverts every un-restored artifact recorded for gameDir, newest
// first: backups are verified against their recorded digest and moved back
// over the original, placed files and created directories are removed.
// Artifacts that cannot be reverted safely are skipped and stay pending.
func (p *Pipeline) Restore(ctx context.Context, gameDir string) (RestoreResult, error) {
	var result RestoreResult
	if p.ledger == nil {
		return result, services.Wrap(services.ErrConfiguration, stageRestore, "", "restore needs run history", nil)
	}
	abs, err := resolveGameDir(gameDir)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, stageRestore, "", "resolve game directory", err)
	}
	ctx = services.WithStage(ctx, stageRestore)
	logger := logging.WithContext(ctx, p.logger)

	artifacts, err := p.ledger.Artifacts(ctx, ledger.ArtifactFilter{GameDir: abs, PendingOnly: true})
	if err != nil {
		return result, services.Wrap(services.ErrTransient, stageRestore, "", "read history", err)
	}

	// Files first so directories are removed after their contents are handled.
	ordered := make([]ledger.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Kind != ledger.ArtifactDirectory {
			ordered = append(ordered, a)
		}
	}
	for _, a := range artifacts {
		if a.Kind == ledger.ArtifactDirectory {
			ordered = append(ordered, a)
		}
	}

	handled := make(map[string]bool)
	for _, a := range ordered {
		if handled[a.Original] {
			if err := p.ledger.MarkRestored(ctx, a.ID); err != nil {
				return result, services.Wrap(services.ErrTransient, stageRestore, "", "update history", err)
			}
			continue
		}
		done, err := p.revert(a)
		if err != nil {
			logging.WarnWithContext(logger, "artifact not restored", "restore_skipped",
				logging.String("path", a.Original),
				logging.String("kind", string(a.Kind)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "artifact stays pending"),
			)
			result.Skipped = append(result.Skipped, a.Original)
			continue
		}
		handled[a.Original] = true
		if err := p.ledger.MarkRestored(ctx, a.ID); err != nil {
			return result, services.Wrap(services.ErrTransient, stageRestore, "", "update history", err)
		}
		switch {
		case !done:
		case a.Kind == ledger.ArtifactBackup:
			result.Restored = append(result.Restored, a.Original)
		default:
			result.Removed = append(result.Removed, a.Original)
		}
	}
	logger.Info("restore completed",
		logging.String(logging.FieldEventType, "restore_complete"),
		logging.Int("restored", len(result.Restored)),
		logging.Int("removed", len(result.Removed)),
		logging.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// revert undoes one artifact. It reports false when there was nothing left on
// disk to undo.
func (p *Pipeline) revert(a ledger.Artifact) (bool, error) {
	switch a.Kind {
	case ledger.ArtifactBackup:
		if !fileutil.Exists(a.Backup) {
			return false, fmt.Errorf("%w: backup %s", services.ErrNotFound, a.Backup)
		}
		if a.Digest != "" {
			digest, err := fileutil.Digest(a.Backup)
			if err != nil {
				return false, err
			}
			if digest != a.Digest {
				return false, fmt.Errorf("%w: backup %s digest %s does not match recorded %s",
					services.ErrSerialization, a.Backup, digest, a.Digest)
			}
		}
		if err := os.Rename(a.Backup, a.Original); err != nil {
			return false, err
		}
		return true, nil
	case ledger.ArtifactPlaced:
		if err := os.Remove(a.Original); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	case ledger.ArtifactDirectory:
		if !fileutil.Exists(a.Original) {
			return false, nil
		}
		if err := os.RemoveAll(a.Original); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown artifact kind %q", a.Kind)
	}
}
