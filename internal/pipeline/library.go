package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"autocrack/internal/archive"
	"autocrack/internal/deps"
	"autocrack/internal/emuconfig"
	"autocrack/internal/fileutil"
	"autocrack/internal/guard"
	"autocrack/internal/ledger"
	"autocrack/internal/logging"
	"autocrack/internal/progress"
	"autocrack/internal/scanner"
	"autocrack/internal/services"
	"autocrack/internal/signature"
)

// librarySteps is the number of progress substeps per library.
const librarySteps = 9

// libraryRun carries the state of one library through its substeps.
type libraryRun struct {
	runID   string
	req     Request
	target  scanner.Target
	stream  *progress.Stream
	budget  *progress.Budget
	sources librarySources
	client  string
	result  LibraryResult
}

type librarySources struct {
	library string
	client  string
	sound   string
	font    string
}

func (l *libraryRun) step(ctx context.Context, message string) error {
	return l.stream.Emit(ctx, l.budget.Advance(), message)
}

func (p *Pipeline) processLibrary(ctx context.Context, runID string, req Request, target scanner.Target, stream *progress.Stream, budget *progress.Budget) (LibraryResult, error) {
	ctx = services.WithTarget(ctx, target.Path)
	l := &libraryRun{
		runID:  runID,
		req:    req,
		target: target,
		stream: stream,
		budget: budget,
		result: LibraryResult{Target: target},
	}
	if err := stream.Emit(ctx, budget.Current(), "Processing DLL: "+target.Path); err != nil {
		return l.result, err
	}

	steps := []struct {
		stage   string
		message string
		run     func(context.Context, *libraryRun) error
	}{
		{"validate_dependencies", "Validated source files", p.validateDependencies},
		{"metadata_dir", "Created steam_settings directory", p.createMetadataDir},
		{"signatures", "Generated " + signature.ManifestName, p.extractSignatures},
		{"remote_lookup", "Fetched remote metadata", p.fetchMetadata},
		{"replace_library", "Copied Goldberg DLL", p.replaceLibrary},
		{"place_companion", "Copied steamclient DLL", p.placeCompanion},
		{"copy_assets", "Copied sound and font files", p.copyAssets},
		{"generate_config", "Generated configuration files", p.generateConfig},
		{"archive", "Created backup archive", p.createArchive},
	}
	for _, s := range steps {
		stageCtx := services.WithStage(ctx, s.stage)
		if err := s.run(stageCtx, l); err != nil {
			logging.WithContext(stageCtx, p.logger).Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String(logging.FieldErrorKind, string(services.Classify(err))),
				logging.Error(err),
			)
			return l.result, err
		}
		if err := l.step(stageCtx, s.message); err != nil {
			return l.result, err
		}
	}
	return l.result, nil
}

func (p *Pipeline) validateDependencies(_ context.Context, l *libraryRun) error {
	required := []struct {
		name string
		dst  *string
	}{
		{l.target.ReplacementName(), &l.sources.library},
		{l.target.ClientName(), &l.sources.client},
		{deps.OverlaySound, &l.sources.sound},
		{deps.OverlayFont, &l.sources.font},
	}
	for _, r := range required {
		path, err := deps.Require(p.cacheDir, r.name)
		if err != nil {
			return err
		}
		*r.dst = path
	}
	return nil
}

func (p *Pipeline) createMetadataDir(ctx context.Context, l *libraryRun) error {
	dir := l.target.MetadataDir
	existed := fileutil.Exists(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "metadata_dir", "", "create "+dir, err)
	}
	if existed {
		return nil
	}
	return p.record(ctx, l.runID, l.req.GameDir, ledger.Artifact{Kind: ledger.ArtifactDirectory, Original: dir})
}

// signatureSource picks the binary to scan for interface names: the .svrn
// backup when the library on disk is already the replacement.
func signatureSource(target, replacement string) (string, error) {
	backup := guard.BackupPath(target)
	targetSize, exists, err := fileutil.Size(target)
	if err != nil {
		return "", err
	}
	replacementSize, _, err := fileutil.Size(replacement)
	if err != nil {
		return "", err
	}
	if (!exists || targetSize == replacementSize) && fileutil.Exists(backup) {
		return backup, nil
	}
	if !exists {
		return "", nil
	}
	return target, nil
}

func (p *Pipeline) extractSignatures(ctx context.Context, l *libraryRun) error {
	logger := logging.WithContext(ctx, p.logger)
	source, err := signatureSource(l.target.Path, l.sources.library)
	if err != nil {
		return services.Wrap(services.ErrTransient, "signatures", "", "stat library", err)
	}
	if source == "" {
		logging.WarnWithContext(logger, "original library absent, skipping interface extraction", "signatures_skipped",
			logging.String(logging.FieldErrorHint, "restore the original steam_api library and re-run"),
			logging.String(logging.FieldImpact, signature.ManifestName+" not generated"),
		)
		return nil
	}
	count, err := p.extractor.Extract(source, l.target.MetadataDir)
	if err != nil {
		return err
	}
	l.result.Interfaces = count
	logger.Info("interfaces extracted",
		logging.String("source", source),
		logging.Int("interfaces", count),
	)
	return nil
}

func (p *Pipeline) fetchMetadata(ctx context.Context, l *libraryRun) error {
	dir := l.target.MetadataDir
	var (
		dlcs      []emuconfig.DLC
		depots    []string
		languages []string
		schema    struct {
			achievements []emuconfig.Achievement
			stats        []emuconfig.Stat
		}
	)
	if p.metadata != nil && !l.req.Offline {
		var err error
		appID := l.req.AppID
		if dlcs, err = p.metadata.DLCs(ctx, appID); err != nil {
			return err
		}
		if depots, err = p.metadata.Depots(ctx, appID); err != nil {
			return err
		}
		if languages, err = p.metadata.Languages(ctx, appID); err != nil {
			return err
		}
		fetched, err := p.metadata.Schema(ctx, appID, l.req.Language)
		if err != nil {
			return err
		}
		schema.achievements, schema.stats = fetched.Achievements, fetched.Stats
		if p.downloadIcons && len(schema.achievements) > 0 {
			imagesDir := filepath.Join(dir, emuconfig.ImagesDir)
			if schema.achievements, err = p.metadata.DownloadIcons(ctx, schema.achievements, imagesDir); err != nil {
				return err
			}
		}
	} else {
		logging.WithContext(ctx, p.logger).Info("remote lookups skipped",
			logging.String(logging.FieldEventType, "offline"),
		)
	}

	writers := []func() (string, error){
		func() (string, error) { return emuconfig.WriteDLCs(dir, dlcs) },
		func() (string, error) { return emuconfig.WriteDepots(dir, depots) },
		func() (string, error) { return emuconfig.WriteLanguages(dir, languages) },
		func() (string, error) { return emuconfig.WriteAchievements(dir, schema.achievements) },
		func() (string, error) { return emuconfig.WriteStats(dir, schema.stats) },
	}
	for _, write := range writers {
		if _, err := write(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) replaceLibrary(ctx context.Context, l *libraryRun) error {
	outcome, err := p.replacer.Replace(ctx, l.target.Path, l.sources.library)
	if err != nil {
		return err
	}
	return p.recordOutcome(ctx, l, outcome, true)
}

func (p *Pipeline) placeCompanion(ctx context.Context, l *libraryRun) error {
	if l.target.ClientPath == "" {
		logging.WithContext(ctx, p.logger).Info("no executable found, companion not placed",
			logging.String("client", l.target.ClientName()),
		)
		return nil
	}
	outcome, err := p.replacer.Replace(ctx, l.target.ClientPath, l.sources.client)
	if err != nil {
		return err
	}
	l.client = l.target.ClientPath
	return p.recordOutcome(ctx, l, outcome, false)
}

func (p *Pipeline) recordOutcome(ctx context.Context, l *libraryRun, outcome guard.Outcome, library bool) error {
	switch {
	case outcome.Backup != nil:
		if library {
			l.result.Backup = outcome.Backup
		}
		return p.record(ctx, l.runID, l.req.GameDir, ledger.Artifact{
			Kind:     ledger.ArtifactBackup,
			Original: outcome.Backup.Original,
			Backup:   outcome.Backup.Backup,
			Digest:   outcome.Backup.Digest,
			Size:     outcome.Backup.Size,
		})
	case outcome.OriginalMissing:
		return p.record(ctx, l.runID, l.req.GameDir, ledger.Artifact{Kind: ledger.ArtifactPlaced, Original: outcome.Original})
	}
	return nil
}

func (p *Pipeline) copyAssets(_ context.Context, l *libraryRun) error {
	if _, err := emuconfig.CopyAssets(l.target.MetadataDir, l.sources.sound, l.sources.font); err != nil {
		return services.Wrap(services.ErrTransient, "copy_assets", "", "copy overlay assets", err)
	}
	return nil
}

func (p *Pipeline) generateConfig(_ context.Context, l *libraryRun) error {
	identity := p.identity
	identity.Language = l.req.Language
	if _, err := emuconfig.Materialize(l.target.MetadataDir, emuconfig.Settings{AppID: l.req.AppID, Identity: identity}); err != nil {
		return services.Wrap(services.ErrTransient, "generate_config", "", "write emulator config", err)
	}
	return nil
}

func (p *Pipeline) createArchive(ctx context.Context, l *libraryRun) error {
	dest := archive.PathFor(l.target.Dir())
	dirExisted := fileutil.Exists(filepath.Dir(dest))
	res, err := archive.Build(dest, archive.Bundle{
		Library:     l.target.Path,
		Client:      l.client,
		MetadataDir: l.target.MetadataDir,
	})
	if err != nil {
		if errors.Is(err, archive.ErrArchiveWrite) {
			return err
		}
		return services.Wrap(services.ErrSerialization, "archive", "", dest, err)
	}
	l.result.Archive = res.Path
	l.result.Entries = len(res.Entries)
	if dirExisted {
		return nil
	}
	return p.record(ctx, l.runID, l.req.GameDir, ledger.Artifact{Kind: ledger.ArtifactDirectory, Original: filepath.Dir(dest)})
}
