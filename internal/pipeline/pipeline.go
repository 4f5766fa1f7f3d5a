package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"autocrack/internal/config"
	"autocrack/internal/emuconfig"
	"autocrack/internal/guard"
	"autocrack/internal/ledger"
	"autocrack/internal/logging"
	"autocrack/internal/progress"
	"autocrack/internal/scanner"
	"autocrack/internal/services"
	"autocrack/internal/services/steamapi"
	"autocrack/internal/services/steamless"
	"autocrack/internal/signature"
)

// Unpacker strips the DRM wrapper from one executable.
type Unpacker interface {
	Unpack(ctx context.Context, exe string) error
}

// Replacer performs a guarded copy of source over original.
type Replacer interface {
	Replace(ctx context.Context, original, source string) (guard.Outcome, error)
}

// Metadata supplies the remote data written into the metadata directory.
type Metadata interface {
	DLCs(ctx context.Context, appID string) ([]emuconfig.DLC, error)
	Depots(ctx context.Context, appID string) ([]string, error)
	Languages(ctx context.Context, appID string) ([]string, error)
	Schema(ctx context.Context, appID, language string) (steamapi.Schema, error)
	DownloadIcons(ctx context.Context, achievements []emuconfig.Achievement, imagesDir string) ([]emuconfig.Achievement, error)
}

// Ledger records runs and the artifacts they leave behind.
type Ledger interface {
	BeginRun(ctx context.Context, gameDir, appID string) (*ledger.Run, error)
	FinishRun(ctx context.Context, runID string, status ledger.Status, summary string, runErr error) error
	RecordArtifact(ctx context.Context, artifact ledger.Artifact) (int64, error)
	Artifacts(ctx context.Context, filter ledger.ArtifactFilter) ([]ledger.Artifact, error)
	MarkRestored(ctx context.Context, ids ...int64) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithUnpacker enables the unpack phase.
func WithUnpacker(u Unpacker) Option {
	return func(p *Pipeline) {
		p.unpacker = u
	}
}

// WithReplacer overrides the guarded replacer.
func WithReplacer(r Replacer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.replacer = r
		}
	}
}

// WithMetadata sets the remote metadata source. Without one every remote
// file is written with its empty default.
func WithMetadata(m Metadata, downloadIcons bool) Option {
	return func(p *Pipeline) {
		p.metadata = m
		p.downloadIcons = downloadIcons
	}
}

// WithLedger attaches run history.
func WithLedger(l Ledger) Option {
	return func(p *Pipeline) {
		p.ledger = l
	}
}

// WithIdentity sets the emulator account written to configs.user.ini.
func WithIdentity(id emuconfig.Identity) Option {
	return func(p *Pipeline) {
		p.identity = id
	}
}

// WithExtractor overrides the signature extractor.
func WithExtractor(e *signature.Extractor) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline applies the emulator to game directories.
type Pipeline struct {
	cacheDir      string
	identity      emuconfig.Identity
	unpacker      Unpacker
	replacer      Replacer
	extractor     *signature.Extractor
	metadata      Metadata
	downloadIcons bool
	ledger        Ledger
	logger        *slog.Logger
}

// New builds a pipeline reading dependencies from cacheDir.
func New(cacheDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		cacheDir: cacheDir,
		identity: emuconfig.Identity{
			AccountName: "Player",
			SteamID:     "76561197960287930",
			Language:    "english",
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	if p.replacer == nil {
		p.replacer = guard.New(guard.WithLogger(p.logger))
	}
	if p.extractor == nil {
		p.extractor = signature.New(signature.DefaultCatalog, p.logger)
	}
	return p
}

// NewFromConfig wires the production collaborators described by cfg. Extra
// options are applied last.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	base := []Option{
		WithLogger(logger),
		WithIdentity(emuconfig.Identity{
			AccountName: cfg.Emulator.AccountName,
			SteamID:     cfg.Emulator.SteamID,
			Language:    cfg.Emulator.Language,
		}),
		WithReplacer(guard.New(
			guard.WithRetryBudget(cfg.Replace.RetryBudget),
			guard.WithDelay(cfg.RetryDelay()),
			guard.WithLogger(logger),
		)),
		WithMetadata(steamapi.NewFromConfig(cfg, steamapi.WithLogger(logger)), cfg.Steam.DownloadIcons),
	}
	if cfg.Unpack.Enabled {
		client, err := steamless.New(cfg.UnpackToolPath(),
			steamless.WithLauncher(cfg.Unpack.Launcher),
			steamless.WithTimeout(cfg.UnpackTimeout()),
			steamless.WithLogger(logger),
		)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "unpack", "", "build steamless client", err)
		}
		base = append(base, WithUnpacker(client))
	}
	return New(cfg.Paths.CacheDir, append(base, opts...)...), nil
}

// Request describes one run.
type Request struct {
	GameDir string
	AppID   string
	// Language overrides the configured emulator language.
	Language string
	// Offline skips the remote lookups; remote files get their defaults.
	Offline bool
}

// Result is the outcome of a successful or informational run.
type Result struct {
	RunID     string
	GameDir   string
	NoTargets bool
	Unpack    UnpackSummary
	Libraries []LibraryResult
	Lines     []string
}

// Summary joins the result lines, one per processed library, preceded by the
// unpack line.
func (r Result) Summary() string {
	return strings.Join(r.Lines, "\n")
}

// LibraryResult reports what happened to one steam_api library.
type LibraryResult struct {
	Target     scanner.Target
	Interfaces int
	Backup     *guard.Record
	Archive    string
	Entries    int
}

func (req Request) validate() (Request, error) {
	if strings.TrimSpace(req.GameDir) == "" {
		return req, services.Wrap(services.ErrConfiguration, "", "", "game directory is required", nil)
	}
	abs, err := resolveGameDir(req.GameDir)
	if err != nil {
		return req, services.Wrap(services.ErrConfiguration, "", "", "resolve game directory", err)
	}
	req.GameDir = abs
	req.AppID = strings.TrimSpace(req.AppID)
	if _, err := strconv.ParseUint(req.AppID, 10, 32); err != nil {
		return req, services.Wrap(services.ErrConfiguration, "", "", fmt.Sprintf("invalid app id %q", req.AppID), nil)
	}
	return req, nil
}

// resolveGameDir returns the absolute, link-free form of dir so history
// entries and scanned paths agree however the directory was named. A missing
// directory keeps its absolute path and is reported by the scanner.
func resolveGameDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return filepath.Clean(abs), nil
	}
	return resolved, err
}

// Run applies the emulator to every steam_api library under req.GameDir,
// reporting progress to reporter.
func (p *Pipeline) Run(ctx context.Context, req Request, reporter progress.Reporter) (Result, error) {
	req, err := req.validate()
	if err != nil {
		return Result{}, err
	}
	if req.Language == "" {
		req.Language = p.identity.Language
	}
	req.Language = config.NormalizeLanguage(req.Language)

	runID, err := p.beginRun(ctx, req)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("game_dir", req.GameDir),
		logging.String("app_id", req.AppID),
	)

	result, err := p.run(ctx, runID, req, progress.NewStream(reporter))
	result.RunID = runID
	result.GameDir = req.GameDir
	p.finishRun(ctx, runID, result, err)
	if err != nil {
		logger.Error("run failed",
			logging.String(logging.FieldEventType, "run_failure"),
			logging.String(logging.FieldErrorKind, string(services.Classify(err))),
			logging.Error(err),
		)
		return result, err
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("libraries", len(result.Libraries)),
		logging.Bool("no_targets", result.NoTargets),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, req Request, stream *progress.Stream) (Result, error) {
	var result Result

	scan, err := scanner.Scan(req.GameDir)
	if errors.Is(err, scanner.ErrNoTargetsFound) {
		result.NoTargets = true
		result.Lines = []string{fmt.Sprintf("No Steam API libraries found in %s", req.GameDir)}
		logging.WithContext(ctx, p.logger).Info("no steam_api libraries found",
			logging.String(logging.FieldEventType, "no_targets"),
			logging.Int("executables", len(scan.Executables)),
		)
		return result, stream.Emit(ctx, 100, "No Steam API libraries found")
	}
	if err != nil {
		return result, err
	}

	unpackBudget := progress.NewBudget(0, 50, len(scan.Executables))
	summary, err := p.unpackPhase(ctx, runID, req.GameDir, scan.Executables, stream, &unpackBudget)
	result.Unpack = summary
	if err != nil {
		return result, err
	}
	if !summary.Disabled {
		result.Lines = append(result.Lines, summary.Line())
	}

	libraries := progress.NewBudget(50, 100, len(scan.Targets))
	for i, target := range scan.Targets {
		part := libraries.Part(i, librarySteps)
		lib, err := p.processLibrary(ctx, runID, req, target, stream, &part)
		if err != nil {
			return result, fmt.Errorf("%s: %w", target.Path, err)
		}
		result.Libraries = append(result.Libraries, lib)
		result.Lines = append(result.Lines,
			fmt.Sprintf("Applied Goldberg to %s in %s", target.LibraryName(), target.Dir()))
	}

	return result, stream.Emit(ctx, 100, "Done")
}

func (p *Pipeline) beginRun(ctx context.Context, req Request) (string, error) {
	if p.ledger == nil {
		return uuid.NewString(), nil
	}
	run, err := p.ledger.BeginRun(ctx, req.GameDir, req.AppID)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "ledger", "begin_run", "record run", err)
	}
	return run.ID, nil
}

func (p *Pipeline) finishRun(ctx context.Context, runID string, result Result, runErr error) {
	if p.ledger == nil {
		return
	}
	status := ledger.StatusSucceeded
	switch {
	case runErr != nil:
		status = ledger.StatusFailed
	case result.NoTargets:
		status = ledger.StatusNoTargets
	}
	// The run's own outcome must be persisted even when ctx was cancelled.
	if err := p.ledger.FinishRun(context.WithoutCancel(ctx), runID, status, result.Summary(), runErr); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to record run outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows the run as still running"),
		)
	}
}

func (p *Pipeline) record(ctx context.Context, runID, gameDir string, artifact ledger.Artifact) error {
	if p.ledger == nil {
		return nil
	}
	artifact.RunID = runID
	artifact.GameDir = gameDir
	if _, err := p.ledger.RecordArtifact(ctx, artifact); err != nil {
		return services.Wrap(services.ErrTransient, "ledger", "record_artifact", artifact.Original, err)
	}
	return nil
}
