package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autocrack/internal/services"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = fmt.Errorf("run %w", services.ErrNotFound)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BeginRun records a new running run and returns it with a fresh id.
func (s *Store) BeginRun(ctx context.Context, gameDir, appID string) (*Run, error) {
	if strings.TrimSpace(gameDir) == "" {
		return nil, errors.New("begin run: game dir is required")
	}
	run := &Run{
		ID:        uuid.NewString(),
		GameDir:   gameDir,
		AppID:     appID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, game_dir, app_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.GameDir, run.AppID, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final status of a run. runErr, when set, is recorded
// with its classification.
func (s *Store) FinishRun(ctx context.Context, runID string, status Status, summary string, runErr error) error {
	var message, kind string
	if runErr != nil {
		message = runErr.Error()
		kind = string(services.Classify(runErr))
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, summary = ?, error_message = ?, error_kind = ?, finished_at = ? WHERE id = ?`,
		string(status), summary, message, kind, formatTime(time.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// RecordArtifact appends an artifact to its run and returns the stored id.
func (s *Store) RecordArtifact(ctx context.Context, artifact Artifact) (int64, error) {
	if artifact.RunID == "" || artifact.Original == "" {
		return 0, errors.New("record artifact: run id and original are required")
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now()
	}
	res, err := s.exec(ctx,
		`INSERT INTO artifacts (run_id, game_dir, kind, original_path, backup_path, digest, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.RunID, artifact.GameDir, string(artifact.Kind), artifact.Original,
		artifact.Backup, artifact.Digest, artifact.Size, formatTime(artifact.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert artifact: %w", err)
	}
	return res.LastInsertId()
}

const runColumns = "id, game_dir, app_id, status, summary, error_message, error_kind, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.GameDir, &run.AppID, &status, &run.Summary,
		&run.Error, &run.ErrorKind, &startedRaw, &finishedRaw); err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		finished := parseTime(finishedRaw.String)
		run.FinishedAt = &finished
	}
	return run, nil
}

// Runs returns the most recent runs first. A limit of zero or less returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns a single run by id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// Artifacts returns matching artifacts, newest first.
func (s *Store) Artifacts(ctx context.Context, filter ArtifactFilter) ([]Artifact, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.GameDir != "" {
		clauses = append(clauses, "game_dir = ?")
		args = append(args, filter.GameDir)
	}
	if filter.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.PendingOnly {
		clauses = append(clauses, "restored = 0")
	}
	query := `SELECT id, run_id, game_dir, kind, original_path, backup_path, digest, size, restored, created_at FROM artifacts`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var (
			a          Artifact
			kind       string
			restored   int
			createdRaw string
		)
		if err := rows.Scan(&a.ID, &a.RunID, &a.GameDir, &kind, &a.Original, &a.Backup,
			&a.Digest, &a.Size, &restored, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Kind = ArtifactKind(kind)
		a.Restored = restored != 0
		a.CreatedAt = parseTime(createdRaw)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// MarkRestored flags artifacts as reverted.
func (s *Store) MarkRestored(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if _, err := s.exec(ctx, `UPDATE artifacts SET restored = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("mark artifact %d restored: %w", id, err)
		}
	}
	return nil
}
