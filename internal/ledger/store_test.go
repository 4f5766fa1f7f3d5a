package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"autocrack/internal/ledger"
	"autocrack/internal/services"
	"autocrack/internal/testsupport"
)

func TestBeginAndFinishRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "/games/spacewar", "480")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if run.ID == "" || run.Status != ledger.StatusRunning {
		t.Fatalf("unexpected run: %#v", run)
	}

	runErr := services.Wrap(services.ErrNotFound, "replace", "", "missing dependency", nil)
	if err := store.FinishRun(ctx, run.ID, ledger.StatusFailed, "", runErr); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	fetched, err := store.Run(ctx, run.ID)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fetched.Status != ledger.StatusFailed || fetched.ErrorKind != string(services.KindNotFound) {
		t.Fatalf("unexpected finished run: %#v", fetched)
	}
	if fetched.FinishedAt == nil || fetched.Duration() < 0 {
		t.Fatalf("expected finished timestamp, got %#v", fetched)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	err := store.FinishRun(context.Background(), "nope", ledger.StatusSucceeded, "", nil)
	if !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.BeginRun(ctx, fmt.Sprintf("/games/%d", i), "")
		if err != nil {
			t.Fatalf("BeginRun failed: %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected run order: %#v", runs)
	}

	all, err := store.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestArtifactsFilterAndMarkRestored(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "/games/a", "480")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	other, err := store.BeginRun(ctx, "/games/b", "480")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	backupID, err := store.RecordArtifact(ctx, ledger.Artifact{
		RunID:    run.ID,
		GameDir:  "/games/a",
		Kind:     ledger.ArtifactBackup,
		Original: "/games/a/steam_api64.dll",
		Backup:   "/games/a/steam_api64.svrn",
		Digest:   "00000000deadbeef",
		Size:     1024,
	})
	if err != nil {
		t.Fatalf("RecordArtifact failed: %v", err)
	}
	if _, err := store.RecordArtifact(ctx, ledger.Artifact{
		RunID:    run.ID,
		GameDir:  "/games/a",
		Kind:     ledger.ArtifactPlaced,
		Original: "/games/a/steamclient64.dll",
	}); err != nil {
		t.Fatalf("RecordArtifact failed: %v", err)
	}
	if _, err := store.RecordArtifact(ctx, ledger.Artifact{
		RunID:    other.ID,
		GameDir:  "/games/b",
		Kind:     ledger.ArtifactPlaced,
		Original: "/games/b/steamclient.dll",
	}); err != nil {
		t.Fatalf("RecordArtifact failed: %v", err)
	}

	artifacts, err := store.Artifacts(ctx, ledger.ArtifactFilter{GameDir: "/games/a", PendingOnly: true})
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Kind != ledger.ArtifactPlaced || artifacts[1].ID != backupID {
		t.Fatalf("expected newest first, got %#v", artifacts)
	}
	if artifacts[1].Digest != "00000000deadbeef" || artifacts[1].Size != 1024 {
		t.Fatalf("backup fields not persisted: %#v", artifacts[1])
	}

	if err := store.MarkRestored(ctx, backupID); err != nil {
		t.Fatalf("MarkRestored failed: %v", err)
	}
	pending, err := store.Artifacts(ctx, ledger.ArtifactFilter{GameDir: "/games/a", PendingOnly: true})
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID == backupID {
		t.Fatalf("expected only the placed artifact pending, got %#v", pending)
	}

	byRun, err := store.Artifacts(ctx, ledger.ArtifactFilter{RunID: run.ID})
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if len(byRun) != 2 || !byRun[1].Restored {
		t.Fatalf("unexpected run artifacts: %#v", byRun)
	}
}

func TestRecordArtifactRequiresRunAndOriginal(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	if _, err := store.RecordArtifact(context.Background(), ledger.Artifact{Original: "/x"}); err == nil {
		t.Fatal("expected error without run id")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.BeginRun(context.Background(), "/games/a", ""); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenLedger(t, cfg)
	runs, err := reopened.Runs(context.Background(), 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run after reopen, got %d", len(runs))
	}
}

func TestOpenRejectsForeignSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := ledger.OpenPath(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
