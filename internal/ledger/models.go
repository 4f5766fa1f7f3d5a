package ledger

import "time"

// Status represents the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusNoTargets Status = "no_targets"
	StatusFailed    Status = "failed"
)

// ArtifactKind classifies what a run left on disk.
type ArtifactKind string

const (
	// ArtifactBackup is an original moved aside to a .svrn backup.
	ArtifactBackup ArtifactKind = "backup"
	// ArtifactPlaced is a file the run created where none existed.
	ArtifactPlaced ArtifactKind = "placed"
	// ArtifactDirectory is a directory the run created.
	ArtifactDirectory ArtifactKind = "directory"
)

// Run is one pipeline invocation.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	GameDir    string     `json:"game_dir" yaml:"game_dir"`
	AppID      string     `json:"app_id" yaml:"app_id"`
	Status     Status     `json:"status" yaml:"status"`
	Summary    string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Artifact is a file-level change made by a run.
type Artifact struct {
	ID        int64        `json:"id" yaml:"id"`
	RunID     string       `json:"run_id" yaml:"run_id"`
	GameDir   string       `json:"game_dir" yaml:"game_dir"`
	Kind      ArtifactKind `json:"kind" yaml:"kind"`
	Original  string       `json:"original" yaml:"original"`
	Backup    string       `json:"backup,omitempty" yaml:"backup,omitempty"`
	Digest    string       `json:"digest,omitempty" yaml:"digest,omitempty"`
	Size      int64        `json:"size" yaml:"size"`
	Restored  bool         `json:"restored" yaml:"restored"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}

// ArtifactFilter narrows an Artifacts query. Empty fields match everything.
type ArtifactFilter struct {
	GameDir     string
	RunID       string
	PendingOnly bool
}
