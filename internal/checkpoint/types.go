// Package checkpoint captures a stage's outputs into immutable rollback
// points and restores them onto the live outputs directory.
package checkpoint

import (
	"errors"
	"time"
)

// ErrCheckpointNotFound is returned by lookups that require a checkpoint.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// MetadataFile is the metadata record inside each checkpoint directory.
const MetadataFile = "checkpoint.json"

// OutputsDirName holds the captured file tree inside a checkpoint directory.
const OutputsDirName = "outputs"

// Checkpoint is the immutable metadata of one captured outputs tree.
// Files are slash-separated paths relative to the stage outputs directory.
type Checkpoint struct {
	ID          string            `json:"id"`
	StageID     string            `json:"stageId"`
	CreatedAt   time.Time         `json:"createdAt"`
	Description string            `json:"description,omitempty"`
	GitRef      string            `json:"gitRef,omitempty"`
	Files       []string          `json:"files"`
	Checksums   map[string]string `json:"checksums,omitempty"` // path -> sha256 hex
}

// RestoreResult reports a best-effort restore. Success is true iff Errors
// is empty.
type RestoreResult struct {
	Success       bool     `json:"success"`
	CheckpointID  string   `json:"checkpointId"`
	StageID       string   `json:"stageId,omitempty"`
	RestoredFiles []string `json:"restoredFiles"`
	Errors        []string `json:"errors"`
	GitBranch     string   `json:"gitBranch,omitempty"`
}
