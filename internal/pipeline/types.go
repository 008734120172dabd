package pipeline

import "time"

// ProgressVersion is written into every saved progress file.
const ProgressVersion = "2.0.0"

// Status is the lifecycle state of a single stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// StageProgress is the persisted status record of one stage.
type StageProgress struct {
	StageID      string     `json:"stageId"`
	Status       Status     `json:"status"`
	StartedAt    *time.Time `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt"`
	Error        string     `json:"error,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	CheckpointID string     `json:"checkpointId,omitempty"`
	Outputs      []string   `json:"outputs,omitempty"`
}

// PipelineProgress is the aggregate persisted in progress.json.
// CurrentStage is empty when no stage has been started.
type PipelineProgress struct {
	CurrentStage string                   `json:"currentStage,omitempty"`
	Stages       map[string]StageProgress `json:"stages"`
	LastUpdated  time.Time                `json:"lastUpdated"`
	Version      string                   `json:"version"`
}

// NewProgress returns an aggregate with no history.
func NewProgress() *PipelineProgress {
	return &PipelineProgress{
		Stages:  make(map[string]StageProgress),
		Version: ProgressVersion,
	}
}

// Stage returns the record for id, or a pending record if none exists.
func (p *PipelineProgress) Stage(id string) StageProgress {
	if sp, ok := p.Stages[id]; ok {
		return sp
	}
	return StageProgress{StageID: id, Status: StatusPending}
}

// StageUpdate is a partial StageProgress. Nil pointer fields and a nil
// Outputs slice keep the prior value.
type StageUpdate struct {
	Status       *Status
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Error        *string
	Reason       *string
	CheckpointID *string
	Outputs      []string

	// ClearOutcome drops CompletedAt, Error and Reason before merging.
	ClearOutcome bool
	// MakeCurrent points PipelineProgress.CurrentStage at the stage.
	MakeCurrent bool
}

func (u StageUpdate) apply(sp StageProgress) StageProgress {
	if u.ClearOutcome {
		sp.CompletedAt = nil
		sp.Error = ""
		sp.Reason = ""
	}
	if u.Status != nil {
		sp.Status = *u.Status
	}
	if u.StartedAt != nil {
		t := *u.StartedAt
		sp.StartedAt = &t
	}
	if u.CompletedAt != nil {
		t := *u.CompletedAt
		sp.CompletedAt = &t
	}
	if u.Error != nil {
		sp.Error = *u.Error
	}
	if u.Reason != nil {
		sp.Reason = *u.Reason
	}
	if u.CheckpointID != nil {
		sp.CheckpointID = *u.CheckpointID
	}
	if u.Outputs != nil {
		sp.Outputs = append([]string(nil), u.Outputs...)
	}
	return sp
}
