package db

import (
	"context"
	"time"
)

// Kind names a journaled engine event.
type Kind string

const (
	KindStageStarted        Kind = "stage_started"
	KindStageCompleted      Kind = "stage_completed"
	KindStageFailed         Kind = "stage_failed"
	KindStageSkipped        Kind = "stage_skipped"
	KindCheckpointCreated   Kind = "checkpoint_created"
	KindCheckpointRestored  Kind = "checkpoint_restored"
	KindSnapshotCreated     Kind = "snapshot_created"
	KindTaskCompleted       Kind = "task_completed"
	KindTransitionValidated Kind = "transition_validated"
	KindContextUpdated      Kind = "context_updated"
	KindAICall              Kind = "ai_call"
)

// Event is one row of the journal.
type Event struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	StageID   string    `json:"stageId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter narrows Events. Zero fields match everything; Limit 0 means no limit.
type Filter struct {
	Kind    Kind
	StageID string
	Limit   int
}

// Journal is an append-only log of engine events, newest first on read.
type Journal interface {
	Migrate(ctx context.Context) error
	LogEvent(ctx context.Context, e Event) error
	Events(ctx context.Context, f Filter) ([]Event, error)
	Close() error
}

// Discard is a Journal that drops every event.
var Discard Journal = discard{}

type discard struct{}

func (discard) Migrate(context.Context) error                   { return nil }
func (discard) LogEvent(context.Context, Event) error           { return nil }
func (discard) Events(context.Context, Filter) ([]Event, error) { return nil, nil }
func (discard) Close() error                                    { return nil }
