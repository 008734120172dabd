package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Store persists PipelineProgress in a single JSON file. Every read loads
// fresh from disk and every write replaces the whole file.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a Store backed by the progress file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the progress file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the progress file. A missing or corrupt file yields a fresh
// aggregate; only other read failures are returned as errors.
func (s *Store) Load() (*PipelineProgress, error) {
	p := NewProgress()
	if err := ReadJSON(s.path, p); err != nil {
		if os.IsNotExist(err) || errors.Is(err, ErrCorrupt) {
			return NewProgress(), nil
		}
		return nil, fmt.Errorf("read progress: %w", err)
	}
	if p.Stages == nil {
		p.Stages = make(map[string]StageProgress)
	}
	for id, sp := range p.Stages {
		if sp.StageID == "" {
			sp.StageID = id
			p.Stages[id] = sp
		}
	}
	return p, nil
}

// Save stamps LastUpdated and overwrites the progress file.
func (s *Store) Save(p *PipelineProgress) error {
	p.LastUpdated = s.now().UTC()
	if p.Version == "" {
		p.Version = ProgressVersion
	}
	if err := WriteJSON(s.path, p); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// UpdateStage merges u into the record for id (creating a pending record
// if none exists), saves, and returns the new aggregate.
func (s *Store) UpdateStage(id string, u StageUpdate) (*PipelineProgress, error) {
	if id == "" {
		return nil, fmt.Errorf("update stage: empty stage id")
	}
	p, err := s.Load()
	if err != nil {
		return nil, err
	}
	p.Stages[id] = u.apply(p.Stage(id))
	if u.MakeCurrent {
		p.CurrentStage = id
	}
	if err := s.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// StartStage marks id in_progress and makes it the current stage. It is
// the only wrapper that moves a finished stage back to in_progress.
func (s *Store) StartStage(id string) (*PipelineProgress, error) {
	status := StatusInProgress
	now := s.now().UTC()
	return s.UpdateStage(id, StageUpdate{
		Status:       &status,
		StartedAt:    &now,
		ClearOutcome: true,
		MakeCurrent:  true,
	})
}

// CompleteStage marks id completed with the produced outputs. An empty
// checkpointID keeps any checkpoint already recorded for the stage.
func (s *Store) CompleteStage(id string, outputs []string, checkpointID string) (*PipelineProgress, error) {
	status := StatusCompleted
	now := s.now().UTC()
	u := StageUpdate{
		Status:      &status,
		CompletedAt: &now,
		Outputs:     outputs,
	}
	if checkpointID != "" {
		u.CheckpointID = &checkpointID
	}
	return s.UpdateStage(id, u)
}

// FailStage marks id failed with the given error message.
func (s *Store) FailStage(id string, message string) (*PipelineProgress, error) {
	status := StatusFailed
	now := s.now().UTC()
	return s.UpdateStage(id, StageUpdate{
		Status:      &status,
		CompletedAt: &now,
		Error:       &message,
	})
}

// SkipStage marks id skipped, recording why.
func (s *Store) SkipStage(id string, reason string) (*PipelineProgress, error) {
	status := StatusSkipped
	now := s.now().UTC()
	return s.UpdateStage(id, StageUpdate{
		Status:      &status,
		CompletedAt: &now,
		Reason:      &reason,
	})
}

// SetCheckpoint records checkpointID on the stage without touching its status.
func (s *Store) SetCheckpoint(id string, checkpointID string) (*PipelineProgress, error) {
	return s.UpdateStage(id, StageUpdate{CheckpointID: &checkpointID})
}

// StageProgress returns the stored record for id and whether one exists.
func (s *Store) StageProgress(id string) (StageProgress, bool, error) {
	p, err := s.Load()
	if err != nil {
		return StageProgress{}, false, err
	}
	sp, ok := p.Stages[id]
	if !ok {
		return p.Stage(id), false, nil
	}
	return sp, true, nil
}

// Reset discards all progress history.
func (s *Store) Reset() error {
	return s.Save(NewProgress())
}
