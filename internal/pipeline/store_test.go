package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state", "progress.json"))
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, p.CurrentStage)
	assert.Empty(t, p.Stages)
	assert.Equal(t, ProgressVersion, p.Version)
}

func TestLoadCorruptFileIsFresh(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, WriteAtomic(s.Path(), []byte("{not json")))

	p, err := s.Load()
	require.NoError(t, err, "a corrupt file reads as fresh progress")
	assert.Empty(t, p.Stages)
}

func TestSaveStampsLastUpdated(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Save(NewProgress()))
	got, err := s.Load()
	require.NoError(t, err)
	assert.True(t, got.LastUpdated.Equal(fixed), "LastUpdated = %v, want %v", got.LastUpdated, fixed)
}

func TestStartStageSetsCurrent(t *testing.T) {
	s := newTestStore(t)

	p, err := s.StartStage("01-brainstorm")
	require.NoError(t, err)
	assert.Equal(t, "01-brainstorm", p.CurrentStage)

	sp := p.Stages["01-brainstorm"]
	assert.Equal(t, StatusInProgress, sp.Status)
	assert.NotNil(t, sp.StartedAt)
	assert.Equal(t, "01-brainstorm", sp.StageID)
}

func TestCompleteAndFailKeepCurrent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.StartStage("01-brainstorm")
	require.NoError(t, err)

	p, err := s.CompleteStage("01-brainstorm", []string{"ideas.md"}, "")
	require.NoError(t, err)
	assert.Equal(t, "01-brainstorm", p.CurrentStage, "CompleteStage must not move the pointer")

	sp := p.Stages["01-brainstorm"]
	assert.Equal(t, StatusCompleted, sp.Status)
	assert.NotNil(t, sp.CompletedAt)
	assert.NotNil(t, sp.StartedAt, "StartedAt is kept from the prior record")
	assert.Equal(t, []string{"ideas.md"}, sp.Outputs)

	p, err = s.FailStage("02-research", "model timed out")
	require.NoError(t, err)
	assert.Equal(t, "01-brainstorm", p.CurrentStage, "FailStage must not move the pointer")
	assert.Equal(t, "model timed out", p.Stages["02-research"].Error)
}

func TestUpdateStageKeepsUnspecifiedFields(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CompleteStage("06-implementation", []string{"source_code/"}, "cp-06-2026-01-01T00-00-00")
	require.NoError(t, err)

	p, err := s.UpdateStage("06-implementation", StageUpdate{Outputs: []string{"source_code/", "notes.md"}})
	require.NoError(t, err)

	sp := p.Stages["06-implementation"]
	assert.Equal(t, StatusCompleted, sp.Status)
	assert.Equal(t, "cp-06-2026-01-01T00-00-00", sp.CheckpointID)
	assert.Len(t, sp.Outputs, 2)
}

func TestCompleteStageKeepsCheckpoint(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SetCheckpoint("07-refactoring", "cp-07-x")
	require.NoError(t, err)

	p, err := s.CompleteStage("07-refactoring", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "cp-07-x", p.Stages["07-refactoring"].CheckpointID)
}

func TestRestartClearsOutcome(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FailStage("03-planning", "boom")
	require.NoError(t, err)

	p, err := s.StartStage("03-planning")
	require.NoError(t, err)

	sp := p.Stages["03-planning"]
	assert.Equal(t, StatusInProgress, sp.Status)
	assert.Empty(t, sp.Error)
	assert.Nil(t, sp.CompletedAt, "CompletedAt is cleared on restart")
}

func TestSkipStage(t *testing.T) {
	s := newTestStore(t)
	p, err := s.SkipStage("04-ui-ux", "cli project")
	require.NoError(t, err)

	sp := p.Stages["04-ui-ux"]
	assert.Equal(t, StatusSkipped, sp.Status)
	assert.Equal(t, "cli project", sp.Reason)
}

func TestUpdateStageEmptyID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateStage("", StageUpdate{})
	assert.Error(t, err)
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress.json")
	for i := 0; i < 3; i++ {
		require.NoError(t, WriteJSON(path, map[string]int{"n": i}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"progress.json"}, names)
}

func TestSummarize(t *testing.T) {
	ids := []string{"01", "02", "03", "04"}

	p := NewProgress()
	sum := Summarize(p, ids)
	assert.Equal(t, 4, sum.Pending)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, "01", sum.NextStage)

	p.CurrentStage = "02"
	p.Stages["01"] = StageProgress{StageID: "01", Status: StatusCompleted}
	p.Stages["02"] = StageProgress{StageID: "02", Status: StatusInProgress}
	p.Stages["03"] = StageProgress{StageID: "03", Status: StatusSkipped}
	sum = Summarize(p, ids)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.InProgress)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, "03", sum.NextStage)
	assert.Equal(t, 50, sum.Percent())

	p.CurrentStage = "04"
	assert.Empty(t, Summarize(p, ids).NextStage, "no next stage at the end")
}
