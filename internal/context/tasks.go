package context

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasnoah/axpipe/internal/pipeline"
)

func (t *Tracker) taskLogPath() string {
	return filepath.Join(t.dir, TaskLogFile)
}

// TaskLog returns every logged task in completion order. A missing or
// corrupt log reads as empty.
func (t *Tracker) TaskLog() ([]TaskCompletion, error) {
	var log []TaskCompletion
	if err := pipeline.ReadJSON(t.taskLogPath(), &log); err != nil {
		if os.IsNotExist(err) || errors.Is(err, pipeline.ErrCorrupt) {
			return []TaskCompletion{}, nil
		}
		return nil, fmt.Errorf("read task log: %w", err)
	}
	if log == nil {
		log = []TaskCompletion{}
	}
	return log, nil
}

// LogTaskCompletion appends a task to the log. It does not take snapshots
// itself: when the log length reaches a multiple of the save frequency the
// result has SnapshotDue set, and RecentTasks holds the last N descriptions
// for the caller (normally AutoSaver) to snapshot.
func (t *Tracker) LogTaskCompletion(description, stageID string) (TaskLogResult, error) {
	if description == "" {
		return TaskLogResult{}, fmt.Errorf("task description is required")
	}
	log, err := t.TaskLog()
	if err != nil {
		return TaskLogResult{}, err
	}

	task := TaskCompletion{
		TaskID:      "task-" + t.newID(),
		Description: description,
		CompletedAt: t.now().UTC(),
		StageID:     stageID,
	}
	log = append(log, task)
	if err := pipeline.WriteJSON(t.taskLogPath(), log); err != nil {
		return TaskLogResult{}, fmt.Errorf("write task log: %w", err)
	}
	t.logf("task logged: %s", description)

	res := TaskLogResult{Task: task}
	if len(log)%t.frequency == 0 {
		res.SnapshotDue = true
		for _, tc := range log[len(log)-t.frequency:] {
			res.RecentTasks = append(res.RecentTasks, tc.Description)
		}
	}
	return res, nil
}

// TasksSinceLastSnapshot counts tasks completed strictly after the newest
// snapshot, or all tasks when there is no snapshot.
func (t *Tracker) TasksSinceLastSnapshot() (int, error) {
	log, err := t.TaskLog()
	if err != nil {
		return 0, err
	}
	latest, err := t.LatestSnapshot()
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return len(log), nil
	}
	n := 0
	for _, tc := range log {
		if tc.CompletedAt.After(latest.CreatedAt) {
			n++
		}
	}
	return n, nil
}
