package context

import "fmt"

// AutoSaver applies the automatic snapshot policy on top of a Tracker:
// a task_complete snapshot every N logged tasks, and a threshold snapshot
// whenever an update escalates the budget into the action or critical band.
type AutoSaver struct {
	tracker *Tracker
}

// NewAutoSaver wraps t.
func NewAutoSaver(t *Tracker) *AutoSaver {
	return &AutoSaver{tracker: t}
}

// LogTask logs a completed task and, when the log says a snapshot is due,
// takes one from the most recent tasks. A due snapshot that failed earlier
// is retried on the next call, since the count of tasks logged after the
// newest snapshot is then still at least the save frequency. snap is nil
// when none was taken.
func (a *AutoSaver) LogTask(description, stageID string) (res TaskLogResult, snap *Snapshot, err error) {
	res, err = a.tracker.LogTaskCompletion(description, stageID)
	if err != nil {
		return res, nil, err
	}
	if !res.SnapshotDue {
		since, err := a.tracker.TasksSinceLastSnapshot()
		if err != nil || since < a.tracker.SaveFrequency() {
			return res, nil, err
		}
		if res.RecentTasks, err = a.recentTasks(); err != nil {
			return res, nil, err
		}
		res.SnapshotDue = true
	}
	snap, err = a.tracker.CreateSnapshot(TriggerTaskComplete, SnapshotOptions{
		CompletedTasks: res.RecentTasks,
	})
	if err != nil {
		return res, nil, fmt.Errorf("task snapshot (retried on the next task): %w", err)
	}
	return res, snap, nil
}

func (a *AutoSaver) recentTasks() ([]string, error) {
	log, err := a.tracker.TaskLog()
	if err != nil {
		return nil, err
	}
	if n := a.tracker.SaveFrequency(); len(log) > n {
		log = log[len(log)-n:]
	}
	out := make([]string, len(log))
	for i, tc := range log {
		out[i] = tc.Description
	}
	return out, nil
}

// Update applies u and takes a threshold snapshot when the new threshold
// is action or critical and more severe than the previous one.
func (a *AutoSaver) Update(u StateUpdate) (state *State, snap *Snapshot, err error) {
	prior, err := a.tracker.Get()
	if err != nil {
		return nil, nil, err
	}
	state, err = a.tracker.Update(u)
	if err != nil {
		return nil, nil, err
	}

	before := ThresholdNormal
	if prior != nil {
		before = prior.Threshold
	}
	if state.Threshold.Severity() < ThresholdAction.Severity() ||
		state.Threshold.Severity() <= before.Severity() {
		return state, nil, nil
	}
	snap, err = a.tracker.CreateSnapshot(TriggerThreshold, SnapshotOptions{})
	return state, snap, err
}
