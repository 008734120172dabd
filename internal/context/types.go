// Package context tracks consumption of the assistant context budget,
// derives threshold levels from it, and keeps an append-only stream of
// recovery snapshots and completed tasks.
package context

import "time"

// Threshold is the budget band derived from remaining context.
type Threshold string

const (
	ThresholdNormal   Threshold = "normal"
	ThresholdWarning  Threshold = "warning"
	ThresholdAction   Threshold = "action"
	ThresholdCritical Threshold = "critical"
)

// Severity orders thresholds: normal < warning < action < critical.
func (t Threshold) Severity() int {
	switch t {
	case ThresholdWarning:
		return 1
	case ThresholdAction:
		return 2
	case ThresholdCritical:
		return 3
	}
	return 0
}

// Icon is the status glyph shown next to the budget reading.
func (t Threshold) Icon() string {
	switch t {
	case ThresholdWarning:
		return "🟡"
	case ThresholdAction:
		return "🟠"
	case ThresholdCritical:
		return "🔴"
	}
	return "🟢"
}

// Cutoffs are remaining-budget percentages; a band applies once
// remaining <= its cutoff.
type Cutoffs struct {
	Warning  float64
	Action   float64
	Critical float64
}

// Classify returns the threshold for a usage percentage.
func (c Cutoffs) Classify(usagePercent float64) Threshold {
	remaining := 100 - usagePercent
	switch {
	case remaining <= c.Critical:
		return ThresholdCritical
	case remaining <= c.Action:
		return ThresholdAction
	case remaining <= c.Warning:
		return ThresholdWarning
	}
	return ThresholdNormal
}

// State is the current budget reading. It is overwritten on every update.
type State struct {
	UsagePercent float64   `json:"usagePercent"`
	TokensUsed   int       `json:"tokensUsed"`
	MaxTokens    int       `json:"maxTokens"`
	Threshold    Threshold `json:"threshold"`
	Timestamp    time.Time `json:"timestamp"`
}

// Remaining is the unused share of the budget in percent.
func (s State) Remaining() float64 {
	return 100 - s.UsagePercent
}

// StateUpdate is a partial State. Nil fields keep the prior value.
type StateUpdate struct {
	UsagePercent *float64
	TokensUsed   *int
	MaxTokens    *int
}

// Trigger records why a snapshot was taken.
type Trigger string

const (
	TriggerThreshold       Trigger = "threshold"
	TriggerTaskComplete    Trigger = "task_complete"
	TriggerManual          Trigger = "manual"
	TriggerStageTransition Trigger = "stage_transition"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerThreshold, TriggerTaskComplete, TriggerManual, TriggerStageTransition:
		return true
	}
	return false
}

// TaskProgress lists task descriptions by state.
type TaskProgress struct {
	CompletedTasks  []string `json:"completedTasks"`
	InProgressTasks []string `json:"inProgressTasks"`
	PendingTasks    []string `json:"pendingTasks"`
}

// KeyContext is what a fresh session needs to know to continue.
type KeyContext struct {
	Decisions     []string `json:"decisions"`
	ModifiedFiles []string `json:"modifiedFiles"`
	ActiveIssues  []string `json:"activeIssues"`
}

// Recovery points at where work should resume.
type Recovery struct {
	ResumeFrom    string `json:"resumeFrom"`
	HandoffRef    string `json:"handoffRef,omitempty"`
	CheckpointRef string `json:"checkpointRef,omitempty"`
}

// Snapshot is an immutable point-in-time record used to recover a session.
type Snapshot struct {
	ID           string       `json:"id"`
	CreatedAt    time.Time    `json:"createdAt"`
	Trigger      Trigger      `json:"trigger"`
	ContextState State        `json:"contextState"`
	StageID      string       `json:"stageId"`
	StageName    string       `json:"stageName"`
	Progress     TaskProgress `json:"progress"`
	KeyContext   KeyContext   `json:"keyContext"`
	Recovery     Recovery     `json:"recovery"`
}

// SnapshotOptions supplies the caller-known parts of a snapshot.
type SnapshotOptions struct {
	CompletedTasks  []string
	InProgressTasks []string
	PendingTasks    []string
	Decisions       []string
	ModifiedFiles   []string
	ActiveIssues    []string
	HandoffRef      string
	CheckpointRef   string
}

// TaskCompletion is one entry of the append-only task log.
type TaskCompletion struct {
	TaskID      string    `json:"taskId"`
	Description string    `json:"description"`
	CompletedAt time.Time `json:"completedAt"`
	StageID     string    `json:"stageId"`
}

// TaskLogResult is returned by LogTaskCompletion. SnapshotDue is set when
// the log length reached a multiple of the save frequency; RecentTasks
// then holds the descriptions of the last N tasks.
type TaskLogResult struct {
	Task        TaskCompletion `json:"task"`
	SnapshotDue bool           `json:"snapshotDue"`
	RecentTasks []string       `json:"recentTasks,omitempty"`
}

// ActionType names a recommended response to the current threshold.
type ActionType string

const (
	ActionDisplayBanner   ActionType = "display_banner"
	ActionSaveSnapshot    ActionType = "save_snapshot"
	ActionSuggestCompress ActionType = "suggest_compress"
	ActionPromptConfirm   ActionType = "prompt_confirm"
)

// Priority ranks a recommended action.
type Priority string

const (
	PriorityInfo     Priority = "info"
	PriorityWarning  Priority = "warning"
	PriorityCritical Priority = "critical"
)

// Action is one recommended response to the current budget reading.
type Action struct {
	Type     ActionType `json:"type"`
	Message  string     `json:"message"`
	Priority Priority   `json:"priority"`
}
