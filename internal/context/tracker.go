package context

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

const (
	StateFile      = "context_state.json"
	TaskLogFile    = "task_log.json"
	SnapshotPrefix = "state_"
)

// StageSource reports the pipeline's current stage.
type StageSource interface {
	CurrentStage() (config.StageDefinition, bool, error)
}

// Tracker reads and writes context state, snapshots and the task log
// under a single directory.
type Tracker struct {
	dir       string
	cutoffs   Cutoffs
	frequency int
	maxTokens int
	stages    StageSource

	now      func() time.Time
	newID    func() string
	progress io.Writer // live progress output; nil = silent
}

// NewTracker creates a Tracker rooted at dir using the thresholds, save
// frequency and token budget from cfg. stages may be nil, in which case
// snapshots are attributed to an unknown stage.
func NewTracker(dir string, cfg config.ContextConfig, stages StageSource) *Tracker {
	freq := cfg.TaskSaveFrequency
	if freq < 1 {
		freq = 1
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}
	return &Tracker{
		dir:       dir,
		cutoffs:   Cutoffs{Warning: cfg.Warning, Action: cfg.Action, Critical: cfg.Critical},
		frequency: freq,
		maxTokens: maxTokens,
		stages:    stages,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (t *Tracker) SetProgress(w io.Writer) {
	t.progress = w
}

func (t *Tracker) logf(format string, args ...any) {
	if t.progress != nil {
		fmt.Fprintf(t.progress, "  → "+format+"\n", args...)
	}
}

// Dir returns the directory holding all context files.
func (t *Tracker) Dir() string {
	return t.dir
}

// Cutoffs returns the configured threshold cutoffs.
func (t *Tracker) Cutoffs() Cutoffs {
	return t.cutoffs
}

// SaveFrequency is the number of logged tasks between automatic snapshots.
func (t *Tracker) SaveFrequency() int {
	return t.frequency
}

func (t *Tracker) statePath() string {
	return filepath.Join(t.dir, StateFile)
}

// Get returns the current state, or nil before the first update. A
// corrupt state file reads as absent.
func (t *Tracker) Get() (*State, error) {
	var s State
	if err := pipeline.ReadJSON(t.statePath(), &s); err != nil {
		if os.IsNotExist(err) || errors.Is(err, pipeline.ErrCorrupt) {
			return nil, nil
		}
		return nil, fmt.Errorf("read context state: %w", err)
	}
	return &s, nil
}

// Update merges u onto the prior state (or a zeroed default), derives
// the usage percentage from tokens when only tokens change, recomputes
// the threshold and persists the result.
func (t *Tracker) Update(u StateUpdate) (*State, error) {
	if u.UsagePercent != nil && (*u.UsagePercent < 0 || *u.UsagePercent > 100 || math.IsNaN(*u.UsagePercent)) {
		return nil, fmt.Errorf("usage percent must be between 0 and 100, got %g", *u.UsagePercent)
	}
	if u.TokensUsed != nil && *u.TokensUsed < 0 {
		return nil, fmt.Errorf("tokens used must not be negative, got %d", *u.TokensUsed)
	}
	if u.MaxTokens != nil && *u.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", *u.MaxTokens)
	}

	prior, err := t.Get()
	if err != nil {
		return nil, err
	}
	s := t.zeroState()
	if prior != nil {
		s = *prior
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = t.maxTokens
	}

	if u.MaxTokens != nil {
		s.MaxTokens = *u.MaxTokens
	}
	if u.TokensUsed != nil {
		s.TokensUsed = *u.TokensUsed
	}
	switch {
	case u.UsagePercent != nil:
		s.UsagePercent = *u.UsagePercent
	case u.TokensUsed != nil || u.MaxTokens != nil:
		s.UsagePercent = math.Min(100, float64(s.TokensUsed)*100/float64(s.MaxTokens))
	}

	s.Threshold = t.cutoffs.Classify(s.UsagePercent)
	s.Timestamp = t.now().UTC()

	if err := pipeline.WriteJSON(t.statePath(), s); err != nil {
		return nil, fmt.Errorf("write context state: %w", err)
	}
	t.logf("context %.1f%% used (%s)", s.UsagePercent, s.Threshold)
	return &s, nil
}

func (t *Tracker) zeroState() State {
	return State{
		MaxTokens: t.maxTokens,
		Threshold: ThresholdNormal,
		Timestamp: t.now().UTC(),
	}
}

// Remaining returns the unused budget percentage, 100 before any update.
func (t *Tracker) Remaining() (float64, error) {
	s, err := t.Get()
	if err != nil || s == nil {
		return 100, err
	}
	return s.Remaining(), nil
}

// RecommendedActions lists what the caller should do about the current
// threshold. There are none before the first update.
func (t *Tracker) RecommendedActions() ([]Action, error) {
	s, err := t.Get()
	if err != nil || s == nil {
		return []Action{}, err
	}
	return ActionsFor(*s), nil
}

// ActionsFor maps a state's threshold to its recommended actions.
func ActionsFor(s State) []Action {
	remaining := s.Remaining()
	switch s.Threshold {
	case ThresholdWarning:
		return []Action{{
			Type:     ActionDisplayBanner,
			Message:  fmt.Sprintf("Context warning: %.1f%% remaining", remaining),
			Priority: PriorityInfo,
		}}
	case ThresholdAction:
		return []Action{
			{
				Type:     ActionSaveSnapshot,
				Message:  fmt.Sprintf("Auto-saving context state (%.1f%% remaining)", remaining),
				Priority: PriorityWarning,
			},
			{
				Type:     ActionSuggestCompress,
				Message:  "Consider compressing context with /context compress",
				Priority: PriorityWarning,
			},
		}
	case ThresholdCritical:
		return []Action{
			{
				Type:     ActionSaveSnapshot,
				Message:  fmt.Sprintf("Critical: force-saving context state (%.1f%% remaining)", remaining),
				Priority: PriorityCritical,
			},
			{
				Type:     ActionPromptConfirm,
				Message:  "Context nearly exhausted. Clear context with /clear?",
				Priority: PriorityCritical,
			},
		}
	}
	return []Action{}
}

// FormatStatus renders a one-line status such as
// "[🟡 Context: 55% | 90k tokens]".
func (t *Tracker) FormatStatus() (string, error) {
	s, err := t.Get()
	if err != nil {
		return "", err
	}
	return FormatState(s), nil
}

// FormatState renders s like FormatStatus; nil renders as unknown.
func FormatState(s *State) string {
	if s == nil {
		return "[Context: Unknown]"
	}
	tokensK := int(math.Round(float64(s.TokensUsed) / 1000))
	return fmt.Sprintf("[%s Context: %.0f%% | %dk tokens]", s.Threshold.Icon(), s.Remaining(), tokensK)
}

// CreateSnapshot persists an immutable snapshot of the current state,
// attributed to the current stage, with whichever lists opts supplies.
func (t *Tracker) CreateSnapshot(trigger Trigger, opts SnapshotOptions) (*Snapshot, error) {
	if !trigger.Valid() {
		return nil, fmt.Errorf("unknown snapshot trigger %q", trigger)
	}
	state, err := t.Get()
	if err != nil {
		return nil, err
	}
	if state == nil {
		z := t.zeroState()
		state = &z
	}

	stageID, stageName := "unknown", "Unknown Stage"
	if t.stages != nil {
		def, ok, err := t.stages.CurrentStage()
		if err != nil {
			return nil, fmt.Errorf("resolve current stage: %w", err)
		}
		if ok {
			stageID, stageName = def.ID, def.Name
		}
	}

	created := t.now().UTC()
	id, err := t.nextSnapshotID(stageID, created)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:           id,
		CreatedAt:    created,
		Trigger:      trigger,
		ContextState: *state,
		StageID:      stageID,
		StageName:    stageName,
		Progress: TaskProgress{
			CompletedTasks:  orEmpty(opts.CompletedTasks),
			InProgressTasks: orEmpty(opts.InProgressTasks),
			PendingTasks:    orEmpty(opts.PendingTasks),
		},
		KeyContext: KeyContext{
			Decisions:     orEmpty(opts.Decisions),
			ModifiedFiles: orEmpty(opts.ModifiedFiles),
			ActiveIssues:  orEmpty(opts.ActiveIssues),
		},
		Recovery: Recovery{
			ResumeFrom:    stageID,
			HandoffRef:    opts.HandoffRef,
			CheckpointRef: opts.CheckpointRef,
		},
	}

	if err := pipeline.WriteJSON(filepath.Join(t.dir, id+".json"), snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	t.logf("snapshot %s saved (%s)", id, trigger)
	return snap, nil
}

// nextSnapshotID returns state_<timestamp>_<stage token>, suffixed -02,
// -03, ... when that id is taken.
func (t *Tracker) nextSnapshotID(stageID string, created time.Time) (string, error) {
	token, _, _ := strings.Cut(stageID, "-")
	base := fmt.Sprintf("%s%s_%s", SnapshotPrefix, created.Format("2006-01-02T15-04-05"), token)
	id := base
	for n := 2; pipeline.Exists(filepath.Join(t.dir, id+".json")); n++ {
		if n > 99 {
			return "", fmt.Errorf("too many snapshots within one second")
		}
		id = fmt.Sprintf("%s-%02d", base, n)
	}
	return id, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// ListSnapshots returns every readable snapshot, newest first.
func (t *Tracker) ListSnapshots() ([]Snapshot, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", t.dir, err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, SnapshotPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		var s Snapshot
		if err := pipeline.ReadJSON(filepath.Join(t.dir, name), &s); err != nil {
			continue
		}
		snaps = append(snaps, s)
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
		}
		return snaps[i].ID > snaps[j].ID
	})
	return snaps, nil
}

// LatestSnapshot returns the newest snapshot, or nil if there are none.
func (t *Tracker) LatestSnapshot() (*Snapshot, error) {
	snaps, err := t.ListSnapshots()
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// GetSnapshot loads one snapshot by id, or nil if it does not exist.
func (t *Tracker) GetSnapshot(id string) (*Snapshot, error) {
	if !strings.HasPrefix(id, SnapshotPrefix) || !filepath.IsLocal(id) {
		return nil, nil
	}
	var s Snapshot
	if err := pipeline.ReadJSON(filepath.Join(t.dir, id+".json"), &s); err != nil {
		if os.IsNotExist(err) || errors.Is(err, pipeline.ErrCorrupt) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// WriteRecovery stores the recovery markdown for a snapshot next to its
// JSON record and returns the path written.
func (t *Tracker) WriteRecovery(snapshotID, markdown string) (string, error) {
	path := filepath.Join(t.dir, snapshotID+".md")
	if err := pipeline.WriteAtomic(path, []byte(markdown)); err != nil {
		return "", fmt.Errorf("write recovery document: %w", err)
	}
	return path, nil
}
