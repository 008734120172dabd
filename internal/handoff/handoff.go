// Package handoff renders and stores the HANDOFF.md document that gates a
// stage transition, and the recovery document written next to a context
// snapshot.
package handoff

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lucasnoah/axpipe/internal/config"
	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

// Output is one row of the outputs table.
type Output struct {
	Name        string
	Description string
}

// AICall is one row of the AI call table.
type AICall struct {
	Provider string
	Time     time.Time
	Detail   string
	OK       bool
}

// Data is everything a HANDOFF.md summarises.
type Data struct {
	StageID              string
	StageName            string
	Timestamp            time.Time
	CompletedTasks       []string
	KeyDecisions         []string
	SuccessfulApproaches []string
	FailedApproaches     []string
	Outputs              []Output
	NextStageName        string // "" when the stage is the last one
	ImmediateActions     []string
	Prerequisites        []string
	CheckpointRef        string
	AICalls              []AICall
	Notes                string
}

// QuickData fills Data from what the engine already knows: the produced
// outputs become completed tasks and the next stage's declared outputs
// become immediate actions.
func QuickData(st config.StageDefinition, next *config.StageDefinition, present []string, checkpointRef string) Data {
	d := Data{
		StageID:       st.ID,
		StageName:     st.Name,
		CheckpointRef: checkpointRef,
		KeyDecisions:  []string{"(generated automatically; add details before moving on)"},
	}
	for _, o := range present {
		d.CompletedTasks = append(d.CompletedTasks, o+" created")
		d.Outputs = append(d.Outputs, Output{Name: o})
	}
	if next != nil {
		d.NextStageName = next.Name
		for _, o := range next.Outputs {
			d.ImmediateActions = append(d.ImmediateActions, "Produce "+o)
		}
		for _, in := range next.Inputs {
			d.Prerequisites = append(d.Prerequisites, in+" available")
		}
	}
	return d
}

// Vars converts d into template variables.
func (d Data) Vars() Vars {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	next := d.NextStageName
	if next == "" {
		next = "Pipeline complete"
	}

	outputs := "| (no outputs) | - |"
	if len(d.Outputs) > 0 {
		rows := make([]string, len(d.Outputs))
		for i, o := range d.Outputs {
			desc := o.Description
			if desc == "" {
				desc = "created"
			}
			rows[i] = fmt.Sprintf("| %s | %s |", o.Name, desc)
		}
		outputs = strings.Join(rows, "\n")
	}

	calls := "| (no AI calls) | - | - | - |"
	if len(d.AICalls) > 0 {
		rows := make([]string, len(d.AICalls))
		for i, c := range d.AICalls {
			status := "✅"
			if !c.OK {
				status = "❌"
			}
			rows[i] = fmt.Sprintf("| %s | %s | %s | %s |", c.Provider, c.Time.Format(time.RFC3339), c.Detail, status)
		}
		calls = strings.Join(rows, "\n")
	}

	notes := d.Notes
	if notes == "" {
		notes = "(no additional notes)"
	}
	noCheckpoint := ""
	if d.CheckpointRef == "" {
		noCheckpoint = "true"
	}

	return Vars{
		"stage_name":            d.StageName,
		"stage_id":              d.StageID,
		"timestamp":             ts.UTC().Format(time.RFC3339),
		"completed_tasks":       bulletList(d.CompletedTasks, "- [x] ", "- [ ] (record completed work)"),
		"key_decisions":         bulletList(d.KeyDecisions, "- ", "- (record key decisions)"),
		"successful_approaches": bulletList(d.SuccessfulApproaches, "- ", "- (record what worked)"),
		"failed_approaches":     bulletList(d.FailedApproaches, "- ", "- (none)"),
		"outputs_table":         outputs,
		"next_stage_name":       next,
		"immediate_actions":     numberedList(d.ImmediateActions, "1. (define the next actions)"),
		"prerequisites":         bulletList(d.Prerequisites, "- ", "- (none)"),
		"checkpoint_ref":        d.CheckpointRef,
		"no_checkpoint":         noCheckpoint,
		"ai_calls_table":        calls,
		"notes":                 notes,
	}
}

// RenderHandoff renders d with tmpl. An empty tmpl uses the built-in template.
func RenderHandoff(tmpl string, d Data) (string, error) {
	if tmpl == "" {
		tmpl = handoffTemplate
	}
	return Render(tmpl, d.Vars())
}

// RenderRecovery renders the recovery document for s. An empty tmpl uses
// the built-in template.
func RenderRecovery(tmpl string, s appctx.Snapshot) (string, error) {
	if tmpl == "" {
		tmpl = recoveryTemplate
	}
	handoffRef := s.Recovery.HandoffRef
	if handoffRef == "" {
		handoffRef = "HANDOFF.md"
	}
	resume := s.Recovery.ResumeFrom
	if len(s.Progress.InProgressTasks) > 0 {
		resume = s.Progress.InProgressTasks[0]
	}
	if resume == "" {
		resume = "the last task"
	}
	return Render(tmpl, Vars{
		"created_at":        s.CreatedAt.UTC().Format(time.RFC3339),
		"remaining":         fmt.Sprintf("%.1f", s.ContextState.Remaining()),
		"trigger":           string(s.Trigger),
		"stage_id":          s.StageID,
		"stage_name":        s.StageName,
		"completed_tasks":   bulletList(s.Progress.CompletedTasks, "- [x] ", "- (none)"),
		"in_progress_tasks": bulletList(s.Progress.InProgressTasks, "- [ ] ", "- (none)"),
		"pending_tasks":     bulletList(s.Progress.PendingTasks, "- [ ] ", "- (none)"),
		"decisions":         bulletList(s.KeyContext.Decisions, "- ", "- (none)"),
		"modified_files":    bulletList(s.KeyContext.ModifiedFiles, "- ", "- (none)"),
		"active_issues":     bulletList(s.KeyContext.ActiveIssues, "- ", "- (none)"),
		"handoff_ref":       handoffRef,
		"checkpoint_ref":    s.Recovery.CheckpointRef,
		"resume_from":       resume,
	})
}

// Save writes body to the stage's HANDOFF.md atomically and returns its path.
func Save(layout config.Layout, stageID, body string) (string, error) {
	path := layout.HandoffPath(stageID)
	if err := pipeline.WriteAtomic(path, []byte(body)); err != nil {
		return "", fmt.Errorf("save handoff: %w", err)
	}
	return path, nil
}

// Exists reports whether the stage has a HANDOFF.md.
func Exists(layout config.Layout, stageID string) bool {
	return pipeline.Exists(layout.HandoffPath(stageID))
}

// Load reads the stage's HANDOFF.md. ok is false when it does not exist.
func Load(layout config.Layout, stageID string) (body string, ok bool, err error) {
	data, err := os.ReadFile(layout.HandoffPath(stageID))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read handoff: %w", err)
	}
	return string(data), true, nil
}

func bulletList(items []string, prefix, empty string) string {
	if len(items) == 0 {
		return empty
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = prefix + it
	}
	return strings.Join(lines, "\n")
}

func numberedList(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, it)
	}
	return strings.Join(lines, "\n")
}
