package handoff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lucasnoah/axpipe/internal/config"
	appctx "github.com/lucasnoah/axpipe/internal/context"
)

func TestRender_SimpleVars(t *testing.T) {
	result, err := Render("Stage {{stage_id}}: {{stage_name}}.", Vars{
		"stage_id":   "01-brainstorm",
		"stage_name": "Brainstorming",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Stage 01-brainstorm: Brainstorming." {
		t.Errorf("got %q", result)
	}
}

func TestRender_MissingVars(t *testing.T) {
	_, err := Render("{{a}} and {{b}}", Vars{"a": "x"})
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), "b") {
		t.Errorf("error should mention missing variable, got: %v", err)
	}
}

func TestRender_Conditionals(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars Vars
		want string
	}{
		{"present", "A{{#if x}}[{{x}}]{{/if}}B", Vars{"x": "1"}, "A[1]B"},
		{"absent", "A{{#if x}}[{{x}}]{{/if}}B", Vars{}, "AB"},
		{"empty", "A{{#if x}}[x]{{/if}}B", Vars{"x": ""}, "AB"},
		{"nested", "{{#if a}}outer {{#if b}}inner{{/if}} end{{/if}}", Vars{"a": "y", "b": "y"}, "outer inner end"},
		{"nested outer absent", "S{{#if a}}o {{#if b}}i{{/if}} e{{/if}}F", Vars{"b": "y"}, "SF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_MalformedConditionals(t *testing.T) {
	if _, err := Render("x{{/if}}", Vars{}); err == nil || !strings.Contains(err.Error(), "dangling") {
		t.Errorf("dangling close: err = %v", err)
	}
	if _, err := Render("{{#if x}}open", Vars{"x": "1"}); err == nil || !strings.Contains(err.Error(), "unclosed") {
		t.Errorf("unclosed open: err = %v", err)
	}
}

func TestRender_ValuesNotReexpanded(t *testing.T) {
	got, err := Render("{{a}} and {{b}}", Vars{"a": "{{b}}", "b": "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "{{b}} and hello" {
		t.Errorf("got %q", got)
	}
}

func TestLoadTemplate(t *testing.T) {
	project := t.TempDir()

	got, err := LoadTemplate(project, HandoffTemplate)
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	if got != handoffTemplate {
		t.Error("expected built-in handoff template")
	}

	dir := filepath.Join(project, TemplateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, HandoffTemplate), []byte("custom {{stage_id}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadTemplate(project, HandoffTemplate)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if got != "custom {{stage_id}}" {
		t.Errorf("got %q, want override", got)
	}

	if _, err := LoadTemplate(project, "nonexistent.md"); err == nil {
		t.Error("expected error for unknown template")
	}
	if _, err := LoadTemplate(project, "../../secret.txt"); err == nil {
		t.Error("expected error for path escaping template dir")
	}
}

func TestRenderHandoff(t *testing.T) {
	d := Data{
		StageID:        "02-research",
		StageName:      "Research",
		Timestamp:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		CompletedTasks: []string{"tech_research.md created"},
		Outputs:        []Output{{Name: "tech_research.md", Description: "stack survey"}},
		NextStageName:  "Planning",
		CheckpointRef:  "cp-02-2026-03-01T09-00-00",
		AICalls: []AICall{
			{Provider: "gemini", Time: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), Detail: "gemini 12s", OK: true},
			{Provider: "codex", Time: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC), Detail: "codex timed out", OK: false},
		},
	}

	got, err := RenderHandoff("", d)
	if err != nil {
		t.Fatalf("RenderHandoff: %v", err)
	}
	for _, want := range []string{
		"# HANDOFF - Research",
		"> Generated: 2026-03-01T09:00:00Z",
		"- [x] tech_research.md created",
		"| tech_research.md | stack survey |",
		"## 3. Next Stage: Planning",
		"Checkpoint ID: `cp-02-2026-03-01T09-00-00`",
		"| gemini | 2026-03-01T08:00:00Z | gemini 12s | ✅ |",
		"| codex | 2026-03-01T08:30:00Z | codex timed out | ❌ |",
		"(no additional notes)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("handoff missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "No checkpoint") {
		t.Error("unexpected 'No checkpoint' line")
	}
}

func TestRenderHandoff_Defaults(t *testing.T) {
	got, err := RenderHandoff("", Data{StageID: "10-deployment", StageName: "Deployment"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"## 3. Next Stage: Pipeline complete",
		"| (no outputs) | - |",
		"No checkpoint",
		"| (no AI calls) | - | - | - |",
		"1. (define the next actions)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("handoff missing %q", want)
		}
	}
}

func TestQuickData(t *testing.T) {
	def := config.DefaultPipeline()
	cur, next := def.Stages[0], def.Stages[1]

	d := QuickData(cur, &next, []string{"ideas.md"}, "cp-1")
	if d.StageID != cur.ID || d.NextStageName != next.Name || d.CheckpointRef != "cp-1" {
		t.Errorf("data = %+v", d)
	}
	if len(d.CompletedTasks) != 1 || d.CompletedTasks[0] != "ideas.md created" {
		t.Errorf("CompletedTasks = %v", d.CompletedTasks)
	}
	if len(d.ImmediateActions) != len(next.Outputs) {
		t.Errorf("ImmediateActions = %v, want one per next-stage output", d.ImmediateActions)
	}

	last := QuickData(def.Stages[len(def.Stages)-1], nil, nil, "")
	if last.NextStageName != "" || len(last.ImmediateActions) != 0 {
		t.Errorf("last stage data = %+v", last)
	}
}

func TestRenderRecovery(t *testing.T) {
	snap := appctx.Snapshot{
		ID:           "state_2026-03-01T09-00-00_02",
		CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Trigger:      appctx.TriggerThreshold,
		ContextState: appctx.State{UsagePercent: 62.5},
		StageID:      "02-research",
		StageName:    "Research",
		Progress: appctx.TaskProgress{
			CompletedTasks:  []string{"survey"},
			InProgressTasks: []string{"compare frameworks"},
		},
		KeyContext: appctx.KeyContext{ModifiedFiles: []string{"notes.md"}},
		Recovery:   appctx.Recovery{CheckpointRef: "cp-02-x"},
	}

	got, err := RenderRecovery("", snap)
	if err != nil {
		t.Fatalf("RenderRecovery: %v", err)
	}
	for _, want := range []string{
		"# Saved Work State - 2026-03-01T09:00:00Z",
		"- Remaining context: 37.5%",
		"- Trigger: threshold",
		"02-research: Research",
		"- [x] survey",
		"- [ ] compare frameworks",
		"- notes.md",
		"2. Read HANDOFF.md",
		"3. Checkpoint available: `cp-02-x`",
		"- Resume 02-research from compare frameworks",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("recovery missing %q\n%s", want, got)
		}
	}
}

func TestSaveLoadExists(t *testing.T) {
	layout := config.Defaults().Layout(t.TempDir())

	if Exists(layout, "01-brainstorm") {
		t.Fatal("handoff should not exist yet")
	}
	if _, ok, err := Load(layout, "01-brainstorm"); ok || err != nil {
		t.Fatalf("Load missing = %v, %v", ok, err)
	}

	path, err := Save(layout, "01-brainstorm", "# HANDOFF\n")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != layout.HandoffPath("01-brainstorm") {
		t.Errorf("path = %q", path)
	}
	if !Exists(layout, "01-brainstorm") {
		t.Error("Exists = false after Save")
	}
	body, ok, err := Load(layout, "01-brainstorm")
	if err != nil || !ok || body != "# HANDOFF\n" {
		t.Errorf("Load = %q, %v, %v", body, ok, err)
	}
}
