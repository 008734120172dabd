package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/lock"
	"github.com/lucasnoah/axpipe/internal/session"
)

func executeCommand(args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default so one test
// invocation does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// newProject initialises a project in a temp dir with HOME isolated.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	if out, err := executeCommand("-C", dir, "init"); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	return dir
}

func stubConfirm(t *testing.T, answer bool) *int {
	t.Helper()
	asked := 0
	orig := confirm
	confirm = func(*cobra.Command, string) (bool, error) {
		asked++
		return answer, nil
	}
	t.Cleanup(func() { confirm = orig })
	return &asked
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func stageFile(dir, stageID, sub, name string) string {
	return filepath.Join(dir, "stages", stageID, sub, name)
}

func writeBrief(t *testing.T, dir string) {
	writeFile(t, stageFile(dir, "01-brainstorm", "inputs", "project_brief.md"), "# Brief\n")
}

func writeBrainstormOutputs(t *testing.T, dir string) {
	writeFile(t, stageFile(dir, "01-brainstorm", "outputs", "ideas.md"), "# Ideas\n")
	writeFile(t, stageFile(dir, "01-brainstorm", "outputs", "requirements_analysis.md"), "# Requirements\n")
}

func statusJSON(t *testing.T, dir string) statusView {
	t.Helper()
	out, err := executeCommand("-C", dir, "status", "--format", "json")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	var v statusView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("parse status: %v\n%s", err, out)
	}
	return v
}

func TestPreviewCutsOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("인계", 300)

	got := preview(body, 500)
	if !utf8.ValidString(got) {
		t.Fatalf("preview produced invalid UTF-8: %q", got[len(got)-10:])
	}
	want := strings.Repeat("인계", 250) + "\n..."
	if got != want {
		t.Errorf("preview kept %d runes, want 500", utf8.RuneCountInString(strings.TrimSuffix(got, "\n...")))
	}

	if got := preview("짧은 문서", 500); got != "짧은 문서" {
		t.Errorf("short body changed: %q", got)
	}
	exact := strings.Repeat("가", 10)
	if got := preview(exact, 10); got != exact {
		t.Errorf("body of exactly n runes changed: %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"init", "stages", "status", "run-stage", "complete", "fail", "skip",
		"next", "validate", "checkpoint", "restore", "context", "task",
		"handoff", "config", "journal", "gemini", "codex", "serve", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestNestedSubcommands(t *testing.T) {
	cases := map[string][]string{
		"checkpoint": {"create", "list", "show"},
		"context":    {"status", "update", "snapshot", "history", "show", "watch"},
		"config":     {"validate", "show", "env"},
		"task":       {"done"},
	}
	for parent, subs := range cases {
		for _, sub := range subs {
			out, err := executeCommand(parent, sub, "--help")
			if err != nil {
				t.Errorf("%s %s --help failed: %v", parent, sub, err)
			}
			if out == "" {
				t.Errorf("%s %s --help produced no output", parent, sub)
			}
		}
	}
}

func TestInit(t *testing.T) {
	dir := newProject(t)

	for _, p := range []string{
		filepath.Join(dir, config.ProjectConfigFile),
		filepath.Join(dir, "stages", "01-brainstorm", "outputs"),
		filepath.Join(dir, "stages", "01-brainstorm", "inputs"),
		filepath.Join(dir, "stages", "10-deployment", "outputs"),
		filepath.Join(dir, "state", "progress.json"),
		filepath.Join(dir, "state", "journal.db"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}

	out, err := executeCommand("-C", dir, "init")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if !strings.Contains(out, "exists") {
		t.Errorf("second init should leave the config alone, got: %s", out)
	}
}

func TestInitWithPipeline(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	if out, err := executeCommand("-C", dir, "init", "--with-pipeline"); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}

	def, source, err := config.LoadPipeline(dir)
	if err != nil {
		t.Fatalf("LoadPipeline: %v", err)
	}
	if source == "" {
		t.Error("expected the pipeline to be read from config/pipeline.yaml")
	}
	if len(def.Stages) != 10 {
		t.Errorf("expected 10 stages, got %d", len(def.Stages))
	}
}

func TestStagesJSON(t *testing.T) {
	dir := newProject(t)
	out, err := executeCommand("-C", dir, "stages", "--format", "json")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	var rows []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("parse: %v\n%s", err, out)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 stages, got %d", len(rows))
	}
	if rows[0].ID != "01-brainstorm" || rows[0].Status != "pending" {
		t.Errorf("first row = %+v", rows[0])
	}
}

func TestRunStage(t *testing.T) {
	dir := newProject(t)

	_, err := executeCommand("-C", dir, "run-stage", "01-brainstorm")
	if err == nil || !strings.Contains(err.Error(), "input(s) missing") {
		t.Fatalf("expected missing input error, got %v", err)
	}

	writeBrief(t, dir)
	out, err := executeCommand("-C", dir, "run-stage", "01-brainstorm")
	if err != nil {
		t.Fatalf("run-stage: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ideas.md") {
		t.Errorf("expected outputs list in output, got: %s", out)
	}

	v := statusJSON(t, dir)
	if v.CurrentStage != "01-brainstorm" || v.InProgress != 1 {
		t.Errorf("status = %+v", v.Summary)
	}

	out, err = executeCommand("-C", dir, "run-stage", "01-brainstorm")
	if err != nil {
		t.Fatalf("second run-stage: %v", err)
	}
	if !strings.Contains(out, "already in progress") {
		t.Errorf("expected in-progress notice, got: %s", out)
	}
}

func TestRunStageDryRun(t *testing.T) {
	dir := newProject(t)
	writeBrief(t, dir)

	out, err := executeCommand("-C", dir, "run-stage", "01-brainstorm", "--dry-run")
	if err != nil {
		t.Fatalf("dry run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Dry run") {
		t.Errorf("expected dry run notice, got: %s", out)
	}
	if v := statusJSON(t, dir); v.InProgress != 0 {
		t.Errorf("dry run must not start the stage, got %+v", v.Summary)
	}
}

func TestRunStageUnknown(t *testing.T) {
	dir := newProject(t)
	_, err := executeCommand("-C", dir, "run-stage", "99-nope")
	if err == nil || !strings.Contains(err.Error(), "stage not found") {
		t.Errorf("expected stage not found, got %v", err)
	}
}

func TestRunStageBlockedTransition(t *testing.T) {
	dir := newProject(t)

	_, err := executeCommand("-C", dir, "run-stage", "02-research")
	if err == nil || !strings.Contains(err.Error(), "not valid") {
		t.Fatalf("expected blocked transition, got %v", err)
	}

	out, err := executeCommand("-C", dir, "run-stage", "02-research", "--force")
	if err != nil {
		t.Fatalf("forced run-stage: %v\n%s", err, out)
	}
	if v := statusJSON(t, dir); v.CurrentStage != "02-research" {
		t.Errorf("current = %q, want 02-research", v.CurrentStage)
	}
}

func TestNextFlow(t *testing.T) {
	dir := newProject(t)
	writeBrief(t, dir)

	if out, err := executeCommand("-C", dir, "next", "--yes"); err != nil {
		t.Fatalf("first next: %v\n%s", err, out)
	}
	if v := statusJSON(t, dir); v.CurrentStage != "01-brainstorm" {
		t.Fatalf("current = %q, want 01-brainstorm", v.CurrentStage)
	}

	out, err := executeCommand("-C", dir, "next", "--yes")
	if err == nil {
		t.Fatal("expected next to be blocked without outputs and hand-off")
	}
	if !strings.Contains(out, "HANDOFF.md not found") {
		t.Errorf("expected hand-off error in output, got: %s", out)
	}

	writeBrainstormOutputs(t, dir)
	if out, err := executeCommand("-C", dir, "handoff"); err != nil {
		t.Fatalf("handoff: %v\n%s", err, out)
	}
	if out, err := executeCommand("-C", dir, "next", "--yes"); err != nil {
		t.Fatalf("next: %v\n%s", err, out)
	}

	v := statusJSON(t, dir)
	if v.CurrentStage != "02-research" || v.Completed != 1 || v.InProgress != 1 {
		t.Errorf("status = %+v", v.Summary)
	}
	if sp := v.Stages["01-brainstorm"]; len(sp.Outputs) != 2 {
		t.Errorf("completed outputs = %v", sp.Outputs)
	}

	out, err = executeCommand("-C", dir, "context", "history", "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, `"trigger": "stage_transition"`) {
		t.Errorf("expected a stage_transition snapshot, got: %s", out)
	}
}

func TestNextDeclined(t *testing.T) {
	dir := newProject(t)
	writeBrief(t, dir)
	asked := stubConfirm(t, false)

	out, err := executeCommand("-C", dir, "next")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if *asked != 1 {
		t.Errorf("confirm asked %d times, want 1", *asked)
	}
	if !strings.Contains(out, "Cancelled") {
		t.Errorf("expected cancel notice, got: %s", out)
	}
	if v := statusJSON(t, dir); v.CurrentStage != "" {
		t.Errorf("declined next must not start a stage, current = %q", v.CurrentStage)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := newProject(t)

	out, err := executeCommand("-C", dir, "validate", "01-brainstorm", "02-research", "--format", "json")
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
	if !strings.Contains(out, `"valid": false`) || !strings.Contains(out, `"fromStage": "01-brainstorm"`) {
		t.Errorf("unexpected output: %s", out)
	}

	writeBrainstormOutputs(t, dir)
	writeFile(t, filepath.Join(dir, "stages", "01-brainstorm", "HANDOFF.md"), "# Handoff\n")
	out, err = executeCommand("-C", dir, "validate", "01-brainstorm", "02-research")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("expected valid message, got: %s", out)
	}
}

func TestCompleteCheckpointRestore(t *testing.T) {
	dir := newProject(t)
	writeBrief(t, dir)
	writeBrainstormOutputs(t, dir)

	if _, err := executeCommand("-C", dir, "run-stage", "01-brainstorm"); err != nil {
		t.Fatalf("run-stage: %v", err)
	}
	if out, err := executeCommand("-C", dir, "complete", "--checkpoint"); err != nil {
		t.Fatalf("complete: %v\n%s", err, out)
	}

	out, err := executeCommand("-C", dir, "checkpoint", "list", "--format", "json")
	if err != nil {
		t.Fatalf("checkpoint list: %v", err)
	}
	var cps []struct {
		ID      string   `json:"id"`
		StageID string   `json:"stageId"`
		Files   []string `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &cps); err != nil {
		t.Fatalf("parse: %v\n%s", err, out)
	}
	if len(cps) != 1 || cps[0].StageID != "01-brainstorm" || len(cps[0].Files) != 2 {
		t.Fatalf("checkpoints = %+v", cps)
	}
	id := cps[0].ID

	v := statusJSON(t, dir)
	if got := v.Stages["01-brainstorm"].CheckpointID; got != id {
		t.Errorf("progress checkpoint = %q, want %q", got, id)
	}

	out, err = executeCommand("-C", dir, "checkpoint", "show", id)
	if err != nil || !strings.Contains(out, "ideas.md") {
		t.Errorf("checkpoint show: %v\n%s", err, out)
	}

	ideas := stageFile(dir, "01-brainstorm", "outputs", "ideas.md")
	writeFile(t, ideas, "overwritten\n")

	stubConfirm(t, false)
	if out, err := executeCommand("-C", dir, "restore", id); err != nil || !strings.Contains(out, "Cancelled") {
		t.Fatalf("declined restore: %v\n%s", err, out)
	}
	if data, _ := os.ReadFile(ideas); string(data) != "overwritten\n" {
		t.Fatalf("declined restore changed the file: %q", data)
	}

	if out, err := executeCommand("-C", dir, "restore", id, "--force"); err != nil {
		t.Fatalf("restore: %v\n%s", err, out)
	}
	if data, _ := os.ReadFile(ideas); string(data) != "# Ideas\n" {
		t.Errorf("restored content = %q", data)
	}
}

func TestCheckpointShowUnknown(t *testing.T) {
	dir := newProject(t)
	if _, err := executeCommand("-C", dir, "checkpoint", "show", "cp-01-missing"); err == nil {
		t.Error("expected error for unknown checkpoint")
	}
}

func TestCheckpointWithoutCurrentStage(t *testing.T) {
	dir := newProject(t)
	_, err := executeCommand("-C", dir, "checkpoint")
	if err == nil || !strings.Contains(err.Error(), "no stage in progress") {
		t.Errorf("expected no stage in progress, got %v", err)
	}
}

func TestFailAndSkip(t *testing.T) {
	dir := newProject(t)

	if _, err := executeCommand("-C", dir, "fail", "03-planning"); err == nil {
		t.Error("expected --reason to be required")
	}
	if _, err := executeCommand("-C", dir, "fail", "03-planning", "--reason", "bad plan"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, err := executeCommand("-C", dir, "skip", "04-ui-ux", "--reason", "no UI"); err != nil {
		t.Fatalf("skip: %v", err)
	}

	v := statusJSON(t, dir)
	if v.Failed != 1 || v.Skipped != 1 {
		t.Errorf("status = %+v", v.Summary)
	}
	if got := v.Stages["03-planning"].Error; got != "bad plan" {
		t.Errorf("error = %q", got)
	}
}

func TestContextUpdateAndSnapshot(t *testing.T) {
	dir := newProject(t)

	if _, err := executeCommand("-C", dir, "context", "update"); err == nil {
		t.Error("expected error without any value")
	}

	out, err := executeCommand("-C", dir, "context", "update", "--usage", "55")
	if err != nil {
		t.Fatalf("update: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Context: 45%") {
		t.Errorf("expected status line, got: %s", out)
	}
	if !strings.Contains(out, "Snapshot") {
		t.Errorf("entering the action band should save a snapshot, got: %s", out)
	}

	out, err = executeCommand("-C", dir, "context", "--format", "json")
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	var view contextView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("parse: %v\n%s", err, out)
	}
	if view.Remaining != 45 || len(view.Actions) != 2 {
		t.Errorf("view = %+v", view)
	}

	out, err = executeCommand("-C", dir, "context", "snapshot", "--decision", "use sqlite", "--issue", "flaky build")
	if err != nil {
		t.Fatalf("snapshot: %v\n%s", err, out)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "state", "context", "state_*.md"))
	if len(matches) != 1 {
		t.Fatalf("expected one recovery document, got %v", matches)
	}
	md, _ := os.ReadFile(matches[0])
	if !strings.Contains(string(md), "use sqlite") || !strings.Contains(string(md), "flaky build") {
		t.Errorf("recovery document missing details:\n%s", md)
	}

	out, err = executeCommand("-C", dir, "context", "history", "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var snaps []json.RawMessage
	if err := json.Unmarshal([]byte(out), &snaps); err != nil {
		t.Fatalf("parse: %v\n%s", err, out)
	}
	if len(snaps) != 2 {
		t.Errorf("expected 2 snapshots, got %d", len(snaps))
	}

	out, err = executeCommand("-C", dir, "context")
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if !strings.Contains(out, "Tasks since last snapshot: 0/5") {
		t.Errorf("expected task counter, got: %s", out)
	}

	id := strings.TrimSuffix(filepath.Base(matches[0]), ".md")
	out, err = executeCommand("-C", dir, "context", "show", id)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "use sqlite") {
		t.Errorf("expected rendered snapshot, got: %s", out)
	}
	if _, err := executeCommand("-C", dir, "context", "show", "state_missing"); err == nil {
		t.Error("expected error for unknown snapshot")
	}
}

func TestTaskDone(t *testing.T) {
	dir := newProject(t)

	var out string
	var err error
	for i := 1; i <= 5; i++ {
		out, err = executeCommand("-C", dir, "task", "done", "task", string(rune('0'+i)))
		if err != nil {
			t.Fatalf("task %d: %v", i, err)
		}
		if i < 5 && strings.Contains(out, "Snapshot") {
			t.Errorf("task %d should not trigger a snapshot", i)
		}
	}
	if !strings.Contains(out, "Snapshot") {
		t.Errorf("fifth task should trigger a snapshot, got: %s", out)
	}

	if _, err := executeCommand("-C", dir, "task", "done"); err == nil {
		t.Error("expected error without a description")
	}
}

func TestHandoffOverwrite(t *testing.T) {
	dir := newProject(t)
	writeBrief(t, dir)
	writeBrainstormOutputs(t, dir)
	if _, err := executeCommand("-C", dir, "run-stage", "01-brainstorm"); err != nil {
		t.Fatalf("run-stage: %v", err)
	}

	out, err := executeCommand("-C", dir, "handoff", "--notes", "watch the budget", "--decision", "go with plan B")
	if err != nil {
		t.Fatalf("handoff: %v\n%s", err, out)
	}
	path := filepath.Join(dir, "stages", "01-brainstorm", "HANDOFF.md")
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Brainstorming", "ideas.md", "go with plan B", "watch the budget", "Research"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("HANDOFF.md missing %q", want)
		}
	}

	asked := stubConfirm(t, false)
	if _, err := executeCommand("-C", dir, "handoff", "--notes", "second"); err != nil {
		t.Fatalf("second handoff: %v", err)
	}
	if *asked != 1 {
		t.Errorf("expected overwrite confirmation, asked %d", *asked)
	}
	after, _ := os.ReadFile(path)
	if string(after) != string(body) {
		t.Error("declined overwrite changed HANDOFF.md")
	}
}

func TestConfigValidate(t *testing.T) {
	dir := newProject(t)

	out, err := executeCommand("-C", dir, "config", "validate")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid") {
		t.Errorf("unexpected output: %s", out)
	}

	writeFile(t, filepath.Join(dir, config.ProjectConfigFile), "context:\n  warning: 150\n")
	out, err = executeCommand("-C", dir, "config", "validate")
	if err == nil {
		t.Fatalf("expected invalid config, got: %s", out)
	}
	if !strings.Contains(out, "context.warning") {
		t.Errorf("expected field name in output, got: %s", out)
	}
}

func TestConfigShow(t *testing.T) {
	dir := newProject(t)
	t.Setenv("AX_TMUX_GEMINI", "my-gemini")

	out, err := executeCommand("-C", dir, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "gemini_session: my-gemini") {
		t.Errorf("expected env override in output, got: %s", out)
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("AX_TMUX_GEMINI", "my-gemini")
	t.Setenv("AX_JOURNAL_DSN", "")
	os.Unsetenv("AX_JOURNAL_DSN")

	out, err := executeCommand("config", "env")
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	if !strings.Contains(out, "my-gemini") {
		t.Errorf("expected set value, got: %s", out)
	}
	if !strings.Contains(out, "AX_JOURNAL_DSN") || !strings.Contains(out, "(unset)") {
		t.Errorf("expected unset key, got: %s", out)
	}
}

func TestJournal(t *testing.T) {
	dir := newProject(t)
	writeBrief(t, dir)
	if _, err := executeCommand("-C", dir, "run-stage", "01-brainstorm"); err != nil {
		t.Fatalf("run-stage: %v", err)
	}

	out, err := executeCommand("-C", dir, "journal", "--kind", "stage_started", "--format", "json")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	var events []struct {
		Kind    string `json:"kind"`
		StageID string `json:"stageId"`
	}
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("parse: %v\n%s", err, out)
	}
	if len(events) != 1 || events[0].StageID != "01-brainstorm" {
		t.Errorf("events = %+v", events)
	}
}

func TestMutatingCommandRespectsLock(t *testing.T) {
	dir := newProject(t)

	held, err := lock.Acquire(filepath.Join(dir, "state", ".ax.lock"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.Release()

	_, err = executeCommand("-C", dir, "skip", "02-research")
	if !errors.Is(err, lock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	// Read-only commands do not take the lock.
	out, err := executeCommand("-C", dir, "status")
	if err != nil {
		t.Errorf("status while locked: %v", err)
	}
	if !strings.Contains(out, "Locked by ax process") {
		t.Errorf("expected lock holder in status, got: %s", out)
	}
}

type stubTmux struct {
	running bool
}

func (s *stubTmux) NewSession(string) error { s.running = true; return nil }
func (s *stubTmux) HasSession(string) (bool, error) { return s.running, nil }
func (s *stubTmux) SendKeys(string, string) error { return nil }
func (s *stubTmux) CapturePane(string) (string, error) { return "", nil }
func (s *stubTmux) WaitFor(context.Context, string) error { return nil }

func TestAIStatusAndValidation(t *testing.T) {
	dir := newProject(t)
	orig := newTmux
	newTmux = func() session.TmuxRunner { return &stubTmux{running: true} }
	t.Cleanup(func() { newTmux = orig })

	out, err := executeCommand("-C", dir, "gemini", "--status", "--format", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st session.SessionStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("parse: %v\n%s", err, out)
	}
	if st.Session != "ax-gemini" || !st.Enabled || !st.Running {
		t.Errorf("status = %+v", st)
	}

	if _, err := executeCommand("-C", dir, "codex"); err == nil || !strings.Contains(err.Error(), "prompt is required") {
		t.Errorf("expected prompt error, got %v", err)
	}
}
