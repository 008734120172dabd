// Package session drives the external AI assistant CLIs (gemini, codex)
// through long-lived tmux sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/db"
)

// Provider names an assistant CLI.
type Provider string

const (
	Gemini Provider = "gemini"
	Codex  Provider = "codex"
)

// ParseProvider maps a CLI name to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(s)) {
	case Gemini:
		return Gemini, nil
	case Codex:
		return Codex, nil
	}
	return "", fmt.Errorf("unknown provider %q (want gemini or codex)", s)
}

// CallOpts holds parameters for one assistant call.
type CallOpts struct {
	Provider   Provider
	Prompt     string
	OutputFile string        // "" writes to a temp file
	Timeout    time.Duration // 0 uses tmux.output_timeout
	StageID    string        // recorded in the journal
}

// CallResult is the outcome of a completed or timed-out call.
type CallResult struct {
	ID         string        `json:"id"`
	Provider   Provider      `json:"provider"`
	Session    string        `json:"session"`
	Output     string        `json:"output"`
	OutputFile string        `json:"outputFile"`
	Duration   time.Duration `json:"duration"`
	TimedOut   bool          `json:"timedOut"`
}

// SessionStatus reports whether a provider can be called.
type SessionStatus struct {
	Provider Provider `json:"provider"`
	Session  string   `json:"session"`
	Enabled  bool     `json:"enabled"`
	CLI      bool     `json:"cliInstalled"`
	Running  bool     `json:"running"`
}

// Invoker sends prompts to assistant CLIs and collects their output.
type Invoker struct {
	tmux     TmuxRunner
	cfg      *config.Config
	journal  db.Journal
	lookPath func(string) (string, error)
	tempDir  string
	now      func() time.Time
	newID    func() string
}

// NewInvoker creates an Invoker. A nil journal discards events.
func NewInvoker(tmux TmuxRunner, cfg *config.Config, journal db.Journal) *Invoker {
	if journal == nil {
		journal = db.Discard
	}
	return &Invoker{
		tmux:     tmux,
		cfg:      cfg,
		journal:  journal,
		lookPath: exec.LookPath,
		tempDir:  os.TempDir(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SessionName returns the configured tmux session for p.
func (inv *Invoker) SessionName(p Provider) string {
	if p == Gemini {
		return inv.cfg.Tmux.GeminiSession
	}
	return inv.cfg.Tmux.CodexSession
}

func (inv *Invoker) enabled(p Provider) bool {
	if p == Gemini {
		return inv.cfg.AI.Gemini
	}
	return inv.cfg.AI.Codex
}

// Status reports configuration, installation and session state for p.
func (inv *Invoker) Status(p Provider) SessionStatus {
	st := SessionStatus{Provider: p, Session: inv.SessionName(p), Enabled: inv.enabled(p)}
	if _, err := inv.lookPath(string(p)); err == nil {
		st.CLI = true
	}
	st.Running, _ = inv.tmux.HasSession(st.Session)
	return st
}

// Call runs the prompt in the provider's tmux session and waits for the
// completion signal. When the wait deadline passes the output captured so
// far is returned with TimedOut set and a nil error.
func (inv *Invoker) Call(ctx context.Context, opts CallOpts) (*CallResult, error) {
	p := opts.Provider
	if p != Gemini && p != Codex {
		return nil, fmt.Errorf("unknown provider %q", p)
	}
	if !inv.enabled(p) {
		return nil, fmt.Errorf("%s is disabled in config (ai.%s: false)", p, p)
	}
	if strings.TrimSpace(opts.Prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	if _, err := inv.lookPath(string(p)); err != nil {
		return nil, fmt.Errorf("%s CLI not found. Please install it first", p)
	}

	sessionName := inv.SessionName(p)
	if err := inv.ensureSession(sessionName); err != nil {
		return nil, err
	}

	id := inv.newID()
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	promptFile := filepath.Join(inv.tempDir, fmt.Sprintf("ax-%s-prompt-%s.txt", p, short))
	if err := os.WriteFile(promptFile, []byte(opts.Prompt), 0o600); err != nil {
		return nil, fmt.Errorf("write prompt file: %w", err)
	}
	defer os.Remove(promptFile)

	outFile := opts.OutputFile
	if outFile == "" {
		outFile = filepath.Join(inv.tempDir, fmt.Sprintf("ax-%s-%s.txt", p, short))
	} else if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	channel := fmt.Sprintf("ax-%s-done-%s", p, short)
	if err := inv.tmux.SendKeys(sessionName, buildCommand(p, promptFile, outFile, channel)); err != nil {
		return nil, fmt.Errorf("send command to %s: %w", sessionName, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(inv.cfg.Tmux.OutputTimeout) * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := inv.now()
	res := &CallResult{ID: id, Provider: p, Session: sessionName, OutputFile: outFile}
	waitErr := inv.tmux.WaitFor(waitCtx, channel)
	res.Duration = inv.now().Sub(start)

	switch {
	case waitErr == nil:
	case errors.Is(waitErr, context.DeadlineExceeded) && ctx.Err() == nil:
		res.TimedOut = true
	default:
		inv.record(ctx, opts, res, waitErr)
		return nil, fmt.Errorf("wait for %s: %w", p, waitErr)
	}

	res.Output = inv.readOutput(outFile, sessionName, res.TimedOut)
	inv.record(ctx, opts, res, nil)
	return res, nil
}

func (inv *Invoker) ensureSession(name string) error {
	exists, err := inv.tmux.HasSession(name)
	if err != nil {
		return fmt.Errorf("tmux is required for AI CLI calls: %w", err)
	}
	if exists {
		return nil
	}
	if err := inv.tmux.NewSession(name); err != nil {
		return fmt.Errorf("failed to create tmux session %s: %w", name, err)
	}
	return nil
}

// readOutput prefers the tee'd output file. A timed-out call may not have
// flushed it yet, in which case the pane contents are used.
func (inv *Invoker) readOutput(outFile, sessionName string, timedOut bool) string {
	data, err := os.ReadFile(outFile)
	if err == nil && len(data) > 0 {
		return string(data)
	}
	if timedOut {
		if pane, err := inv.tmux.CapturePane(sessionName); err == nil {
			return pane
		}
	}
	return ""
}

func (inv *Invoker) record(ctx context.Context, opts CallOpts, res *CallResult, callErr error) {
	detail := fmt.Sprintf("%s %s", res.Provider, res.Duration.Round(time.Millisecond))
	switch {
	case callErr != nil:
		detail = fmt.Sprintf("%s failed: %v", res.Provider, callErr)
	case res.TimedOut:
		detail = fmt.Sprintf("%s timed out after %s", res.Provider, res.Duration.Round(time.Second))
	}
	_ = inv.journal.LogEvent(ctx, db.Event{
		Kind:      db.KindAICall,
		StageID:   opts.StageID,
		Detail:    detail,
		Timestamp: inv.now(),
	})
}

func buildCommand(p Provider, promptFile, outFile, channel string) string {
	return fmt.Sprintf(`%s "$(cat %s)" 2>&1 | tee %s; tmux wait-for -S %s`,
		p, shellQuote(promptFile), shellQuote(outFile), channel)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
