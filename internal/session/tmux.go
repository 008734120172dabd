package session

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// TmuxRunner abstracts tmux shell commands for testability.
type TmuxRunner interface {
	NewSession(name string) error
	HasSession(name string) (bool, error)
	SendKeys(session string, keys string) error
	CapturePane(name string) (string, error)
	// WaitFor blocks until channel is signalled with `tmux wait-for -S`
	// or ctx is done.
	WaitFor(ctx context.Context, channel string) error
}

// ExecTmux implements TmuxRunner by shelling out to tmux.
type ExecTmux struct{}

// NewExecTmux returns a new ExecTmux.
func NewExecTmux() *ExecTmux {
	return &ExecTmux{}
}

func (e *ExecTmux) NewSession(name string) error {
	return exec.Command("tmux", "new-session", "-d", "-s", name).Run()
}

func (e *ExecTmux) HasSession(name string) (bool, error) {
	err := exec.Command("tmux", "has-session", "-t", name).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("has-session: %w", err)
}

func (e *ExecTmux) SendKeys(session string, keys string) error {
	return exec.Command("tmux", "send-keys", "-t", session, keys, "Enter").Run()
}

func (e *ExecTmux) CapturePane(name string) (string, error) {
	out, err := exec.Command("tmux", "capture-pane", "-t", name, "-p", "-S", "-").Output()
	if err != nil {
		return "", fmt.Errorf("capture-pane: %w", err)
	}
	return string(out), nil
}

func (e *ExecTmux) WaitFor(ctx context.Context, channel string) error {
	err := exec.CommandContext(ctx, "tmux", "wait-for", channel).Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("wait-for %s: %w", channel, err)
	}
	return nil
}
