package checkpoint

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitRunner runs git commands. Interface for testing.
type GitRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner with the git binary on PATH.
type ExecGit struct{}

func (ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		return trimmed, fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), trimmed, err)
	}
	return trimmed, nil
}

// headRef returns the current commit of the repo containing dir, or ""
// when dir is not inside a git work tree.
func headRef(git GitRunner, dir string) string {
	ref, err := git.Run(dir, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return ref
}

// RestoreBranch is the branch a restore creates at the captured ref.
func RestoreBranch(checkpointID string) string {
	return "restore-" + checkpointID
}
