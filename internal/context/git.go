package context

import (
	"os/exec"
	"strings"
)

// ModifiedFiles lists paths with uncommitted changes (staged, unstaged or
// untracked) in the git work tree containing dir. It returns an error when
// dir is not inside a work tree.
func ModifiedFiles(dir string) ([]string, error) {
	out, err := runGit(dir, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

// parsePorcelain extracts paths from `git status --porcelain` output.
// Renames report the new path.
func parsePorcelain(out string) []string {
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		if _, to, ok := strings.Cut(path, " -> "); ok {
			path = to
		}
		files = append(files, strings.Trim(path, `"`))
	}
	return files
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}
