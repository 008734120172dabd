package config

import "path/filepath"

// Layout resolves the on-disk locations of one project.
type Layout struct {
	Root        string
	StagesDir   string
	StateDir    string
	Checkpoints string
}

// Layout resolves cfg.Paths against projectDir. Relative paths are taken
// relative to projectDir joined with paths.project_root.
func (c *Config) Layout(projectDir string) Layout {
	root := c.Paths.ProjectRoot
	if !filepath.IsAbs(root) {
		root = filepath.Join(projectDir, root)
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}
	return Layout{
		Root:        filepath.Clean(root),
		StagesDir:   resolve(c.Paths.StagesOutput),
		StateDir:    resolve(c.Paths.State),
		Checkpoints: resolve(c.Paths.Checkpoints),
	}
}

// StageDir is <stages>/<id>.
func (l Layout) StageDir(id string) string {
	return filepath.Join(l.StagesDir, id)
}

// OutputsDir is the live artifact directory of a stage.
func (l Layout) OutputsDir(id string) string {
	return filepath.Join(l.StageDir(id), "outputs")
}

// InputsDir holds artifacts supplied to a stage from outside the pipeline.
func (l Layout) InputsDir(id string) string {
	return filepath.Join(l.StageDir(id), "inputs")
}

// HandoffPath is the hand-off document gating transitions out of a stage.
func (l Layout) HandoffPath(id string) string {
	return filepath.Join(l.StageDir(id), "HANDOFF.md")
}

func (l Layout) ProgressPath() string {
	return filepath.Join(l.StateDir, "progress.json")
}

func (l Layout) ContextDir() string {
	return filepath.Join(l.StateDir, "context")
}

func (l Layout) CheckpointsDir() string {
	return l.Checkpoints
}

func (l Layout) LockPath() string {
	return filepath.Join(l.StateDir, ".ax.lock")
}

func (l Layout) JournalPath() string {
	return filepath.Join(l.StateDir, "journal.db")
}
