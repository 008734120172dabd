package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/pipeline"
	"github.com/lucasnoah/axpipe/internal/stage"
)

// StageLookup resolves stage ids.
type StageLookup interface {
	Get(id string) (config.StageDefinition, bool)
}

// ProgressRecorder records a checkpoint id on a stage's progress.
type ProgressRecorder interface {
	SetCheckpoint(stageID, checkpointID string) (*pipeline.PipelineProgress, error)
}

// Manager creates, lists and restores checkpoints under the configured
// checkpoints directory.
type Manager struct {
	layout   config.Layout
	stages   StageLookup
	recorder ProgressRecorder
	git      GitRunner
	now      func() time.Time
	progress io.Writer // live progress output; nil = silent
}

// NewManager creates a Manager for the project described by layout.
func NewManager(layout config.Layout, stages StageLookup, recorder ProgressRecorder) *Manager {
	return &Manager{
		layout:   layout,
		stages:   stages,
		recorder: recorder,
		git:      ExecGit{},
		now:      time.Now,
	}
}

// SetGit replaces the git runner used for source refs.
func (m *Manager) SetGit(g GitRunner) {
	m.git = g
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (m *Manager) SetProgress(w io.Writer) {
	m.progress = w
}

func (m *Manager) logf(format string, args ...any) {
	if m.progress != nil {
		fmt.Fprintf(m.progress, "  → "+format+"\n", args...)
	}
}

// Dir returns the checkpoints directory.
func (m *Manager) Dir() string {
	return m.layout.CheckpointsDir()
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.Dir(), id)
}

// Create captures the outputs directory of stageID into a new checkpoint
// and records its id on the stage's progress. The tree is copied into a
// staging directory first and only renamed into place once every file
// has been copied.
func (m *Manager) Create(stageID, description string) (*Checkpoint, error) {
	if _, ok := m.stages.Get(stageID); !ok {
		return nil, &stage.StageNotFoundError{ID: stageID}
	}

	created := m.now().UTC()
	id, err := m.nextID(stageID, created)
	if err != nil {
		return nil, err
	}
	m.logf("creating checkpoint %s for stage %s", id, stageID)

	staging := filepath.Join(m.Dir(), ".staging-"+id)
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(staging, OutputsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	src := m.layout.OutputsDir(stageID)
	files, err := walkFiles(src)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", src, err)
	}

	cp := &Checkpoint{
		ID:          id,
		StageID:     stageID,
		CreatedAt:   created,
		Description: description,
		Files:       []string{},
		Checksums:   make(map[string]string, len(files)),
	}
	for _, rel := range files {
		sum, err := copyFile(filepath.Join(src, filepath.FromSlash(rel)),
			filepath.Join(staging, OutputsDirName, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", rel, err)
		}
		cp.Files = append(cp.Files, rel)
		cp.Checksums[rel] = sum
	}
	m.logf("captured %d file(s)", len(cp.Files))

	if ref := headRef(m.git, m.layout.Root); ref != "" {
		cp.GitRef = ref
		m.logf("git ref %s", ref)
	}

	if err := pipeline.WriteJSON(filepath.Join(staging, MetadataFile), cp); err != nil {
		return nil, fmt.Errorf("write checkpoint metadata: %w", err)
	}
	if err := os.Rename(staging, m.path(id)); err != nil {
		return nil, fmt.Errorf("commit checkpoint: %w", err)
	}
	committed = true

	if _, err := m.recorder.SetCheckpoint(stageID, id); err != nil {
		return cp, fmt.Errorf("record checkpoint on stage %s: %w", stageID, err)
	}
	return cp, nil
}

// nextID returns cp-<stage token>-<timestamp>, suffixed -02, -03, ... when
// a checkpoint with that id already exists.
func (m *Manager) nextID(stageID string, t time.Time) (string, error) {
	base := fmt.Sprintf("cp-%s-%s", stageToken(stageID), t.Format("2006-01-02T15-04-05"))
	id := base
	for n := 2; pipeline.Exists(m.path(id)); n++ {
		if n > 99 {
			return "", fmt.Errorf("too many checkpoints for %s within one second", stageID)
		}
		id = fmt.Sprintf("%s-%02d", base, n)
	}
	return id, nil
}

// stageToken is the leading segment of a stage id, "06" for "06-implementation".
func stageToken(stageID string) string {
	token, _, _ := strings.Cut(stageID, "-")
	return token
}

// List returns every readable checkpoint, newest first. Corrupt metadata
// is skipped.
func (m *Manager) List() ([]Checkpoint, error) {
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", m.Dir(), err)
	}

	var cps []Checkpoint
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "cp-") {
			continue
		}
		var cp Checkpoint
		if err := pipeline.ReadJSON(filepath.Join(m.Dir(), e.Name(), MetadataFile), &cp); err != nil {
			continue
		}
		cps = append(cps, cp)
	}

	sort.SliceStable(cps, func(i, j int) bool {
		if !cps[i].CreatedAt.Equal(cps[j].CreatedAt) {
			return cps[i].CreatedAt.After(cps[j].CreatedAt)
		}
		return cps[i].ID > cps[j].ID
	})
	return cps, nil
}

// Get returns the checkpoint with id, or nil if it does not exist or its
// metadata cannot be read.
func (m *Manager) Get(id string) (*Checkpoint, error) {
	if id == "" || !filepath.IsLocal(id) {
		return nil, nil
	}
	var cp Checkpoint
	if err := pipeline.ReadJSON(filepath.Join(m.path(id), MetadataFile), &cp); err != nil {
		if os.IsNotExist(err) || errors.Is(err, pipeline.ErrCorrupt) {
			return nil, nil
		}
		return nil, err
	}
	return &cp, nil
}

// Require is Get that reports absence as ErrCheckpointNotFound.
func (m *Manager) Require(id string) (*Checkpoint, error) {
	cp, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}
	return cp, nil
}

// ListForStage returns the checkpoints of one stage, newest first.
func (m *Manager) ListForStage(stageID string) ([]Checkpoint, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	var out []Checkpoint
	for _, cp := range all {
		if cp.StageID == stageID {
			out = append(out, cp)
		}
	}
	return out, nil
}

// LatestForStage returns the newest checkpoint of a stage, or nil.
func (m *Manager) LatestForStage(stageID string) (*Checkpoint, error) {
	cps, err := m.ListForStage(stageID)
	if err != nil || len(cps) == 0 {
		return nil, err
	}
	return &cps[0], nil
}

// Restore copies the captured tree of checkpoint id back onto the stage's
// live outputs directory. Individual file failures are collected and the
// remaining files are still restored. When a git ref was captured, a
// restore branch is created at it; failure there is reported but does not
// undo the file restore.
func (m *Manager) Restore(id string) RestoreResult {
	res := RestoreResult{CheckpointID: id, RestoredFiles: []string{}, Errors: []string{}}

	cp, err := m.Get(id)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Cannot read checkpoint %s: %v", id, err))
		return res
	}
	if cp == nil {
		res.Errors = append(res.Errors, "Checkpoint not found: "+id)
		return res
	}
	res.StageID = cp.StageID

	captured := filepath.Join(m.path(id), OutputsDirName)
	if info, err := os.Stat(captured); err != nil || !info.IsDir() {
		res.Errors = append(res.Errors, "Checkpoint outputs directory not found")
		return res
	}

	files := cp.Files
	if len(cp.Checksums) == 0 {
		// Metadata without a manifest: restore whatever the tree holds.
		files, err = walkFiles(captured)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Cannot scan checkpoint outputs: %v", err))
			return res
		}
	}

	target := m.layout.OutputsDir(cp.StageID)
	m.logf("restoring %d file(s) from %s into %s", len(files), id, target)
	for _, rel := range files {
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			res.Errors = append(res.Errors, "Refusing to restore non-local path: "+rel)
			continue
		}
		src := filepath.Join(captured, filepath.FromSlash(rel))
		if want, ok := cp.Checksums[rel]; ok {
			got, err := fileChecksum(src)
			if err != nil {
				res.Errors = append(res.Errors, "Missing file in checkpoint: "+rel)
				continue
			}
			if got != want {
				res.Errors = append(res.Errors, "Checksum mismatch: "+rel)
				continue
			}
		}
		if _, err := copyFile(src, filepath.Join(target, filepath.FromSlash(rel))); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to restore %s: %v", rel, err))
			continue
		}
		res.RestoredFiles = append(res.RestoredFiles, rel)
	}

	if cp.GitRef != "" {
		branch := RestoreBranch(id)
		if _, err := m.git.Run(m.layout.Root, "checkout", "-b", branch, cp.GitRef); err != nil {
			m.logf("warning: git checkout failed: %v", err)
			res.Errors = append(res.Errors, "Git checkout failed - files restored but git state not changed")
		} else {
			res.GitBranch = branch
		}
	}

	res.Success = len(res.Errors) == 0
	return res
}
