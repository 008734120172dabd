package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/checkpoint"
	"github.com/lucasnoah/axpipe/internal/config"
	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/db"
	"github.com/lucasnoah/axpipe/internal/lock"
	"github.com/lucasnoah/axpipe/internal/pipeline"
	"github.com/lucasnoah/axpipe/internal/stage"
)

// project wires every engine component for one project directory.
type project struct {
	dir         string
	cfg         *config.Config
	layout      config.Layout
	registry    *stage.Registry
	store       *pipeline.Store
	pointer     stage.Pointer
	validator   *stage.Validator
	checkpoints *checkpoint.Manager
	tracker     *appctx.Tracker
	autosave    *appctx.AutoSaver
	journal     db.Journal

	errOut io.Writer
}

// openProject loads configuration and the stage registry for the --project
// directory. A journal that cannot be opened degrades to a discarding one
// with a warning.
func openProject(cmd *cobra.Command) (*project, func(), error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve project dir: %w", err)
	}
	cfg, err := config.Load(config.LoadOptions{ProjectDir: dir})
	if err != nil {
		return nil, nil, err
	}
	reg, err := stage.LoadRegistry(dir, cfg)
	if err != nil {
		return nil, nil, err
	}

	layout := cfg.Layout(dir)
	store := pipeline.NewStore(layout.ProgressPath())
	pointer := stage.Pointer{Registry: reg, Progress: store}
	p := &project{
		dir:         dir,
		cfg:         cfg,
		layout:      layout,
		registry:    reg,
		store:       store,
		pointer:     pointer,
		validator:   stage.NewValidator(reg, layout, store),
		checkpoints: checkpoint.NewManager(layout, reg, store),
		tracker:     appctx.NewTracker(layout.ContextDir(), cfg.Context, pointer),
		errOut:      cmd.ErrOrStderr(),
	}
	p.autosave = appctx.NewAutoSaver(p.tracker)
	if verbose {
		p.checkpoints.SetProgress(p.errOut)
		p.tracker.SetProgress(p.errOut)
	}

	j, err := db.OpenJournal(cmd.Context(), cfg.Journal, layout)
	if err != nil {
		fmt.Fprintln(p.errOut, warnStyle.Render(fmt.Sprintf("warning: event journal unavailable: %v", err)))
		j = db.Discard
	}
	p.journal = j

	return p, func() { j.Close() }, nil
}

// withProjectLock runs fn with the project open and its advisory lock held.
func withProjectLock(cmd *cobra.Command, fn func(p *project) error) error {
	p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fl, err := lock.Acquire(p.layout.LockPath())
	if err != nil {
		return err
	}
	defer fl.Release()
	if fl.ReclaimedFrom > 0 && verbose {
		fmt.Fprintf(p.errOut, "  → reclaimed stale lock from pid %d\n", fl.ReclaimedFrom)
	}

	return fn(p)
}

// record appends an event to the journal. Failures are reported, never returned.
func (p *project) record(ctx context.Context, kind db.Kind, stageID, detail string) {
	if ctx == nil {
		ctx = context.Background()
	}
	err := p.journal.LogEvent(ctx, db.Event{Kind: kind, StageID: stageID, Detail: detail})
	if err != nil {
		fmt.Fprintln(p.errOut, warnStyle.Render(fmt.Sprintf("warning: journal: %v", err)))
	}
}

// stageOrCurrent resolves an explicit stage id, or the current stage when
// args is empty.
func (p *project) stageOrCurrent(args []string) (config.StageDefinition, error) {
	if len(args) > 0 {
		return p.registry.Require(args[0])
	}
	def, ok, err := p.pointer.CurrentStage()
	if err != nil {
		return config.StageDefinition{}, err
	}
	if !ok {
		return config.StageDefinition{}, fmt.Errorf("no stage in progress; pass a stage id")
	}
	return def, nil
}
