package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/lock"
	"github.com/lucasnoah/axpipe/internal/pipeline"
	"github.com/lucasnoah/axpipe/internal/stage"
)

type statusView struct {
	pipeline.Summary
	Percent int                               `json:"percent"`
	Stages  map[string]pipeline.StageProgress `json:"stages"`
	Context *appctx.State                     `json:"context"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress and the context budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		prog, err := p.store.Load()
		if err != nil {
			return err
		}
		state, err := p.tracker.Get()
		if err != nil {
			return err
		}
		sum := pipeline.Summarize(prog, p.registry.IDs())

		if jsonFormat(cmd) {
			stages := make(map[string]pipeline.StageProgress, p.registry.Len())
			for _, id := range p.registry.IDs() {
				stages[id] = prog.Stage(id)
			}
			return writeJSON(cmd, statusView{Summary: sum, Percent: sum.Percent(), Stages: stages, Context: state})
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, titleStyle.Render("Pipeline status"))
		fmt.Fprintf(w, "%s %d%% (%d/%d)\n", progressBar(sum.Percent(), 30), sum.Percent(),
			sum.Completed+sum.Skipped, sum.Total)

		current := "(none)"
		if def, ok := p.registry.Get(sum.CurrentStage); ok {
			current = stage.Describe(def)
		}
		fmt.Fprintf(w, "Current: %s\n", current)
		if def, ok := p.registry.Get(sum.NextStage); ok {
			fmt.Fprintf(w, "Next:    %s\n", stage.Describe(def))
		}
		if pid := lock.Holder(p.layout.LockPath()); pid > 0 {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Locked by ax process %d", pid)))
		}
		fmt.Fprintln(w, appctx.FormatState(state))
		fmt.Fprintln(w)

		for _, def := range p.registry.List() {
			sp := prog.Stage(def.ID)
			line := fmt.Sprintf("  %s %-18s %s", statusIcon(sp.Status), def.ID, def.Name)
			switch {
			case sp.Error != "":
				line += " " + errStyle.Render("("+sp.Error+")")
			case sp.Reason != "":
				line += " " + dimStyle.Render("("+sp.Reason+")")
			case sp.CheckpointID != "":
				line += " " + dimStyle.Render("["+sp.CheckpointID+"]")
			}
			if sp.Status.Terminal() && sp.CompletedAt != nil {
				line += " " + dimStyle.Render(sp.CompletedAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(w, line)
		}
		if sum.Failed > 0 {
			fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("%d stage(s) failed", sum.Failed)))
		}
		return nil
	},
}

func init() {
	addFormatFlag(statusCmd)
}
