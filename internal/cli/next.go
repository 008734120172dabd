package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/db"
	"github.com/lucasnoah/axpipe/internal/handoff"
	"github.com/lucasnoah/axpipe/internal/stage"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Complete the current stage and start the next one",
	Long: `Validate the transition from the current stage to the next one, then
complete the current stage and start the next. With no stage in progress the
first stage is started.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		yes, _ := cmd.Flags().GetBool("yes")
		return withProjectLock(cmd, func(p *project) error {
			return advance(cmd, p, force, yes)
		})
	},
}

func advance(cmd *cobra.Command, p *project, force, yes bool) error {
	w := cmd.OutOrStdout()
	current, ok, err := p.pointer.CurrentStage()
	if err != nil {
		return err
	}

	if !ok {
		first, err := p.registry.First()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "No stage in progress.")
		if !yes {
			start, err := confirm(cmd, fmt.Sprintf("Start %s?", first.Name))
			if err != nil {
				return err
			}
			if !start {
				fmt.Fprintln(w, dimStyle.Render("Cancelled"))
				return nil
			}
		}
		return startStage(cmd, p, first, force, false)
	}

	next, hasNext := p.registry.Next(current.ID)
	fmt.Fprintf(w, "Current stage: %s\n", titleStyle.Render(stage.Describe(current)))

	if !hasNext {
		out := p.validator.ValidateOutputs(current.ID)
		if !out.Valid && !force {
			printMessages(cmd, errStyle, "✗ Missing outputs:", out.Missing)
			return fmt.Errorf("cannot complete %s: outputs missing (use --force to override)", current.ID)
		}
		if _, err := p.store.CompleteStage(current.ID, out.Present, ""); err != nil {
			return err
		}
		p.record(cmd.Context(), db.KindStageCompleted, current.ID, "final stage")
		fmt.Fprintln(w, okStyle.Render("✓ All stages complete"))
		return nil
	}

	fmt.Fprintf(w, "Next stage:    %s\n", titleStyle.Render(stage.Describe(next)))
	res := p.validator.Validate(current.ID, next.ID)
	p.record(cmd.Context(), db.KindTransitionValidated, next.ID,
		fmt.Sprintf("%s -> %s valid=%t", current.ID, next.ID, res.Valid))
	printMessages(cmd, errStyle, "✗ Transition blocked:", res.Errors)
	printMessages(cmd, warnStyle, "Warnings:", res.Warnings)
	if !res.Valid {
		if !force {
			if !handoff.Exists(p.layout, current.ID) {
				fmt.Fprintln(w, dimStyle.Render("Generate the hand-off with: ax handoff"))
			}
			return fmt.Errorf("transition %s -> %s is not valid (use --force to override)", current.ID, next.ID)
		}
		fmt.Fprintln(w, warnStyle.Render("Continuing because of --force"))
	}

	if !yes {
		proceed, err := confirm(cmd, fmt.Sprintf("Complete %s and start %s?", current.ID, next.ID))
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Fprintln(w, dimStyle.Render("Cancelled"))
			return nil
		}
	}

	snap, err := p.tracker.CreateSnapshot(appctx.TriggerStageTransition, appctx.SnapshotOptions{
		HandoffRef: p.layout.HandoffPath(current.ID),
	})
	if err != nil {
		fmt.Fprintln(p.errOut, warnStyle.Render(fmt.Sprintf("warning: snapshot: %v", err)))
	} else {
		p.record(cmd.Context(), db.KindSnapshotCreated, current.ID, snap.ID)
	}

	out := p.validator.ValidateOutputs(current.ID)
	if _, err := p.store.CompleteStage(current.ID, out.Present, ""); err != nil {
		return err
	}
	p.record(cmd.Context(), db.KindStageCompleted, current.ID, "")
	fmt.Fprintln(w, okStyle.Render("✓ Stage "+current.ID+" completed"))

	if _, err := p.store.StartStage(next.ID); err != nil {
		return err
	}
	p.record(cmd.Context(), db.KindStageStarted, next.ID, "")
	fmt.Fprintln(w, okStyle.Render("✓ Stage "+next.ID+" started"))
	printStageInfo(cmd, p, next)
	return nil
}

func init() {
	nextCmd.Flags().Bool("force", false, "Advance even if the transition is not valid")
	nextCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
