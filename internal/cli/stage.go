package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/db"
	"github.com/lucasnoah/axpipe/internal/handoff"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

var runStageCmd = &cobra.Command{
	Use:   "run-stage <stage-id>",
	Short: "Start a pipeline stage",
	Long: `Start a stage after checking the transition from its previous stage and
the stage's declared inputs. A stage that is already in progress or completed
is left alone unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return withProjectLock(cmd, func(p *project) error {
			def, err := p.registry.Require(args[0])
			if err != nil {
				return err
			}
			return startStage(cmd, p, def, force, dryRun)
		})
	},
}

// startStage runs the pre-start checks for def and marks it in progress.
func startStage(cmd *cobra.Command, p *project, def config.StageDefinition, force, dryRun bool) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render("Run stage: "+def.Name))

	sp, _, err := p.store.StageProgress(def.ID)
	if err != nil {
		return err
	}
	switch {
	case sp.Status == pipeline.StatusCompleted && !force:
		fmt.Fprintln(w, warnStyle.Render("Stage already completed. Use --force to run it again."))
		return nil
	case sp.Status == pipeline.StatusInProgress && !force:
		fmt.Fprintln(w, warnStyle.Render("Stage already in progress. Use --force to restart it."))
		return nil
	}

	prev, hasPrev := p.registry.Previous(def.ID)
	if hasPrev {
		res := p.validator.Validate(prev.ID, def.ID)
		p.record(cmd.Context(), db.KindTransitionValidated, def.ID,
			fmt.Sprintf("%s -> %s valid=%t", prev.ID, def.ID, res.Valid))
		if !res.Valid {
			printMessages(cmd, errStyle, "✗ Transition blocked:", res.Errors)
			if !force {
				return fmt.Errorf("cannot start %s: transition from %s is not valid (use --force to override)", def.ID, prev.ID)
			}
			fmt.Fprintln(w, warnStyle.Render("Continuing because of --force"))
		} else {
			fmt.Fprintln(w, okStyle.Render("✓ Dependencies satisfied"))
		}
		printMessages(cmd, warnStyle, "Warnings:", res.Warnings)
	}

	in := p.validator.ValidateInputs(def.ID)
	if !in.Valid {
		printMessages(cmd, errStyle, "✗ Missing inputs:", in.Missing)
		if !force {
			return fmt.Errorf("cannot start %s: %d input(s) missing (use --force to override)", def.ID, len(in.Missing))
		}
		fmt.Fprintln(w, warnStyle.Render("Continuing because of --force"))
	} else if len(in.Present) > 0 {
		fmt.Fprintln(w, okStyle.Render("✓ Inputs present"))
	}

	if dryRun {
		fmt.Fprintln(w, dimStyle.Render("Dry run: stage not started"))
		printStageInfo(cmd, p, def)
		return nil
	}

	if _, err := p.store.StartStage(def.ID); err != nil {
		return err
	}
	p.record(cmd.Context(), db.KindStageStarted, def.ID, "")
	fmt.Fprintln(w, okStyle.Render("✓ Stage "+def.ID+" started"))

	printStageInfo(cmd, p, def)
	if status, err := p.tracker.FormatStatus(); err == nil {
		fmt.Fprintln(w, warnStyle.Render(status))
	}

	if hasPrev {
		if body, ok, err := handoff.Load(p.layout, prev.ID); err == nil && ok {
			fmt.Fprintln(w, titleStyle.Render("Previous stage hand-off:"))
			fmt.Fprintln(w, dimStyle.Render(preview(body, 500)))
		}
	}
	fmt.Fprintln(w, dimStyle.Render("When done: ax handoff, then ax next"))
	return nil
}

func printStageInfo(cmd *cobra.Command, p *project, def config.StageDefinition) {
	timeout, _ := p.registry.Timeout(def.ID)
	checkpoint := "optional"
	if def.CheckpointRequired {
		checkpoint = "required"
	}
	info := strings.Join([]string{
		titleStyle.Render(def.Name),
		"Models:     " + strings.Join(def.Models, ", "),
		"Mode:       " + def.Mode,
		fmt.Sprintf("Timeout:    %s", timeout),
		"Checkpoint: " + checkpoint,
	}, "\n")
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, boxStyle.Render(info))
	if len(def.Outputs) > 0 {
		fmt.Fprintln(w, "Outputs to produce:")
		for _, o := range def.Outputs {
			fmt.Fprintf(w, "  □ %s\n", o)
		}
	}
}

var completeCmd = &cobra.Command{
	Use:   "complete [stage-id]",
	Short: "Mark a stage completed (defaults to the current stage)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withCheckpoint, _ := cmd.Flags().GetBool("checkpoint")
		return withProjectLock(cmd, func(p *project) error {
			def, err := p.stageOrCurrent(args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			out := p.validator.ValidateOutputs(def.ID)
			printMessages(cmd, warnStyle, "Missing outputs:", out.Missing)

			cpID := ""
			if withCheckpoint {
				cp, err := p.checkpoints.Create(def.ID, "Stage completion")
				if err != nil {
					return err
				}
				cpID = cp.ID
				p.record(cmd.Context(), db.KindCheckpointCreated, def.ID, cp.ID)
				fmt.Fprintf(w, "Checkpoint %s created (%d files)\n", cp.ID, len(cp.Files))
			}

			if _, err := p.store.CompleteStage(def.ID, out.Present, cpID); err != nil {
				return err
			}
			p.record(cmd.Context(), db.KindStageCompleted, def.ID, strings.Join(out.Present, ", "))
			fmt.Fprintln(w, okStyle.Render("✓ Stage "+def.ID+" completed"))
			return nil
		})
	},
}

var failCmd = &cobra.Command{
	Use:   "fail <stage-id>",
	Short: "Mark a stage failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if strings.TrimSpace(reason) == "" {
			return fmt.Errorf("--reason is required")
		}
		return withProjectLock(cmd, func(p *project) error {
			def, err := p.registry.Require(args[0])
			if err != nil {
				return err
			}
			if _, err := p.store.FailStage(def.ID, reason); err != nil {
				return err
			}
			p.record(cmd.Context(), db.KindStageFailed, def.ID, reason)
			fmt.Fprintln(cmd.OutOrStdout(), errStyle.Render("✗ Stage "+def.ID+" marked failed: "+reason))
			return nil
		})
	},
}

var skipCmd = &cobra.Command{
	Use:   "skip <stage-id>",
	Short: "Mark a stage skipped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return withProjectLock(cmd, func(p *project) error {
			def, err := p.registry.Require(args[0])
			if err != nil {
				return err
			}
			if _, err := p.store.SkipStage(def.ID, reason); err != nil {
				return err
			}
			p.record(cmd.Context(), db.KindStageSkipped, def.ID, reason)
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("↷ Stage "+def.ID+" skipped"))
			return nil
		})
	},
}

func init() {
	runStageCmd.Flags().Bool("force", false, "Start even if checks fail or the stage already ran")
	runStageCmd.Flags().Bool("dry-run", false, "Run the checks without starting the stage")
	completeCmd.Flags().Bool("checkpoint", false, "Create a checkpoint of the stage outputs first")
	failCmd.Flags().String("reason", "", "Why the stage failed (required)")
	skipCmd.Flags().String("reason", "", "Why the stage is skipped")
}
