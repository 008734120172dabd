package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/checkpoint"
	"github.com/lucasnoah/axpipe/internal/db"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Capture stage outputs (defaults to creating one for the current stage)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("description")
		return createCheckpoint(cmd, nil, desc)
	},
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create [stage-id]",
	Short: "Create a checkpoint of a stage's outputs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("description")
		return createCheckpoint(cmd, args, desc)
	},
}

func createCheckpoint(cmd *cobra.Command, args []string, desc string) error {
	return withProjectLock(cmd, func(p *project) error {
		def, err := p.stageOrCurrent(args)
		if err != nil {
			return err
		}
		cp, err := p.checkpoints.Create(def.ID, desc)
		if err != nil {
			return err
		}
		p.record(cmd.Context(), db.KindCheckpointCreated, def.ID, cp.ID)

		if jsonFormat(cmd) {
			return writeJSON(cmd, cp)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, okStyle.Render("✓ Checkpoint "+cp.ID+" created"))
		fmt.Fprintf(w, "  Stage: %s\n  Files: %d\n", cp.StageID, len(cp.Files))
		if cp.GitRef != "" {
			fmt.Fprintf(w, "  Git:   %s\n", cp.GitRef)
		}
		return nil
	})
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		stageID, _ := cmd.Flags().GetString("stage")
		var cps []checkpoint.Checkpoint
		if stageID != "" {
			if _, err := p.registry.Require(stageID); err != nil {
				return err
			}
			cps, err = p.checkpoints.ListForStage(stageID)
		} else {
			cps, err = p.checkpoints.List()
		}
		if err != nil {
			return err
		}
		return printCheckpoints(cmd, cps)
	},
}

func printCheckpoints(cmd *cobra.Command, cps []checkpoint.Checkpoint) error {
	if jsonFormat(cmd) {
		if cps == nil {
			cps = []checkpoint.Checkpoint{}
		}
		return writeJSON(cmd, cps)
	}
	w := cmd.OutOrStdout()
	if len(cps) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No checkpoints"))
		return nil
	}
	for _, cp := range cps {
		fmt.Fprintf(w, "%-40s %-18s %3d files  %s\n",
			cp.ID, cp.StageID, len(cp.Files), dimStyle.Render(cp.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	return nil
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show <checkpoint-id>",
	Short: "Show one checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		cp, err := p.checkpoints.Require(args[0])
		if err != nil {
			return err
		}
		if jsonFormat(cmd) {
			return writeJSON(cmd, cp)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, titleStyle.Render(cp.ID))
		fmt.Fprintf(w, "Stage:   %s\nCreated: %s\n", cp.StageID, cp.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if cp.Description != "" {
			fmt.Fprintf(w, "About:   %s\n", cp.Description)
		}
		if cp.GitRef != "" {
			fmt.Fprintf(w, "Git:     %s\n", cp.GitRef)
		}
		for _, f := range cp.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
		return nil
	},
}

func init() {
	checkpointCmd.Flags().StringP("description", "d", "", "What this checkpoint captures")
	checkpointCreateCmd.Flags().StringP("description", "d", "", "What this checkpoint captures")
	checkpointListCmd.Flags().String("stage", "", "Only list checkpoints of this stage")
	addFormatFlag(checkpointCmd)
	addFormatFlag(checkpointCreateCmd)
	addFormatFlag(checkpointListCmd)
	addFormatFlag(checkpointShowCmd)

	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
}
