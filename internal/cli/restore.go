package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/db"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [checkpoint-id]",
	Short: "Restore stage outputs from a checkpoint",
	Long: `Copy a checkpoint's captured files back into the stage outputs
directory, overwriting the live copies. Files created after the checkpoint are
left in place. Without an id the newest checkpoint of the current stage is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		list, _ := cmd.Flags().GetBool("list")

		if list {
			p, cleanup, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			cps, err := p.checkpoints.List()
			if err != nil {
				return err
			}
			return printCheckpoints(cmd, cps)
		}

		return withProjectLock(cmd, func(p *project) error {
			w := cmd.OutOrStdout()
			var id string
			if len(args) > 0 {
				cp, err := p.checkpoints.Require(args[0])
				if err != nil {
					return err
				}
				id = cp.ID
			} else {
				def, err := p.stageOrCurrent(nil)
				if err != nil {
					return err
				}
				cp, err := p.checkpoints.LatestForStage(def.ID)
				if err != nil {
					return err
				}
				if cp == nil {
					return fmt.Errorf("no checkpoints for stage %s", def.ID)
				}
				id = cp.ID
			}

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Overwrite stage outputs with checkpoint %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, dimStyle.Render("Cancelled"))
					return nil
				}
			}

			res := p.checkpoints.Restore(id)
			p.record(cmd.Context(), db.KindCheckpointRestored, res.StageID,
				fmt.Sprintf("%s files=%d errors=%d", id, len(res.RestoredFiles), len(res.Errors)))

			if jsonFormat(cmd) {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
			} else {
				if res.Success {
					fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("✓ Restored %d file(s) from %s", len(res.RestoredFiles), id)))
				} else {
					fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("✗ Restore of %s finished with errors", id)))
				}
				printMessages(cmd, errStyle, "Errors:", res.Errors)
				if res.GitBranch != "" {
					fmt.Fprintln(w, dimStyle.Render("Git branch: "+res.GitBranch))
				}
			}
			if !res.Success {
				return fmt.Errorf("restore %s: %s", id, strings.Join(res.Errors, "; "))
			}
			return nil
		})
	},
}

func init() {
	restoreCmd.Flags().Bool("force", false, "Do not ask for confirmation")
	restoreCmd.Flags().Bool("list", false, "List available checkpoints instead of restoring")
	addFormatFlag(restoreCmd)
}
