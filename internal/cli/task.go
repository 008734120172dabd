package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/db"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Log completed tasks",
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <description...>",
	Short: "Record a completed task in the current stage",
	Long: `Append a task to the task log. Every N tasks (context.task_save_frequency)
a snapshot of the recent tasks is saved automatically.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc := strings.TrimSpace(strings.Join(args, " "))
		if desc == "" {
			return fmt.Errorf("task description is empty")
		}
		return withProjectLock(cmd, func(p *project) error {
			stageID := "unknown"
			if def, ok, err := p.pointer.CurrentStage(); err != nil {
				return err
			} else if ok {
				stageID = def.ID
			}

			res, snap, err := p.autosave.LogTask(desc, stageID)
			if err != nil {
				if res.Task.TaskID == "" {
					return err
				}
				// The task is logged; only its snapshot failed.
				fmt.Fprintln(p.errOut, warnStyle.Render("warning: "+err.Error()))
			}
			p.record(cmd.Context(), db.KindTaskCompleted, stageID, desc)
			if snap != nil {
				p.record(cmd.Context(), db.KindSnapshotCreated, snap.StageID, snap.ID)
			}

			if jsonFormat(cmd) {
				return writeJSON(cmd, res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, okStyle.Render("✓ "+desc))
			if snap != nil {
				fmt.Fprintln(w, dimStyle.Render("Snapshot "+snap.ID+" saved"))
			}
			return nil
		})
	},
}

func init() {
	addFormatFlag(taskDoneCmd)
	taskCmd.AddCommand(taskDoneCmd)
}
