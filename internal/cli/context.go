package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/db"
	"github.com/lucasnoah/axpipe/internal/handoff"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Track the AI assistant's context budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showContextStatus(cmd)
	},
}

var contextStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current context budget and recommended actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showContextStatus(cmd)
	},
}

type contextView struct {
	State     *appctx.State   `json:"state"`
	Remaining float64         `json:"remaining"`
	Status    string          `json:"status"`
	Actions   []appctx.Action `json:"actions"`
}

func showContextStatus(cmd *cobra.Command) error {
	p, cleanup, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := p.tracker.Get()
	if err != nil {
		return err
	}
	view := contextView{State: state, Remaining: 100, Status: appctx.FormatState(state), Actions: []appctx.Action{}}
	if state != nil {
		view.Remaining = state.Remaining()
		view.Actions = appctx.ActionsFor(*state)
	}
	if jsonFormat(cmd) {
		return writeJSON(cmd, view)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render("Context"))
	fmt.Fprintln(w, view.Status)
	if state == nil {
		fmt.Fprintln(w, dimStyle.Render("No usage reported yet. Use: ax context update --usage <percent>"))
		return nil
	}
	fmt.Fprintf(w, "Used:      %.1f%% (%d / %d tokens)\n", state.UsagePercent, state.TokensUsed, state.MaxTokens)
	fmt.Fprintf(w, "Threshold: %s\n", state.Threshold)
	c := p.tracker.Cutoffs()
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Bands (remaining): warning ≤%.0f%%, action ≤%.0f%%, critical ≤%.0f%%",
		c.Warning, c.Action, c.Critical)))
	if n, err := p.tracker.TasksSinceLastSnapshot(); err == nil {
		fmt.Fprintf(w, "Tasks since last snapshot: %d/%d\n", n, p.tracker.SaveFrequency())
	}
	for _, a := range view.Actions {
		fmt.Fprintln(w, actionStyle(a.Priority).Render("  ! "+a.Message))
	}
	return nil
}

var contextUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Report context usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var u appctx.StateUpdate
		flags := cmd.Flags()
		if flags.Changed("usage") {
			v, _ := flags.GetFloat64("usage")
			u.UsagePercent = &v
		}
		if flags.Changed("tokens") {
			v, _ := flags.GetInt("tokens")
			u.TokensUsed = &v
		}
		if flags.Changed("max-tokens") {
			v, _ := flags.GetInt("max-tokens")
			u.MaxTokens = &v
		}
		if u.UsagePercent == nil && u.TokensUsed == nil && u.MaxTokens == nil {
			return fmt.Errorf("nothing to update: pass --usage, --tokens or --max-tokens")
		}

		return withProjectLock(cmd, func(p *project) error {
			state, snap, err := p.autosave.Update(u)
			if err != nil {
				return err
			}
			p.record(cmd.Context(), db.KindContextUpdated, "",
				fmt.Sprintf("%.1f%% used (%s)", state.UsagePercent, state.Threshold))
			if snap != nil {
				p.record(cmd.Context(), db.KindSnapshotCreated, snap.StageID, snap.ID)
			}

			if jsonFormat(cmd) {
				return writeJSON(cmd, contextView{
					State:     state,
					Remaining: state.Remaining(),
					Status:    appctx.FormatState(state),
					Actions:   appctx.ActionsFor(*state),
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, appctx.FormatState(state))
			for _, a := range appctx.ActionsFor(*state) {
				fmt.Fprintln(w, actionStyle(a.Priority).Render("  ! "+a.Message))
			}
			if snap != nil {
				fmt.Fprintln(w, okStyle.Render("✓ Snapshot "+snap.ID+" saved"))
			}
			return nil
		})
	},
}

var contextSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a recovery snapshot of the working context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		opts := appctx.SnapshotOptions{}
		opts.Decisions, _ = flags.GetStringArray("decision")
		opts.ActiveIssues, _ = flags.GetStringArray("issue")
		opts.InProgressTasks, _ = flags.GetStringArray("in-progress")
		opts.PendingTasks, _ = flags.GetStringArray("pending")
		opts.CompletedTasks, _ = flags.GetStringArray("done")

		return withProjectLock(cmd, func(p *project) error {
			if files, err := appctx.ModifiedFiles(p.layout.Root); err == nil {
				opts.ModifiedFiles = files
			}
			if len(opts.CompletedTasks) == 0 {
				opts.CompletedTasks = recentTasks(p, p.tracker.SaveFrequency())
			}
			if def, ok, err := p.pointer.CurrentStage(); err == nil && ok {
				if handoff.Exists(p.layout, def.ID) {
					opts.HandoffRef = p.layout.HandoffPath(def.ID)
				}
				if cp, err := p.checkpoints.LatestForStage(def.ID); err == nil && cp != nil {
					opts.CheckpointRef = cp.ID
				}
			}

			snap, err := p.tracker.CreateSnapshot(appctx.TriggerManual, opts)
			if err != nil {
				return err
			}
			p.record(cmd.Context(), db.KindSnapshotCreated, snap.StageID, snap.ID)

			tmpl, err := handoff.LoadTemplate(p.dir, handoff.RecoveryTemplate)
			if err != nil {
				return err
			}
			body, err := handoff.RenderRecovery(tmpl, *snap)
			if err != nil {
				return err
			}
			mdPath, err := p.tracker.WriteRecovery(snap.ID, body)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, okStyle.Render("✓ Snapshot "+snap.ID+" saved"))
			fmt.Fprintln(w, dimStyle.Render("Recovery notes: "+mdPath))
			return nil
		})
	},
}

// recentTasks returns the descriptions of the last n logged tasks.
func recentTasks(p *project, n int) []string {
	log, err := p.tracker.TaskLog()
	if err != nil || len(log) == 0 {
		return nil
	}
	if len(log) > n {
		log = log[len(log)-n:]
	}
	out := make([]string, len(log))
	for i, t := range log {
		out[i] = t.Description
	}
	return out
}

var contextHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		snaps, err := p.tracker.ListSnapshots()
		if err != nil {
			return err
		}
		if jsonFormat(cmd) {
			if snaps == nil {
				snaps = []appctx.Snapshot{}
			}
			return writeJSON(cmd, snaps)
		}

		w := cmd.OutOrStdout()
		if len(snaps) == 0 {
			fmt.Fprintln(w, dimStyle.Render("No snapshots"))
			return nil
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit > 0 && len(snaps) > limit {
			snaps = snaps[:limit]
		}
		for _, s := range snaps {
			fmt.Fprintf(w, "%s  %-18s %-16s %.0f%% left\n",
				s.ID, dimStyle.Render(string(s.Trigger)), s.StageID, s.ContextState.Remaining())
		}
		return nil
	},
}

var contextShowCmd = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Show one snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		snap, err := p.tracker.GetSnapshot(args[0])
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("snapshot not found: %s", args[0])
		}
		if jsonFormat(cmd) {
			return writeJSON(cmd, snap)
		}
		tmpl, err := handoff.LoadTemplate(p.dir, handoff.RecoveryTemplate)
		if err != nil {
			return err
		}
		body, err := handoff.RenderRecovery(tmpl, *snap)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), body)
		return nil
	},
}

var contextWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the context status every time it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, dimStyle.Render("Watching "+p.tracker.Dir()+" (ctrl+c to stop)"))
		last := appctx.Threshold("")
		return p.tracker.Watch(ctx, func(s appctx.State) {
			fmt.Fprintln(w, appctx.FormatState(&s))
			if s.Threshold != last {
				for _, a := range appctx.ActionsFor(s) {
					fmt.Fprintln(w, actionStyle(a.Priority).Render("  ! "+a.Message))
				}
				last = s.Threshold
			}
		})
	},
}

func init() {
	addFormatFlag(contextCmd)
	addFormatFlag(contextStatusCmd)
	addFormatFlag(contextUpdateCmd)
	addFormatFlag(contextHistoryCmd)
	addFormatFlag(contextShowCmd)

	contextUpdateCmd.Flags().Float64("usage", 0, "Percentage of the context window used (0-100)")
	contextUpdateCmd.Flags().Int("tokens", 0, "Tokens used so far")
	contextUpdateCmd.Flags().Int("max-tokens", 0, "Size of the context window in tokens")

	contextSnapshotCmd.Flags().StringArray("decision", nil, "Key decision to carry over (repeatable)")
	contextSnapshotCmd.Flags().StringArray("issue", nil, "Open issue (repeatable)")
	contextSnapshotCmd.Flags().StringArray("in-progress", nil, "Task in progress (repeatable)")
	contextSnapshotCmd.Flags().StringArray("pending", nil, "Pending task (repeatable)")
	contextSnapshotCmd.Flags().StringArray("done", nil, "Completed task (defaults to the recent task log)")

	contextHistoryCmd.Flags().Int("limit", 20, "Maximum snapshots to list")

	contextCmd.AddCommand(contextStatusCmd)
	contextCmd.AddCommand(contextUpdateCmd)
	contextCmd.AddCommand(contextSnapshotCmd)
	contextCmd.AddCommand(contextHistoryCmd)
	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextWatchCmd)
}
