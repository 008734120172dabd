package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/db"
	"github.com/lucasnoah/axpipe/internal/handoff"
)

var handoffCmd = &cobra.Command{
	Use:   "handoff [stage-id]",
	Short: "Generate HANDOFF.md for a stage (defaults to the current stage)",
	Long: `Write <stages>/<id>/HANDOFF.md from the stage's produced outputs, the
next stage's requirements and the AI calls journaled for the stage. The
template can be overridden with config/templates/HANDOFF.md.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		notes, _ := cmd.Flags().GetString("notes")
		decisions, _ := cmd.Flags().GetStringArray("decision")

		return withProjectLock(cmd, func(p *project) error {
			def, err := p.stageOrCurrent(args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if handoff.Exists(p.layout, def.ID) && !force {
				ok, err := confirm(cmd, fmt.Sprintf("%s already exists. Overwrite?", p.layout.HandoffPath(def.ID)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, dimStyle.Render("Cancelled"))
					return nil
				}
			}

			out := p.validator.ValidateOutputs(def.ID)
			cpRef := ""
			if cp, err := p.checkpoints.LatestForStage(def.ID); err == nil && cp != nil {
				cpRef = cp.ID
			}
			var next *config.StageDefinition
			if n, ok := p.registry.Next(def.ID); ok {
				next = &n
			}

			data := handoff.QuickData(def, next, out.Present, cpRef)
			data.Notes = notes
			if len(decisions) > 0 {
				data.KeyDecisions = decisions
			}
			data.AICalls = aiCalls(cmd, p, def.ID)

			tmpl, err := handoff.LoadTemplate(p.dir, handoff.HandoffTemplate)
			if err != nil {
				return err
			}
			body, err := handoff.RenderHandoff(tmpl, data)
			if err != nil {
				return err
			}
			path, err := handoff.Save(p.layout, def.ID, body)
			if err != nil {
				return err
			}

			fmt.Fprintln(w, okStyle.Render("✓ Wrote "+path))
			printMessages(cmd, warnStyle, "Missing outputs:", out.Missing)
			fmt.Fprintln(w, dimStyle.Render(preview(body, 400)))
			return nil
		})
	},
}

// aiCalls converts the journaled ai_call events of a stage into table rows,
// oldest first.
func aiCalls(cmd *cobra.Command, p *project, stageID string) []handoff.AICall {
	events, err := p.journal.Events(cmd.Context(), db.Filter{Kind: db.KindAICall, StageID: stageID})
	if err != nil {
		fmt.Fprintln(p.errOut, warnStyle.Render(fmt.Sprintf("warning: journal: %v", err)))
		return nil
	}
	calls := make([]handoff.AICall, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		provider, _, _ := strings.Cut(e.Detail, " ")
		calls = append(calls, handoff.AICall{
			Provider: provider,
			Time:     e.Timestamp,
			Detail:   e.Detail,
			OK:       !strings.Contains(e.Detail, "failed") && !strings.Contains(e.Detail, "timed out"),
		})
	}
	return calls
}

func init() {
	handoffCmd.Flags().Bool("force", false, "Overwrite an existing HANDOFF.md without asking")
	handoffCmd.Flags().String("notes", "", "Free-form notes for the next stage")
	handoffCmd.Flags().StringArray("decision", nil, "Key decision made in this stage (repeatable)")
}
