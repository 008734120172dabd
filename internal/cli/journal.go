package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/db"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent engine events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		stageID, _ := cmd.Flags().GetString("stage")
		if limit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}

		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		events, err := p.journal.Events(cmd.Context(), db.Filter{Kind: db.Kind(kind), StageID: stageID, Limit: limit})
		if err != nil {
			return err
		}
		if jsonFormat(cmd) {
			if events == nil {
				events = []db.Event{}
			}
			return writeJSON(cmd, events)
		}

		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, dimStyle.Render("No events"))
			return nil
		}
		for _, e := range events {
			fmt.Fprintf(w, "%s  %-22s %-18s %s\n",
				dimStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04:05")), e.Kind, e.StageID, e.Detail)
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().Int("limit", 20, "Maximum events to show (0 for all)")
	journalCmd.Flags().String("kind", "", "Only show events of this kind")
	journalCmd.Flags().String("stage", "", "Only show events of this stage")
	addFormatFlag(journalCmd)
}
