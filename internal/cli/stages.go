package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

type stageRow struct {
	config.StageDefinition
	Status pipeline.Status `json:"status"`
}

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the pipeline stages",
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
		rows := make([]stageRow, 0, p.registry.Len())
		for _, def := range p.registry.List() {
			rows = append(rows, stageRow{StageDefinition: def, Status: prog.Stage(def.ID).Status})
		}

		if jsonFormat(cmd) {
			return writeJSON(cmd, rows)
		}

		w := cmd.OutOrStdout()
		source := p.registry.Source()
		if source == "" {
			source = "built-in pipeline"
		}
		fmt.Fprintln(w, titleStyle.Render("Stages")+" "+dimStyle.Render("("+source+")"))
		for _, r := range rows {
			fmt.Fprintf(w, "  %s %-18s %-32s %s\n",
				statusIcon(r.Status), r.ID, r.Name, dimStyle.Render(strings.Join(r.Models, ", ")))
		}
		return nil
	},
}

func init() {
	addFormatFlag(stagesCmd)
}
