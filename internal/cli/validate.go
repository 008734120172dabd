package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/db"
)

var validateCmd = &cobra.Command{
	Use:   "validate <from-stage> <to-stage>",
	Short: "Check whether a stage transition is allowed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		res := p.validator.Validate(args[0], args[1])
		p.record(cmd.Context(), db.KindTransitionValidated, args[1],
			fmt.Sprintf("%s -> %s valid=%t", args[0], args[1], res.Valid))

		if jsonFormat(cmd) {
			if err := writeJSON(cmd, res); err != nil {
				return err
			}
		} else {
			w := cmd.OutOrStdout()
			if res.Valid {
				fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("✓ %s → %s is valid", res.From, res.To)))
			} else {
				fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("✗ %s → %s is not valid", res.From, res.To)))
			}
			printMessages(cmd, errStyle, "Errors:", res.Errors)
			printMessages(cmd, warnStyle, "Warnings:", res.Warnings)
		}

		if !res.Valid {
			return fmt.Errorf("transition %s -> %s is not valid", args[0], args[1])
		}
		return nil
	},
}

func init() {
	addFormatFlag(validateCmd)
}
