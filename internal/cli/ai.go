package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/axpipe/internal/session"
)

var (
	geminiCmd = aiCommand(session.Gemini)
	codexCmd  = aiCommand(session.Codex)
)

// newTmux is replaced in tests.
var newTmux = func() session.TmuxRunner { return session.NewExecTmux() }

func aiCommand(provider session.Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(provider) + " [prompt...]",
		Short: fmt.Sprintf("Send a prompt to %s in its tmux session", provider),
		Long: fmt.Sprintf(`Send a prompt to the %[1]s CLI running in a dedicated tmux session and
print its output. Use "-" as the prompt to read it from stdin. The call is
recorded in the event journal against the current stage.`, provider),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetBool("status")
			outFile, _ := cmd.Flags().GetString("output")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			stageID, _ := cmd.Flags().GetString("stage")

			p, cleanup, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			inv := session.NewInvoker(newTmux(), p.cfg, p.journal)

			if status {
				st := inv.Status(provider)
				if jsonFormat(cmd) {
					return writeJSON(cmd, st)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s (session %s)\n", titleStyle.Render(string(provider)), st.Session)
				fmt.Fprintf(w, "  enabled:   %t\n  installed: %t\n  running:   %t\n", st.Enabled, st.CLI, st.Running)
				return nil
			}

			prompt := strings.Join(args, " ")
			if prompt == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = string(data)
			}
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("prompt is required")
			}
			if stageID == "" {
				if def, ok, err := p.pointer.CurrentStage(); err == nil && ok {
					stageID = def.ID
				}
			}

			res, err := inv.Call(cmd.Context(), session.CallOpts{
				Provider:   provider,
				Prompt:     prompt,
				OutputFile: outFile,
				Timeout:    timeout,
				StageID:    stageID,
			})
			if err != nil {
				return err
			}

			if jsonFormat(cmd) {
				return writeJSON(cmd, res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprint(w, res.Output)
			if !strings.HasSuffix(res.Output, "\n") {
				fmt.Fprintln(w)
			}
			if res.TimedOut {
				fmt.Fprintln(p.errOut, warnStyle.Render(fmt.Sprintf("timed out after %s; output may be incomplete", res.Duration.Round(time.Second))))
			}
			if verbose {
				fmt.Fprintln(p.errOut, dimStyle.Render(fmt.Sprintf("%s in %s, output in %s", provider, res.Duration.Round(100*time.Millisecond), res.OutputFile)))
			}
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "Show whether the provider can be called")
	cmd.Flags().StringP("output", "o", "", "File to write the output to (default: temp file)")
	cmd.Flags().Duration("timeout", 0, "How long to wait for output (default: tmux.output_timeout)")
	cmd.Flags().String("stage", "", "Stage to record the call against (default: current stage)")
	addFormatFlag(cmd)
	return cmd
}
