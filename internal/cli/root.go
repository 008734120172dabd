package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	projectDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ax",
	Short: "ax drives a project through a staged pipeline",
	Long: `ax drives a project through an ordered pipeline of stages
(brainstorm → research → ... → deployment), tracking progress, gating
transitions on hand-off documents, capturing checkpoints of stage outputs,
and monitoring the AI assistant's context budget.

State lives in the project's state/ directory (JSON records plus an
event journal in SQLite or Postgres).`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "Project directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print progress details to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runStageCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(failCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(handoffCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(geminiCmd)
	rootCmd.AddCommand(codexCmd)
	rootCmd.AddCommand(serveCmd)
}
