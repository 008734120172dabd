package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/axpipe/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate project configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate .ax-config.yaml and the stage descriptor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(projectDir)
		if err != nil {
			return fmt.Errorf("resolve project dir: %w", err)
		}
		cfg, err := config.Load(config.LoadOptions{ProjectDir: dir})
		if err != nil {
			return err
		}
		def, source, err := config.LoadPipeline(dir)
		if err != nil {
			return err
		}

		errs := config.Validate(cfg)
		for _, e := range config.ValidatePipeline(def) {
			e.Field = "pipeline." + e.Field
			errs = append(errs, e)
		}

		w := cmd.OutOrStdout()
		if source == "" {
			source = "built-in pipeline"
		}
		fmt.Fprintf(w, "Pipeline: %s (%d stages)\n", source, len(def.Stages))
		if len(errs) == 0 {
			fmt.Fprintln(w, okStyle.Render("✓ Configuration is valid"))
			return nil
		}
		fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("✗ %d problem(s):", len(errs))))
		for _, e := range errs {
			fmt.Fprintf(w, "  - %s\n", e.Error())
		}
		return fmt.Errorf("configuration is invalid")
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, ~/.ax/config.yaml,
.ax-config.yaml and AX_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(projectDir)
		if err != nil {
			return fmt.Errorf("resolve project dir: %w", err)
		}
		cfg, err := config.Load(config.LoadOptions{ProjectDir: dir})
		if err != nil {
			return err
		}
		if jsonFormat(cmd) {
			return writeJSON(cmd, cfg)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List the AX_* environment variables and their current values",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		for _, key := range config.EnvKeys() {
			if v, ok := os.LookupEnv(key); ok {
				fmt.Fprintf(w, "%-20s %s\n", key, v)
			} else {
				fmt.Fprintf(w, "%-20s %s\n", key, dimStyle.Render("(unset)"))
			}
		}
	},
}

func init() {
	addFormatFlag(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
}
