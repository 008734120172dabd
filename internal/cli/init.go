package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up a project for the pipeline",
	Long: `Write .ax-config.yaml with the default settings, create a directory
for every stage and initialise the progress record. With --with-pipeline the
built-in stage list is also written to config/pipeline.yaml for editing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		withPipeline, _ := cmd.Flags().GetBool("with-pipeline")

		dir, err := filepath.Abs(projectDir)
		if err != nil {
			return fmt.Errorf("resolve project dir: %w", err)
		}
		w := cmd.OutOrStdout()

		wrote, err := writeYAMLFile(filepath.Join(dir, config.ProjectConfigFile), config.Defaults(), force)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Fprintln(w, okStyle.Render("✓ Wrote "+config.ProjectConfigFile))
		} else {
			fmt.Fprintln(w, dimStyle.Render(config.ProjectConfigFile+" exists (use --force to overwrite)"))
		}

		if withPipeline {
			wrote, err := writeYAMLFile(filepath.Join(dir, config.PipelineFile), config.DefaultPipeline(), force)
			if err != nil {
				return err
			}
			if wrote {
				fmt.Fprintln(w, okStyle.Render("✓ Wrote "+config.PipelineFile))
			} else {
				fmt.Fprintln(w, dimStyle.Render(config.PipelineFile+" exists (use --force to overwrite)"))
			}
		}

		return withProjectLock(cmd, func(p *project) error {
			for _, def := range p.registry.List() {
				if err := os.MkdirAll(p.layout.OutputsDir(def.ID), 0o755); err != nil {
					return fmt.Errorf("create stage dir: %w", err)
				}
			}
			first, err := p.registry.First()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(p.layout.InputsDir(first.ID), 0o755); err != nil {
				return fmt.Errorf("create inputs dir: %w", err)
			}
			for _, d := range []string{p.layout.ContextDir(), p.layout.CheckpointsDir()} {
				if err := os.MkdirAll(d, 0o755); err != nil {
					return fmt.Errorf("create state dir: %w", err)
				}
			}

			if !pipeline.Exists(p.store.Path()) || force {
				if err := p.store.Reset(); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "%s %d stages ready\n", okStyle.Render("✓"), p.registry.Len())
			fmt.Fprintln(w, dimStyle.Render("Start with: ax next"))
			return nil
		})
	},
}

// writeYAMLFile marshals v to path unless the file exists and force is false.
func writeYAMLFile(path string, v any, force bool) (bool, error) {
	if pipeline.Exists(path) && !force {
		return false, nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := pipeline.WriteAtomic(path, data); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config and progress")
	initCmd.Flags().Bool("with-pipeline", false, "Also write the stage list to config/pipeline.yaml")
}
