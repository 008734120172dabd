package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectConfigFile is the per-project config file name.
const ProjectConfigFile = ".ax-config.yaml"

// PipelineFile is the stage descriptor path relative to the project dir.
const PipelineFile = "config/pipeline.yaml"

// LoadOptions controls which layers Load applies.
type LoadOptions struct {
	ProjectDir string
	// GlobalPath overrides ~/.ax/config.yaml.
	GlobalPath string
	SkipGlobal bool
	SkipEnv    bool
	// Overrides are AX_* style keys applied after the environment.
	Overrides map[string]string
}

// Load resolves configuration from built-in defaults, the global config,
// the project's .ax-config.yaml, AX_* environment variables and explicit
// overrides, in that order. Missing files are skipped.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Defaults()

	if !opts.SkipGlobal {
		global := opts.GlobalPath
		if global == "" {
			if home, err := os.UserHomeDir(); err == nil {
				global = filepath.Join(home, ".ax", "config.yaml")
			}
		}
		if global != "" {
			if err := mergeFile(cfg, global); err != nil {
				return nil, err
			}
		}
	}

	if opts.ProjectDir != "" {
		if err := mergeFile(cfg, filepath.Join(opts.ProjectDir, ProjectConfigFile)); err != nil {
			return nil, err
		}
	}

	if !opts.SkipEnv {
		if err := applyEnv(cfg, os.LookupEnv); err != nil {
			return nil, err
		}
	}
	if len(opts.Overrides) > 0 {
		err := applyEnv(cfg, func(key string) (string, bool) {
			v, ok := opts.Overrides[key]
			return v, ok
		})
		if err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

// mergeFile decodes the YAML file at path on top of cfg.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config YAML %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills zero values a partial layer may have cleared.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.AxTemplates.Version == "" {
		cfg.AxTemplates.Version = d.AxTemplates.Version
	}
	if cfg.Paths.ProjectRoot == "" {
		cfg.Paths.ProjectRoot = d.Paths.ProjectRoot
	}
	if cfg.Context.MaxTokens == 0 {
		cfg.Context.MaxTokens = d.Context.MaxTokens
	}
	if cfg.Tmux.OutputTimeout == 0 {
		cfg.Tmux.OutputTimeout = d.Tmux.OutputTimeout
	}
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = d.Journal.Driver
	}
}

// envBinding maps one AX_* variable onto a config field.
type envBinding struct {
	key string
	set func(cfg *Config, v string) error
}

var envBindings = []envBinding{
	{"AX_PROJECT_ROOT", setString(func(c *Config) *string { return &c.Paths.ProjectRoot })},
	{"AX_STAGES_OUTPUT", setString(func(c *Config) *string { return &c.Paths.StagesOutput })},
	{"AX_STATE_DIR", setString(func(c *Config) *string { return &c.Paths.State })},
	{"AX_CHECKPOINTS_DIR", setString(func(c *Config) *string { return &c.Paths.Checkpoints })},
	{"AX_AI_GEMINI", setBool(func(c *Config) *bool { return &c.AI.Gemini })},
	{"AX_AI_CODEX", setBool(func(c *Config) *bool { return &c.AI.Codex })},
	{"AX_TMUX_GEMINI", setString(func(c *Config) *string { return &c.Tmux.GeminiSession })},
	{"AX_TMUX_CODEX", setString(func(c *Config) *string { return &c.Tmux.CodexSession })},
	{"AX_TMUX_TIMEOUT", setInt(func(c *Config) *int { return &c.Tmux.OutputTimeout })},
	{"AX_CONTEXT_WARNING", setFloat(func(c *Config) *float64 { return &c.Context.Warning })},
	{"AX_CONTEXT_ACTION", setFloat(func(c *Config) *float64 { return &c.Context.Action })},
	{"AX_CONTEXT_CRITICAL", setFloat(func(c *Config) *float64 { return &c.Context.Critical })},
	{"AX_TASK_SAVE_FREQ", setInt(func(c *Config) *int { return &c.Context.TaskSaveFrequency })},
	{"AX_GIT_LANG", setString(func(c *Config) *string { return &c.Git.CommitLanguage })},
	{"AX_GIT_AUTO_COMMIT", setBool(func(c *Config) *bool { return &c.Git.AutoCommit })},
	{"AX_JOURNAL_DRIVER", setString(func(c *Config) *string { return &c.Journal.Driver })},
	{"AX_JOURNAL_DSN", setString(func(c *Config) *string { return &c.Journal.DSN })},
}

// EnvKeys lists every recognised AX_* variable in binding order.
func EnvKeys() []string {
	keys := make([]string, len(envBindings))
	for i, b := range envBindings {
		keys[i] = b.key
	}
	return keys
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
	}
	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			*field(c) = true
		case "0", "false", "no", "off":
			*field(c) = false
		default:
			return fmt.Errorf("invalid boolean %q", v)
		}
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*field(c) = n
		return nil
	}
}

func setFloat(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		*field(c) = f
		return nil
	}
}

// LoadPipeline reads <projectDir>/config/pipeline.yaml. When the file does
// not exist the built-in pipeline is returned and source is empty.
func LoadPipeline(projectDir string) (def *PipelineDef, source string, err error) {
	path := filepath.Join(projectDir, PipelineFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPipeline(), "", nil
		}
		return nil, path, fmt.Errorf("reading pipeline file: %w", err)
	}
	def, err = ParsePipeline(data)
	if err != nil {
		return nil, path, err
	}
	return def, path, nil
}

// ParsePipeline decodes a stage descriptor and fills stage timeouts that
// were left unset.
func ParsePipeline(data []byte) (*PipelineDef, error) {
	var def PipelineDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing pipeline YAML: %w", err)
	}
	for i := range def.Stages {
		if def.Stages[i].Timeout == 0 {
			def.Stages[i].Timeout = DefaultStageTimeout
		}
	}
	return &def, nil
}
