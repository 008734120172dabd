package config

// Config is the resolved project configuration parsed from .ax-config.yaml layers.
type Config struct {
	AxTemplates Meta           `yaml:"ax_templates"`
	Paths       Paths          `yaml:"paths"`
	AI          AIConfig       `yaml:"ai"`
	Tmux        TmuxConfig     `yaml:"tmux"`
	Context     ContextConfig  `yaml:"context"`
	MCP         MCPConfig      `yaml:"mcp"`
	Git         GitConfig      `yaml:"git"`
	Journal     JournalConfig  `yaml:"journal"`
	Timeouts    map[string]int `yaml:"timeouts,omitempty"`
}

// Meta records the config format version.
type Meta struct {
	Version string `yaml:"version"`
}

// Paths locates every directory the engine reads or writes, relative to the project root.
type Paths struct {
	ProjectRoot  string `yaml:"project_root"`
	StagesOutput string `yaml:"stages_output"`
	State        string `yaml:"state"`
	Checkpoints  string `yaml:"checkpoints"`
}

// AIConfig toggles the external assistant CLIs.
type AIConfig struct {
	Gemini bool `yaml:"gemini"`
	Codex  bool `yaml:"codex"`
}

// TmuxConfig names the tmux sessions used to drive assistant CLIs.
type TmuxConfig struct {
	GeminiSession string `yaml:"gemini_session"`
	CodexSession  string `yaml:"codex_session"`
	OutputTimeout int    `yaml:"output_timeout"` // seconds
}

// ContextConfig holds the context budget cutoffs. Each cutoff is a
// remaining-budget percentage: a threshold applies once remaining <= cutoff.
type ContextConfig struct {
	Warning           float64 `yaml:"warning"`
	Action            float64 `yaml:"action"`
	Critical          float64 `yaml:"critical"`
	TaskSaveFrequency int     `yaml:"task_save_frequency"`
	MaxTokens         int     `yaml:"max_tokens"`
}

// MCPConfig lists MCP servers offered to stages.
type MCPConfig struct {
	Search  []string `yaml:"search"`
	Browser []string `yaml:"browser"`
}

// GitConfig controls commit conventions.
type GitConfig struct {
	CommitLanguage string                `yaml:"commit_language"`
	AutoCommit     bool                  `yaml:"auto_commit"`
	CommitTypes    map[string]CommitType `yaml:"commit_types,omitempty"`
}

// CommitType is the conventional-commit type and scope used for a stage.
type CommitType struct {
	Type  string `yaml:"type"`
	Scope string `yaml:"scope"`
}

// JournalConfig selects the event journal backend.
type JournalConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// PipelineDef is the stage descriptor parsed from config/pipeline.yaml.
type PipelineDef struct {
	Name        string            `yaml:"name"`
	Version     string            `yaml:"version"`
	Description string            `yaml:"description,omitempty"`
	Stages      []StageDefinition `yaml:"stages"`
}

// StageDefinition describes one pipeline stage. Pipeline order is the list order.
type StageDefinition struct {
	ID                 string   `yaml:"id" json:"id"`
	Name               string   `yaml:"name" json:"name"`
	Description        string   `yaml:"description,omitempty" json:"description,omitempty"`
	Models             []string `yaml:"models" json:"models"`
	Mode               string   `yaml:"mode" json:"mode"`
	Container          bool     `yaml:"container,omitempty" json:"container,omitempty"`
	Sandbox            bool     `yaml:"sandbox,omitempty" json:"sandbox,omitempty"`
	MCPServers         []string `yaml:"mcp_servers,omitempty" json:"mcpServers,omitempty"`
	Inputs             []string `yaml:"inputs" json:"inputs"`
	Outputs            []string `yaml:"outputs" json:"outputs"`
	Timeout            int      `yaml:"timeout" json:"timeoutSeconds"`
	CheckpointRequired bool     `yaml:"checkpoint_required,omitempty" json:"checkpointRequired"`
}
