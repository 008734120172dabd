package config

// Version is the config and progress format version written by this tool.
const Version = "2.0.0"

// DefaultStageTimeout applies to descriptor stages that don't set a timeout.
const DefaultStageTimeout = 3600

// DefaultMaxTokens is the context budget assumed when none is configured.
const DefaultMaxTokens = 200000

// Defaults returns the built-in configuration, the bottom layer of Load.
func Defaults() *Config {
	return &Config{
		AxTemplates: Meta{Version: Version},
		Paths: Paths{
			ProjectRoot:  "./",
			StagesOutput: "./stages",
			State:        "./state",
			Checkpoints:  "./state/checkpoints",
		},
		AI: AIConfig{Gemini: true, Codex: true},
		Tmux: TmuxConfig{
			GeminiSession: "ax-gemini",
			CodexSession:  "ax-codex",
			OutputTimeout: 300,
		},
		Context: ContextConfig{
			Warning:           60,
			Action:            50,
			Critical:          40,
			TaskSaveFrequency: 5,
			MaxTokens:         DefaultMaxTokens,
		},
		MCP: MCPConfig{
			Search:  []string{"context7", "exa"},
			Browser: []string{"playwright"},
		},
		Git: GitConfig{
			CommitLanguage: "Korean",
			AutoCommit:     true,
		},
		Journal: JournalConfig{Driver: "sqlite"},
	}
}

// DefaultPipeline is used when a project has no config/pipeline.yaml.
func DefaultPipeline() *PipelineDef {
	return &PipelineDef{
		Name:        "ax-templates pipeline",
		Version:     Version,
		Description: "Ten-stage idea-to-deployment workflow",
		Stages: []StageDefinition{
			{
				ID: "01-brainstorm", Name: "Brainstorming",
				Models: []string{"gemini", "claudecode"}, Mode: "yolo", Container: true,
				Inputs:  []string{"project_brief.md"},
				Outputs: []string{"ideas.md", "requirements_analysis.md"},
				Timeout: 3600,
			},
			{
				ID: "02-research", Name: "Research",
				Models: []string{"claude"}, Mode: "plan",
				MCPServers: []string{"context7", "exa"},
				Inputs:     []string{"requirements_analysis.md"},
				Outputs:    []string{"tech_research.md", "feasibility_report.md"},
				Timeout:    7200,
			},
			{
				ID: "03-planning", Name: "Planning",
				Models: []string{"gemini"}, Mode: "plan",
				Inputs:  []string{"tech_research.md"},
				Outputs: []string{"architecture.md", "project_plan.md"},
				Timeout: 3600,
			},
			{
				ID: "04-ui-ux", Name: "UI/UX Planning",
				Models: []string{"gemini"}, Mode: "plan",
				Inputs:  []string{"architecture.md"},
				Outputs: []string{"wireframes.md", "design_system.md"},
				Timeout: 3600,
			},
			{
				ID: "05-task-management", Name: "Task Management",
				Models: []string{"claudecode"}, Mode: "plan",
				Inputs:  []string{"project_plan.md"},
				Outputs: []string{"tasks.md", "sprint_plan.md"},
				Timeout: 1800,
			},
			{
				ID: "06-implementation", Name: "Implementation",
				Models: []string{"claudecode"}, Mode: "plan_sandbox", Sandbox: true,
				Inputs:             []string{"tasks.md"},
				Outputs:            []string{"source_code/"},
				Timeout:            14400,
				CheckpointRequired: true,
			},
			{
				ID: "07-refactoring", Name: "Refactoring",
				Models: []string{"codex"}, Mode: "deep_dive",
				Inputs:             []string{"source_code/"},
				Outputs:            []string{"refactored_code/"},
				Timeout:            7200,
				CheckpointRequired: true,
			},
			{
				ID: "08-qa", Name: "QA",
				Models: []string{"claudecode"}, Mode: "plan_sandbox",
				MCPServers: []string{"playwright"},
				Inputs:     []string{"refactored_code/"},
				Outputs:    []string{"qa_report.md"},
				Timeout:    3600,
			},
			{
				ID: "09-testing", Name: "Testing & E2E",
				Models: []string{"codex"}, Mode: "sandbox_playwright",
				MCPServers: []string{"playwright"},
				Inputs:     []string{"source_code/"},
				Outputs:    []string{"tests/", "test_report.md"},
				Timeout:    7200,
			},
			{
				ID: "10-deployment", Name: "CI/CD & Deployment",
				Models: []string{"claudecode"}, Mode: "headless",
				Inputs:  []string{"tests/"},
				Outputs: []string{".github/workflows/", "deployment_log.md"},
				Timeout: 3600,
			},
		},
	}
}
