package config

import (
	"fmt"
	"sort"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var commitLanguages = map[string]bool{
	"Korean":   true,
	"English":  true,
	"Japanese": true,
	"Chinese":  true,
}

var journalDrivers = map[string]bool{
	"sqlite":   true,
	"postgres": true,
}

// Validate checks a resolved Config for semantic errors.
// It returns every problem found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for field, v := range map[string]string{
		"paths.project_root":  cfg.Paths.ProjectRoot,
		"paths.stages_output": cfg.Paths.StagesOutput,
		"paths.state":         cfg.Paths.State,
		"paths.checkpoints":   cfg.Paths.Checkpoints,
	} {
		if v == "" {
			add(field, "is required")
		}
	}

	c := cfg.Context
	for _, t := range []struct {
		field string
		value float64
	}{
		{"context.warning", c.Warning},
		{"context.action", c.Action},
		{"context.critical", c.Critical},
	} {
		if t.value < 0 || t.value > 100 {
			add(t.field, "must be between 0 and 100, got %g", t.value)
		}
	}
	if c.Warning < c.Action {
		add("context.warning", "must be >= context.action (%g < %g)", c.Warning, c.Action)
	}
	if c.Action < c.Critical {
		add("context.action", "must be >= context.critical (%g < %g)", c.Action, c.Critical)
	}
	if c.TaskSaveFrequency < 1 {
		add("context.task_save_frequency", "must be at least 1")
	}
	if c.MaxTokens <= 0 {
		add("context.max_tokens", "must be positive")
	}

	if cfg.Tmux.OutputTimeout <= 0 {
		add("tmux.output_timeout", "must be positive")
	}

	if !commitLanguages[cfg.Git.CommitLanguage] {
		add("git.commit_language", "unsupported language %q", cfg.Git.CommitLanguage)
	}

	if !journalDrivers[cfg.Journal.Driver] {
		add("journal.driver", "unrecognized driver %q", cfg.Journal.Driver)
	} else if cfg.Journal.Driver == "postgres" && cfg.Journal.DSN == "" {
		add("journal.dsn", "is required for the postgres driver")
	}

	for id, secs := range cfg.Timeouts {
		if secs <= 0 {
			add(fmt.Sprintf("timeouts.%s", id), "must be positive")
		}
	}

	sortErrors(errs)
	return errs
}

// ValidatePipeline checks a stage descriptor for structural errors.
func ValidatePipeline(def *PipelineDef) []ValidationError {
	var errs []ValidationError
	if len(def.Stages) == 0 {
		errs = append(errs, ValidationError{Field: "stages", Message: "at least one stage is required"})
		return errs
	}

	seen := make(map[string]bool)
	for i, s := range def.Stages {
		prefix := fmt.Sprintf("stages[%d]", i)
		if s.ID == "" {
			errs = append(errs, ValidationError{Field: prefix + ".id", Message: "is required"})
		} else if seen[s.ID] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".id",
				Message: fmt.Sprintf("duplicate stage ID %q", s.ID),
			})
		}
		seen[s.ID] = true

		if s.Name == "" {
			errs = append(errs, ValidationError{Field: prefix + ".name", Message: "is required"})
		}
		if len(s.Models) == 0 {
			errs = append(errs, ValidationError{Field: prefix + ".models", Message: "at least one model is required"})
		}
		if s.Timeout <= 0 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".timeout",
				Message: fmt.Sprintf("must be positive, got %d", s.Timeout),
			})
		}
	}
	return errs
}

// sortErrors orders errors by field so output is stable across runs.
func sortErrors(errs []ValidationError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
}
