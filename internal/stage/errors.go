package stage

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a malformed or empty stage descriptor.
type ConfigurationError struct {
	Path     string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	where := "pipeline descriptor"
	if e.Path != "" {
		where = e.Path
	}
	return fmt.Sprintf("invalid %s: %s", where, strings.Join(e.Problems, "; "))
}

// StageNotFoundError reports a stage id absent from the registry.
type StageNotFoundError struct {
	ID string
}

func (e *StageNotFoundError) Error() string {
	return fmt.Sprintf("stage not found: %s", e.ID)
}
