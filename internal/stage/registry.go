package stage

import (
	"fmt"
	"time"

	"github.com/lucasnoah/axpipe/internal/config"
)

// Registry is the ordered, immutable list of stage definitions. Pipeline
// order is descriptor order.
type Registry struct {
	stages   []config.StageDefinition
	index    map[string]int
	timeouts map[string]int
	source   string
}

// NewRegistry builds a registry from a parsed descriptor. timeouts
// overrides per-stage timeouts in seconds and may be nil. A descriptor
// with no stages yields an empty registry; any other structural problem
// is a *ConfigurationError.
func NewRegistry(def *config.PipelineDef, timeouts map[string]int) (*Registry, error) {
	r := &Registry{
		index:    make(map[string]int),
		timeouts: timeouts,
	}
	if def == nil || len(def.Stages) == 0 {
		return r, nil
	}

	if errs := config.ValidatePipeline(def); len(errs) > 0 {
		problems := make([]string, len(errs))
		for i, e := range errs {
			problems[i] = e.Error()
		}
		return nil, &ConfigurationError{Problems: problems}
	}

	r.stages = append([]config.StageDefinition(nil), def.Stages...)
	for i, s := range r.stages {
		r.index[s.ID] = i
	}
	return r, nil
}

// LoadRegistry reads the project's stage descriptor, falling back to the
// built-in pipeline, and applies cfg's timeout overrides.
func LoadRegistry(projectDir string, cfg *config.Config) (*Registry, error) {
	def, source, err := config.LoadPipeline(projectDir)
	if err != nil {
		return nil, &ConfigurationError{Path: source, Problems: []string{err.Error()}}
	}
	var timeouts map[string]int
	if cfg != nil {
		timeouts = cfg.Timeouts
	}
	r, err := NewRegistry(def, timeouts)
	if err != nil {
		if ce, ok := err.(*ConfigurationError); ok {
			ce.Path = source
		}
		return nil, err
	}
	r.source = source
	return r, nil
}

// Source is the descriptor file the registry was loaded from, or empty
// for the built-in pipeline.
func (r *Registry) Source() string {
	return r.source
}

// List returns every stage in pipeline order.
func (r *Registry) List() []config.StageDefinition {
	return append([]config.StageDefinition(nil), r.stages...)
}

// IDs returns the stage ids in pipeline order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.stages))
	for i, s := range r.stages {
		ids[i] = s.ID
	}
	return ids
}

func (r *Registry) Len() int {
	return len(r.stages)
}

// Get looks up a stage by id.
func (r *Registry) Get(id string) (config.StageDefinition, bool) {
	i, ok := r.index[id]
	if !ok {
		return config.StageDefinition{}, false
	}
	return r.stages[i], true
}

// Require is Get that reports an unknown id as *StageNotFoundError.
func (r *Registry) Require(id string) (config.StageDefinition, error) {
	s, ok := r.Get(id)
	if !ok {
		return config.StageDefinition{}, &StageNotFoundError{ID: id}
	}
	return s, nil
}

// Index returns the position of id in the pipeline, or -1.
func (r *Registry) Index(id string) int {
	if i, ok := r.index[id]; ok {
		return i
	}
	return -1
}

// Next returns the stage after id. It is absent for the last stage and
// for unknown ids.
func (r *Registry) Next(id string) (config.StageDefinition, bool) {
	i := r.Index(id)
	if i < 0 || i+1 >= len(r.stages) {
		return config.StageDefinition{}, false
	}
	return r.stages[i+1], true
}

// Previous returns the stage before id. It is absent for the first stage
// and for unknown ids.
func (r *Registry) Previous(id string) (config.StageDefinition, bool) {
	i := r.Index(id)
	if i <= 0 {
		return config.StageDefinition{}, false
	}
	return r.stages[i-1], true
}

// First returns the first stage, or a *ConfigurationError when the
// registry is empty.
func (r *Registry) First() (config.StageDefinition, error) {
	if len(r.stages) == 0 {
		return config.StageDefinition{}, &ConfigurationError{Path: r.source, Problems: []string{"pipeline has no stages"}}
	}
	return r.stages[0], nil
}

// Timeout returns the effective timeout for id, preferring the config
// override over the descriptor value.
func (r *Registry) Timeout(id string) (time.Duration, error) {
	s, err := r.Require(id)
	if err != nil {
		return 0, err
	}
	secs := s.Timeout
	if override, ok := r.timeouts[id]; ok && override > 0 {
		secs = override
	}
	if secs <= 0 {
		secs = config.DefaultStageTimeout
	}
	return time.Duration(secs) * time.Second, nil
}

// Describe renders a one-line label such as "02-research (Research)".
func Describe(s config.StageDefinition) string {
	if s.Name == "" {
		return s.ID
	}
	return fmt.Sprintf("%s (%s)", s.ID, s.Name)
}
