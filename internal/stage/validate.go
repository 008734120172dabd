package stage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/axpipe/internal/config"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

// ProgressLoader reads the current pipeline progress.
type ProgressLoader interface {
	Load() (*pipeline.PipelineProgress, error)
}

// TransitionResult is the outcome of validating a move between stages.
// Valid is true iff Errors is empty; Warnings never affect it.
type TransitionResult struct {
	Valid    bool     `json:"valid"`
	From     string   `json:"fromStage"`
	To       string   `json:"toStage"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// IOResult reports which declared artifacts of a stage exist on disk.
type IOResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
	Present []string `json:"present"`
}

// Validator checks stage transitions and declared artifacts.
type Validator struct {
	reg      *Registry
	layout   config.Layout
	progress ProgressLoader
}

// NewValidator creates a Validator over the given registry, project layout
// and progress source.
func NewValidator(reg *Registry, layout config.Layout, progress ProgressLoader) *Validator {
	return &Validator{reg: reg, layout: layout, progress: progress}
}

// Validate checks whether the pipeline may advance from one stage to another.
func (v *Validator) Validate(from, to string) TransitionResult {
	res := TransitionResult{From: from, To: to, Errors: []string{}, Warnings: []string{}}

	fromStage, fromOK := v.reg.Get(from)
	if !fromOK {
		res.Errors = append(res.Errors, "Source stage not found: "+from)
	}
	if _, ok := v.reg.Get(to); !ok {
		res.Errors = append(res.Errors, "Target stage not found: "+to)
	}
	if len(res.Errors) > 0 {
		return res
	}

	if out := v.ValidateOutputs(from); !out.Valid {
		res.Errors = append(res.Errors, "Missing outputs: "+strings.Join(out.Missing, ", "))
	}

	if !pipeline.Exists(v.layout.HandoffPath(from)) {
		res.Errors = append(res.Errors, "HANDOFF.md not found - required for stage transition")
	}

	progress, err := v.progress.Load()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Cannot read progress: %v", err))
	} else {
		sp := progress.Stage(from)
		if fromStage.CheckpointRequired && sp.CheckpointID == "" {
			res.Warnings = append(res.Warnings, "Checkpoint recommended for this stage but not created")
		}
		if sp.Status == pipeline.StatusFailed {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Source stage %s is marked failed", from))
		}
	}

	fromIdx, toIdx := v.reg.Index(from), v.reg.Index(to)
	switch {
	case toIdx > fromIdx+1:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Non-sequential transition: skipping %d stage(s)", toIdx-fromIdx-1))
	case toIdx == fromIdx:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Non-sequential transition: repeating stage %s", to))
	case toIdx < fromIdx:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Non-sequential transition: moving back %d stage(s)", fromIdx-toIdx))
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateOutputs checks that every declared output of id exists in its
// outputs directory. An unknown stage is reported invalid with no entries.
func (v *Validator) ValidateOutputs(id string) IOResult {
	s, ok := v.reg.Get(id)
	if !ok {
		return IOResult{Missing: []string{}, Present: []string{}}
	}
	return checkArtifacts(v.layout.OutputsDir(id), s.Outputs)
}

// ValidateInputs checks that every declared input of id is available. Inputs
// are looked up in the previous stage's outputs, or in the stage's own
// inputs directory for the first stage.
func (v *Validator) ValidateInputs(id string) IOResult {
	s, ok := v.reg.Get(id)
	if !ok {
		return IOResult{Missing: []string{}, Present: []string{}}
	}
	dir := v.layout.InputsDir(id)
	if prev, ok := v.reg.Previous(id); ok {
		dir = v.layout.OutputsDir(prev.ID)
	}
	return checkArtifacts(dir, s.Inputs)
}

func checkArtifacts(dir string, names []string) IOResult {
	res := IOResult{Missing: []string{}, Present: []string{}}
	for _, name := range names {
		if pipeline.Exists(filepath.Join(dir, name)) {
			res.Present = append(res.Present, name)
		} else {
			res.Missing = append(res.Missing, name)
		}
	}
	res.Valid = len(res.Missing) == 0
	return res
}
