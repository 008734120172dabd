package stage

import "github.com/lucasnoah/axpipe/internal/config"

// Pointer resolves the progress store's current-stage pointer through the
// registry.
type Pointer struct {
	Registry *Registry
	Progress ProgressLoader
}

// CurrentStage returns the current stage. ok is false when no stage has
// been started or the pointer names a stage no longer in the registry.
func (p Pointer) CurrentStage() (def config.StageDefinition, ok bool, err error) {
	progress, err := p.Progress.Load()
	if err != nil {
		return config.StageDefinition{}, false, err
	}
	if progress.CurrentStage == "" {
		return config.StageDefinition{}, false, nil
	}
	def, ok = p.Registry.Get(progress.CurrentStage)
	return def, ok, nil
}
