package pipeline

// Summary counts stage statuses across an ordered pipeline.
type Summary struct {
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	InProgress   int    `json:"inProgress"`
	Pending      int    `json:"pending"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	CurrentStage string `json:"currentStage,omitempty"`
	NextStage    string `json:"nextStage,omitempty"`
}

// Summarize tallies p over the stage ids in pipeline order. Stages with no
// record count as pending. NextStage follows the current stage, or is the
// first stage when nothing has started.
func Summarize(p *PipelineProgress, ids []string) Summary {
	sum := Summary{Total: len(ids), CurrentStage: p.CurrentStage}
	for _, id := range ids {
		switch p.Stage(id).Status {
		case StatusCompleted:
			sum.Completed++
		case StatusInProgress:
			sum.InProgress++
		case StatusFailed:
			sum.Failed++
		case StatusSkipped:
			sum.Skipped++
		default:
			sum.Pending++
		}
	}

	if p.CurrentStage == "" {
		if len(ids) > 0 {
			sum.NextStage = ids[0]
		}
		return sum
	}
	for i, id := range ids {
		if id == p.CurrentStage && i+1 < len(ids) {
			sum.NextStage = ids[i+1]
			break
		}
	}
	return sum
}

// Percent returns the share of finished (completed or skipped) stages.
func (s Summary) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Completed + s.Skipped) * 100 / s.Total
}
