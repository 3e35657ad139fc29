package types

import (
	"time"

	"github.com/google/uuid"
)

// Run entry sources
const (
	SourceComputed = "computed"
	SourceCache    = "cache"
	SourceReused   = "reused" // already resolved earlier in the same invocation
	SourceSkipped  = "skipped"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusHalted    = "halted" // stopped by the validation gate
)

// RunEntry is one (identity, artifact) pair resolved during an invocation
type RunEntry struct {
	Identity   StageIdentity `json:"identity"`
	Source     string        `json:"source"`
	Artifact   Artifact      `json:"artifact,omitempty"`
	DurationMs int64         `json:"duration_ms"`
	Message    string        `json:"message,omitempty"`
}

// PipelineRun is the ordered audit record of one invocation. It is never used for control flow.
type PipelineRun struct {
	ID          uuid.UUID  `json:"id"`
	Target      string     `json:"target"`
	Force       bool       `json:"force"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Entries     []RunEntry `json:"entries"`
	Error       string     `json:"error,omitempty"`
}

// NewPipelineRun starts a run record for the given target stage
func NewPipelineRun(target string, force bool) *PipelineRun {
	return &PipelineRun{
		ID:        uuid.New(),
		Target:    target,
		Force:     force,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Append records a resolved stage
func (r *PipelineRun) Append(entry RunEntry) {
	r.Entries = append(r.Entries, entry)
}

// Finish closes the run record with a terminal status
func (r *PipelineRun) Finish(status string, err error) {
	now := time.Now().UTC()
	r.CompletedAt = &now
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
}

// Entry returns the first entry with the given stage name
func (r *PipelineRun) Entry(stage string) (RunEntry, bool) {
	for _, e := range r.Entries {
		if e.Identity.Stage == stage {
			return e, true
		}
	}
	return RunEntry{}, false
}

// CountSource returns how many entries came from the given source
func (r *PipelineRun) CountSource(source string) int {
	n := 0
	for _, e := range r.Entries {
		if e.Source == source {
			n++
		}
	}
	return n
}
