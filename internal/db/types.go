package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a pipeline run record
type Run struct {
	ID           uuid.UUID  `json:"id"`
	Target       string     `json:"target"`
	Force        bool       `json:"force"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RunStage represents one resolved stage within a run, in resolution order
type RunStage struct {
	ID          int64     `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	Position    int       `json:"position"`
	Stage       string    `json:"stage"`
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	DurationMs  int64     `json:"duration_ms"`
	Message     *string   `json:"message,omitempty"`
	Artifact    []byte    `json:"artifact,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
