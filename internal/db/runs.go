package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

// -----------------------------------------------------------------------------
// Pipeline Run Methods
// -----------------------------------------------------------------------------

// StartRun inserts the run record for a new invocation
func (db *DB) StartRun(ctx context.Context, run *types.PipelineRun) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, target, force, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Target, run.Force, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// RecordStage appends a resolved stage to the run, after any stage already recorded
func (db *DB) RecordStage(ctx context.Context, runID uuid.UUID, entry types.RunEntry) error {
	var artifactJSON []byte
	if entry.Artifact != nil {
		var err error
		artifactJSON, err = json.Marshal(entry.Artifact)
		if err != nil {
			return fmt.Errorf("failed to marshal artifact: %w", err)
		}
	}
	var message *string
	if entry.Message != "" {
		message = &entry.Message
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_stages (run_id, position, stage, fingerprint, source, duration_ms, message, artifact)
		 VALUES ($1,
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM run_stages WHERE run_id = $1),
		         $2, $3, $4, $5, $6, $7)`,
		runID, entry.Identity.Stage, entry.Identity.Fingerprint, entry.Source,
		entry.DurationMs, message, artifactJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage %s: %w", entry.Identity.Stage, err)
	}
	return nil
}

// CompleteRun stores the terminal status of a run
func (db *DB) CompleteRun(ctx context.Context, run *types.PipelineRun) error {
	var errMsg *string
	if run.Error != "" {
		errMsg = &run.Error
	}

	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, error_message = $2, completed_at = COALESCE($3, NOW())
		 WHERE id = $4`,
		run.Status, errMsg, run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a pipeline run by ID. It returns nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, target, force, status, error_message, created_at, completed_at
		 FROM pipeline_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Target, &run.Force, &run.Status, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRunStages retrieves the stages of a run in resolution order
func (db *DB) ListRunStages(ctx context.Context, runID uuid.UUID) ([]RunStage, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, position, stage, fingerprint, source, duration_ms, message, artifact, created_at
		 FROM run_stages
		 WHERE run_id = $1
		 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run stages: %w", err)
	}
	defer rows.Close()

	var stages []RunStage
	for rows.Next() {
		var s RunStage
		if err := rows.Scan(&s.ID, &s.RunID, &s.Position, &s.Stage, &s.Fingerprint, &s.Source,
			&s.DurationMs, &s.Message, &s.Artifact, &s.CreatedAt); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list run stages: %w", err)
	}

	return stages, nil
}
