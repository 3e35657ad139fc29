package db

import (
	"context"
	"fmt"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

// -----------------------------------------------------------------------------
// Stage Artifact Store Methods
// -----------------------------------------------------------------------------

// Exists checks whether an artifact is stored under the <stage>/<fingerprint> key
func (db *DB) Exists(ctx context.Context, key string) (bool, error) {
	id, err := types.ParseStageIdentity(key)
	if err != nil {
		return false, err
	}

	var exists bool
	err = db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stage_artifacts WHERE stage = $1 AND fingerprint = $2)`,
		id.Stage, id.Fingerprint,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check artifact %s: %w", key, err)
	}
	return exists, nil
}

// Load returns the stored artifact envelope, with found=false on a miss
func (db *DB) Load(ctx context.Context, key string) ([]byte, bool, error) {
	id, err := types.ParseStageIdentity(key)
	if err != nil {
		return nil, false, err
	}

	var content []byte
	err = db.pool.QueryRow(ctx,
		`SELECT content FROM stage_artifacts WHERE stage = $1 AND fingerprint = $2`,
		id.Stage, id.Fingerprint,
	).Scan(&content)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get artifact %s: %w", key, err)
	}
	return content, true, nil
}

// Save upserts the artifact envelope; the last writer wins
func (db *DB) Save(ctx context.Context, key string, data []byte) error {
	id, err := types.ParseStageIdentity(key)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO stage_artifacts (stage, fingerprint, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (stage, fingerprint) DO UPDATE SET content = $3, updated_at = NOW()`,
		id.Stage, id.Fingerprint, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", key, err)
	}
	return nil
}
