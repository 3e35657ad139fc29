// Package store provides artifact store backends. A store is a durable key/value mapping from
// stage identity keys to serialized artifact envelopes.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Store persists serialized artifacts by identity key.
// Load reports a miss with found=false and a nil error.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Save(ctx context.Context, key string, data []byte) error
}

// checkKey rejects keys that are not <stage>/<fingerprint> or that could escape a base directory
func checkKey(key string) (types.StageIdentity, error) {
	id, err := types.ParseStageIdentity(key)
	if err != nil {
		return types.StageIdentity{}, err
	}
	for _, part := range []string{id.Stage, id.Fingerprint} {
		if part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return types.StageIdentity{}, fmt.Errorf("invalid stage identity key: %q", key)
		}
	}
	return id, nil
}
