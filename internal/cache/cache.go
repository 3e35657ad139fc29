// Package cache memoizes stage artifacts by stage identity on top of an artifact store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonathan/autoclaim-ml/internal/schemas"
	"github.com/jonathan/autoclaim-ml/internal/store"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// EnvelopeVersion is bumped whenever the stored envelope layout changes
const EnvelopeVersion = 1

// Envelope is the stored form of a cached artifact
type Envelope struct {
	Stage       string          `json:"stage"`
	Fingerprint string          `json:"fingerprint"`
	Version     int             `json:"version"`
	StoredAt    time.Time       `json:"stored_at"`
	Artifact    json.RawMessage `json:"artifact"`
}

// Cache resolves artifacts from a store, computing and persisting them on a miss.
// Concurrent resolutions of one identity within the process share a single computation.
type Cache struct {
	store  store.Store
	logger *slog.Logger
	group  singleflight.Group
}

// New creates a cache over s. A nil logger discards log output.
func New(s store.Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{store: s, logger: logger}
}

// Session is the memo of one pipeline invocation: an identity resolved once is reused for the
// rest of the session, even when force is requested again.
type Session struct {
	cache *Cache
	mu    sync.Mutex
	memo  map[string]types.Artifact
}

// NewSession starts a per-invocation memo
func (c *Cache) NewSession() *Session {
	return &Session{cache: c, memo: make(map[string]types.Artifact)}
}

type resolution struct {
	artifact types.Artifact
	source   string
}

// GetOrCompute returns the artifact for id together with its source: types.SourceReused when the
// session already resolved it, types.SourceCache on a store hit, types.SourceComputed otherwise.
// With force the store is bypassed and the result overwrites the stored entry.
func GetOrCompute[T types.Artifact](ctx context.Context, s *Session, id types.StageIdentity, force bool, compute func(context.Context) (T, error)) (T, string, error) {
	var zero T
	key := id.Key()

	s.mu.Lock()
	if memo, ok := s.memo[key]; ok {
		s.mu.Unlock()
		if artifact, ok := memo.(T); ok {
			return artifact, types.SourceReused, nil
		}
		return zero, "", fmt.Errorf("cached artifact for %s has unexpected type %T", key, memo)
	}
	s.mu.Unlock()

	c := s.cache
	flightKey := key
	if force {
		flightKey = "force:" + key
	}
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		if !force {
			if artifact, ok := lookup[T](ctx, c, id); ok {
				return resolution{artifact: artifact, source: types.SourceCache}, nil
			}
		}

		artifact, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.put(ctx, id, artifact); err != nil {
			return nil, err
		}
		return resolution{artifact: artifact, source: types.SourceComputed}, nil
	})
	if err != nil {
		return zero, "", err
	}

	res := v.(resolution)
	artifact, ok := res.artifact.(T)
	if !ok {
		return zero, "", fmt.Errorf("resolved artifact for %s has unexpected type %T", key, res.artifact)
	}

	s.mu.Lock()
	s.memo[key] = artifact
	s.mu.Unlock()
	return artifact, res.source, nil
}

// lookup returns a stored artifact. Missing, unreadable or corrupt entries are a miss.
func lookup[T types.Artifact](ctx context.Context, c *Cache, id types.StageIdentity) (T, bool) {
	var zero T
	key := id.Key()
	log := c.logger.With("key", key)

	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		log.Warn("artifact store check failed, recomputing", "error", err)
		return zero, false
	}
	if !exists {
		log.Debug("cache miss")
		return zero, false
	}

	data, found, err := c.store.Load(ctx, key)
	if err != nil {
		log.Warn("artifact store read failed, recomputing", "error", err)
		return zero, false
	}
	if !found {
		log.Debug("cache entry vanished before load")
		return zero, false
	}

	artifact, err := Decode[T](id, data)
	if err != nil {
		log.Warn("corrupt cache entry, recomputing", "error", err)
		return zero, false
	}
	log.Debug("cache hit")
	return artifact, true
}

func (c *Cache) put(ctx context.Context, id types.StageIdentity, artifact types.Artifact) error {
	data, err := Encode(id, artifact)
	if err != nil {
		return &types.StorageError{Op: "encode", Key: id.Key(), Cause: err}
	}
	if err := c.store.Save(ctx, id.Key(), data); err != nil {
		return &types.StorageError{Op: "save", Key: id.Key(), Cause: err}
	}
	c.logger.Debug("artifact stored", "key", id.Key(), "bytes", len(data))
	return nil
}

// Encode wraps an artifact in a versioned envelope
func Encode(id types.StageIdentity, artifact types.Artifact) ([]byte, error) {
	if artifact.StageName() != id.Stage {
		return nil, fmt.Errorf("artifact of stage %s cannot be stored under %s", artifact.StageName(), id.Key())
	}
	body, err := json.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	return json.MarshalIndent(Envelope{
		Stage:       id.Stage,
		Fingerprint: id.Fingerprint,
		Version:     EnvelopeVersion,
		StoredAt:    time.Now().UTC(),
		Artifact:    body,
	}, "", "  ")
}

// Decode validates an envelope against the embedded schemas and unwraps its artifact
func Decode[T types.Artifact](id types.StageIdentity, data []byte) (T, error) {
	var zero T
	if err := schemas.Validate(schemas.Envelope, data); err != nil {
		return zero, err
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Version != EnvelopeVersion {
		return zero, fmt.Errorf("envelope version %d, expected %d", env.Version, EnvelopeVersion)
	}
	if env.Stage != id.Stage || env.Fingerprint != id.Fingerprint {
		return zero, fmt.Errorf("envelope identity %s/%s does not match %s", env.Stage, env.Fingerprint, id.Key())
	}
	if err := schemas.Validate(id.Stage, env.Artifact); err != nil {
		return zero, err
	}

	var artifact T
	if err := json.Unmarshal(env.Artifact, &artifact); err != nil {
		return zero, fmt.Errorf("parse artifact: %w", err)
	}
	if artifact.StageName() != id.Stage {
		return zero, fmt.Errorf("artifact of stage %s stored under %s", artifact.StageName(), id.Key())
	}
	return artifact, nil
}
