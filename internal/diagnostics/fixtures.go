// Package diagnostics backs the §6 diagnostic surface: recording one
// upstream transaction per signature as it is ingested, and replaying
// it on demand through the full classification pipeline so an operator
// can see exactly why a given signature was emitted or erased.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whaletrack/swap-classifier/internal/swapcore"
)

// ErrFixtureNotFound is returned when no fixture was ever recorded for
// a signature (e.g. it predates the fixture TTL, or was never observed
// by this process).
var ErrFixtureNotFound = errors.New("diagnostics: fixture not found")

// FixtureStore persists and retrieves raw upstream transactions keyed
// by signature, for later replay.
type FixtureStore interface {
	SaveFixture(ctx context.Context, u swapcore.UpstreamTx) error
	LoadFixture(ctx context.Context, signature string) (*swapcore.UpstreamTx, error)
}

// RedisFixtureStore stores fixtures as JSON under a short TTL — this is
// a debugging aid, not the system of record (spec's Non-goals exclude
// "retention/replay beyond one transaction's scope" as a product
// feature; this is purely an operator diagnostic window).
type RedisFixtureStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFixtureStore(client *redis.Client, ttl time.Duration) *RedisFixtureStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisFixtureStore{client: client, ttl: ttl}
}

func fixtureKey(signature string) string {
	return "diagnose:fixture:" + signature
}

func (s *RedisFixtureStore) SaveFixture(ctx context.Context, u swapcore.UpstreamTx) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fixtureKey(u.Signature), data, s.ttl).Err()
}

func (s *RedisFixtureStore) LoadFixture(ctx context.Context, signature string) (*swapcore.UpstreamTx, error) {
	data, err := s.client.Get(ctx, fixtureKey(signature)).Result()
	if err == redis.Nil {
		return nil, ErrFixtureNotFound
	}
	if err != nil {
		return nil, err
	}

	var u swapcore.UpstreamTx
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, err
	}
	return &u, nil
}
