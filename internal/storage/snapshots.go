package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"Carte/internal/game/engine"
)

// DefaultSnapshotTTL keeps an idle game around for a week.
const DefaultSnapshotTTL = 7 * 24 * time.Hour

// RedisSnapshotStore keeps one JSON snapshot per session under
// carte:game:{type}:{id}, refreshed with a TTL on every save.
type RedisSnapshotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSnapshotStore(rdb *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisSnapshotStore{rdb: rdb, ttl: ttl}
}

func snapshotKey(gameType, id string) string {
	return fmt.Sprintf("carte:game:%s:%s", gameType, id)
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, snapshotKey(snap.Type, snap.ID), data, s.ttl).Err()
}

func (s *RedisSnapshotStore) Load(ctx context.Context, gameType, id string) (engine.Snapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(gameType, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return engine.Snapshot{}, engine.ErrSnapshotMissing
	}
	if err != nil {
		return engine.Snapshot{}, err
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decode snapshot %s/%s: %w", gameType, id, err)
	}
	return snap, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, gameType, id string) error {
	return s.rdb.Del(ctx, snapshotKey(gameType, id)).Err()
}
