package matchmaker

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// memRepo keeps everything in process. Pool entries expire like the Redis
// ones; matches are kept until cancelled.
type memRepo struct {
	mu      sync.Mutex
	now     func() time.Time
	pools   map[string]map[string]time.Time // pool key -> identity -> deadline (zero: none)
	players map[string]string               // identity -> pool key
	rooms   map[string]*Room                // identity -> room
}

func NewMemoryRepo() Repo {
	return &memRepo{
		now:     time.Now,
		pools:   make(map[string]map[string]time.Time),
		players: make(map[string]string),
		rooms:   make(map[string]*Room),
	}
}

func memKey(gameType string, tableSize int) string {
	return fmt.Sprintf("mm:pool:%s:%d", gameType, tableSize)
}

func (m *memRepo) Enqueue(ctx context.Context, gameType string, tableSize int, identity string, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(gameType, tableSize)
	if _, ok := m.pools[key]; !ok {
		m.pools[key] = make(map[string]time.Time)
	}
	var due time.Time
	if ttlSeconds > 0 {
		due = m.now().Add(time.Duration(ttlSeconds) * time.Second)
	}
	m.pools[key][identity] = due
	m.players[identity] = key
	return nil
}

// live drops the expired entries of a pool and returns what is left.
// Must be called with m.mu held.
func (m *memRepo) live(key string) map[string]time.Time {
	pool := m.pools[key]
	now := m.now()
	for id, due := range pool {
		if !due.IsZero() && due.Before(now) {
			delete(pool, id)
			delete(m.players, id)
		}
	}
	if len(pool) == 0 {
		delete(m.pools, key)
		return nil
	}
	return pool
}

func (m *memRepo) PopOldest(ctx context.Context, gameType string, tableSize int, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(gameType, tableSize)
	pool := m.live(key)
	if len(pool) < n {
		return []string{}, nil
	}

	ids := make([]string, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		da, db := pool[a], pool[b]
		switch {
		case da.Equal(db):
			return strings.Compare(a, b)
		case da.IsZero():
			return 1
		case db.IsZero():
			return -1
		}
		return da.Compare(db)
	})

	chosen := ids[:n]
	for _, id := range chosen {
		delete(pool, id)
		delete(m.players, id)
	}
	if len(pool) == 0 {
		delete(m.pools, key)
	}
	return chosen, nil
}

func (m *memRepo) Remove(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, identity)
	key, ok := m.players[identity]
	if !ok {
		return nil
	}
	if set, ok := m.pools[key]; ok {
		delete(set, identity)
		if len(set) == 0 {
			delete(m.pools, key)
		}
	}
	delete(m.players, identity)
	return nil
}

func (m *memRepo) Count(ctx context.Context, gameType string, tableSize int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.live(memKey(gameType, tableSize)))), nil
}

func (m *memRepo) SaveRoom(ctx context.Context, room *Room, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range room.Players {
		m.rooms[id] = room
	}
	return nil
}

func (m *memRepo) GetPlayerRoom(ctx context.Context, identity string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[identity], nil
}
