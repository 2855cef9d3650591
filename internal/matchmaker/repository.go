package matchmaker

import "context"

// Repo stores the waiting pools and the completed matches.
type Repo interface {
	// Enqueue adds identity to the pool of gameType. The entry expires after
	// ttlSeconds unless it is popped or enqueued again first.
	Enqueue(ctx context.Context, gameType string, tableSize int, identity string, ttlSeconds int) error
	// PopOldest atomically takes the n live identities closest to expiry,
	// which are the longest waiting ones, or none when fewer are queued.
	PopOldest(ctx context.Context, gameType string, tableSize int, n int) ([]string, error)
	// Remove takes identity out of whatever pool it waits in and forgets its match.
	Remove(ctx context.Context, identity string) error
	// Count returns the number of live entries of the pool.
	Count(ctx context.Context, gameType string, tableSize int) (int64, error)

	SaveRoom(ctx context.Context, room *Room, ttlSeconds int) error
	// GetPlayerRoom returns the match identity was placed in, or nil.
	GetPlayerRoom(ctx context.Context, identity string) (*Room, error)
}
