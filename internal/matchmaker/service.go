package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Carte/internal/utils"
)

var (
	ErrUnknownGameType = errors.New("unknown game type")
	ErrAlreadyMatched  = errors.New("already matched")
	ErrNoIdentity      = errors.New("missing identity")
)

// Catalog tells the table size of each game type.
type Catalog interface {
	Players(gameType string) (int, bool)
}

type Service struct {
	repo      Repo
	catalog   Catalog
	playerTTL int // seconds; bounds stale queue entries and finished matches
	// OnRoomReady opens the game of a completed match. It runs before the
	// match becomes visible through Status.
	OnRoomReady func(context.Context, *Room) error
}

func NewService(repo Repo, catalog Catalog, playerTTL int) *Service {
	return &Service{repo: repo, catalog: catalog, playerTTL: playerTTL}
}

// Join queues identity for gameType and completes a match as soon as the pool
// holds enough players. It returns the room when this call completed it.
func (s *Service) Join(ctx context.Context, identity, gameType string) (*Room, bool, error) {
	if identity == "" {
		return nil, false, ErrNoIdentity
	}
	size, ok := s.catalog.Players(gameType)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownGameType, gameType)
	}

	room, err := s.repo.GetPlayerRoom(ctx, identity)
	if err != nil {
		return nil, false, err
	}
	if room != nil {
		return room, false, fmt.Errorf("%w: game %s", ErrAlreadyMatched, room.ID)
	}

	if err := s.repo.Enqueue(ctx, gameType, size, identity, s.playerTTL); err != nil {
		return nil, false, err
	}
	cnt, err := s.repo.Count(ctx, gameType, size)
	if err != nil {
		return nil, false, err
	}
	if int(cnt) < size {
		return nil, true, nil
	}
	ids, err := s.repo.PopOldest(ctx, gameType, size, size)
	if err != nil {
		return nil, false, err
	}
	if len(ids) < size {
		// lost a race with another join; put the survivors back
		for _, id := range ids {
			if err := s.repo.Enqueue(ctx, gameType, size, id, s.playerTTL); err != nil {
				return nil, false, err
			}
		}
		return nil, true, nil
	}

	room = &Room{
		ID:        uuid.NewString(),
		GameType:  gameType,
		TableSize: size,
		Players:   ids,
		CreatedAt: time.Now(),
	}
	if s.OnRoomReady != nil {
		if err := s.OnRoomReady(ctx, room); err != nil {
			return nil, false, fmt.Errorf("open match %s: %w", room.ID, err)
		}
	}
	if err := s.repo.SaveRoom(ctx, room, s.playerTTL); err != nil {
		utils.Log.Warn("save match failed", "match", room.ID, "err", err)
	}
	utils.Log.Info("match made", "game", gameType, "match", room.ID, "players", len(ids))

	queued := true
	for _, id := range ids {
		if id == identity {
			queued = false
		}
	}
	if queued {
		// the caller joined while a full pool was being popped by someone else
		return nil, true, nil
	}
	return room, false, nil
}

// Cancel leaves the queue and forgets the last match.
func (s *Service) Cancel(ctx context.Context, identity string) error {
	return s.repo.Remove(ctx, identity)
}

// Status returns the match identity was placed in, or nil while queued.
func (s *Service) Status(ctx context.Context, identity string) (*Room, error) {
	return s.repo.GetPlayerRoom(ctx, identity)
}
