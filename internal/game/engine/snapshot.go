package engine

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"Carte/internal/game/cards"
	"Carte/internal/utils"
	"Carte/internal/websocket"
)

type SeatSnapshot struct {
	Token string       `json:"token"`
	Name  string       `json:"name"`
	Hand  []cards.Card `json:"hand"`
}

// Snapshot is the persisted form of a session. It never holds connections.
type Snapshot struct {
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	Version  int             `json:"version"`
	Players  []SeatSnapshot  `json:"players"`
	Deck     []cards.Card    `json:"deck"`
	Table    []cards.Card    `json:"table"`
	Discard  []cards.Card    `json:"discard"`
	Current  int             `json:"current"`
	Starting int             `json:"starting"`
	Status   Status          `json:"status"`
	Phase    Phase           `json:"phase"`
	Winner   int             `json:"winner"`
	Game     json.RawMessage `json:"game,omitempty"`
	SavedAt  time.Time       `json:"saved_at"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if doErr := s.do(func() { snap, err = s.snapshot() }); doErr != nil {
		return Snapshot{}, doErr
	}
	return snap, err
}

func (s *Session) snapshot() (Snapshot, error) {
	state, err := s.game.MarshalState()
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal %s state: %w", s.Type, err)
	}
	snap := Snapshot{
		Type:     s.Type,
		ID:       s.ID,
		Version:  s.info.Version,
		Deck:     slices.Clone(s.deck),
		Table:    slices.Clone(s.table.Cards),
		Discard:  slices.Clone(s.table.Discard),
		Current:  s.current,
		Starting: s.starting,
		Status:   s.status,
		Phase:    s.phase,
		Winner:   s.winner,
		Game:     state,
		SavedAt:  time.Now().UTC(),
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, SeatSnapshot{Token: p.Token, Name: p.Name, Hand: slices.Clone(p.Hand)})
	}
	return snap, nil
}

// Restore rebuilds a session from snap with no connections attached. A
// snapshot written by another version of the game is refused.
func Restore(snap Snapshot, game Game, hub websocket.HubInterface, opts ...Option) (*Session, error) {
	info := game.Info()
	if snap.Type != info.Name || snap.Version != info.Version {
		return nil, fmt.Errorf("%w: %s v%d, want %s v%d", ErrStaleSnapshot, snap.Type, snap.Version, info.Name, info.Version)
	}
	if len(snap.Players) > info.Players {
		return nil, fmt.Errorf("snapshot %s/%s has %d players, want at most %d", snap.Type, snap.ID, len(snap.Players), info.Players)
	}
	if len(snap.Game) > 0 {
		if err := game.UnmarshalState(snap.Game); err != nil {
			return nil, fmt.Errorf("unmarshal %s state: %w", snap.Type, err)
		}
	}

	s := newSession(snap.ID, game, hub, opts)
	for seat, sp := range snap.Players {
		s.players = append(s.players, &Player{Token: sp.Token, Name: sp.Name, Seat: seat, Hand: slices.Clone(sp.Hand)})
	}
	s.deck = slices.Clone(snap.Deck)
	s.table.Cards = slices.Clone(snap.Table)
	s.table.Discard = slices.Clone(snap.Discard)
	s.current = snap.Current
	s.starting = snap.Starting
	s.status = snap.Status
	s.phase = snap.Phase
	s.winner = snap.Winner
	if s.status == StatusAny {
		s.status = StatusWaiting
	}

	if err := s.checkCards(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.key(), err)
	}
	go s.loop()
	utils.Log.Info("session restored", "game", s.key(), "status", s.status)
	return s, nil
}
