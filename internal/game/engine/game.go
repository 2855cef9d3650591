package engine

import (
	"encoding/json"

	"Carte/internal/game/cards"
	"Carte/internal/websocket"
)

// Status is the engine-level lifecycle of a session.
type Status int

const (
	// StatusAny is only meaningful inside a Guard.
	StatusAny Status = iota
	StatusWaiting
	StatusStarted
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusStarted:
		return "started"
	case StatusEnded:
		return "ended"
	}
	return "any"
}

// Phase is the rule set's own sub-state while the session is started.
type Phase string

// AnyPhase in a Guard accepts every phase.
const AnyPhase Phase = ""

// Info is the fixed shape of a rule set.
type Info struct {
	Name         string // url key, e.g. "royalrun"
	Title        string
	Version      int // bump to invalidate stored snapshots
	Family       cards.Family
	Players      int
	HandSize     int
	TableSize    int // visible table cards kept, 0 = unbounded
	InitialPhase Phase
}

// Game is implemented once per rule set. A new value is created for every
// session; its methods are only called from the session's goroutine.
type Game interface {
	Info() Info
	// Commands is the static command table of the rule set. Entries with the
	// names of the built-in commands are ignored.
	Commands() map[string]Command
	// Deal runs once the deck is shuffled and the session is started.
	Deal(s *Session)
	CheckWin(hand []cards.Card) bool
	// RevealOrder lays out a winning hand in canonical evaluation order.
	RevealOrder(hand []cards.Card) []cards.Card
	// Markers are the extra directives the current player receives in a
	// resync, right before its turn signal.
	Markers(s *Session, viewer *Player) []websocket.OutgoingMessage

	MarshalState() (json.RawMessage, error)
	UnmarshalState(data json.RawMessage) error
}
