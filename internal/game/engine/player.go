package engine

import (
	"slices"

	"Carte/internal/game/cards"
)

// Conn is a connection as the engine sees it: an id to address messages to
// and the stable identity of whoever opened it.
type Conn struct {
	ID       string
	Identity string
}

// Player is one seat of a session.
type Player struct {
	Token string // identity bound to the seat
	Name  string
	Seat  int
	Hand  []cards.Card

	conns []string
}

// Remove takes the first copy of c out of the hand, keeping the order of
// the other cards.
func (p *Player) Remove(c cards.Card) bool {
	i := slices.Index(p.Hand, c)
	if i < 0 {
		return false
	}
	p.Hand = slices.Delete(p.Hand, i, i+1)
	return true
}

// Conns returns the ids of the connections currently bound to the seat.
func (p *Player) Conns() []string {
	return slices.Clone(p.conns)
}

func (p *Player) bind(connID string) {
	if !slices.Contains(p.conns, connID) {
		p.conns = append(p.conns, connID)
	}
}

func (p *Player) unbind(connID string) {
	p.conns = slices.DeleteFunc(p.conns, func(id string) bool { return id == connID })
}
