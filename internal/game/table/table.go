package table

import "Carte/internal/game/cards"

// Table is the public play area: a bounded history of the most recently
// played cards. Cards pushed past the limit leave the table and are kept in
// the discard pile, out of play but still accounted for.
type Table struct {
	Limit   int
	Cards   []cards.Card
	Discard []cards.Card
}

func New(limit int) *Table {
	return &Table{Limit: limit}
}

// Push puts c on top of the table, moving the oldest visible card to the
// discard pile when the table is full.
func (t *Table) Push(c cards.Card) {
	t.Cards = append(t.Cards, c)
	if t.Limit > 0 && len(t.Cards) > t.Limit {
		t.Discard = append(t.Discard, t.Cards[0])
		t.Cards = append([]cards.Card(nil), t.Cards[1:]...)
	}
}

// Top returns the most recent card.
func (t *Table) Top() (cards.Card, bool) {
	if len(t.Cards) == 0 {
		return cards.Card{}, false
	}
	return t.Cards[len(t.Cards)-1], true
}

// Pop removes and returns the most recent card.
func (t *Table) Pop() (cards.Card, bool) {
	c, ok := t.Top()
	if ok {
		t.Cards = t.Cards[:len(t.Cards)-1]
	}
	return c, ok
}

// Retain keeps only the n most recent cards visible. Dropped cards and the
// discard pile are returned to the caller and forgotten by the table.
func (t *Table) Retain(n int) []cards.Card {
	var released []cards.Card
	if len(t.Cards) > n {
		cut := len(t.Cards) - n
		released = append(released, t.Cards[:cut]...)
		t.Cards = append([]cards.Card(nil), t.Cards[cut:]...)
	}
	released = append(released, t.Discard...)
	t.Discard = nil
	return released
}

func (t *Table) Reset() {
	t.Cards = nil
	t.Discard = nil
}
