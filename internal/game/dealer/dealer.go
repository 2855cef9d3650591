package dealer

import (
	"math/rand"

	"Carte/internal/game/cards"
)

// Dealer only shuffles and builds decks; it knows no rules.
type Dealer struct {
	rnd *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{rnd: rand.New(rand.NewSource(seed))}
}

// Shuffle returns a uniformly random permutation of deck. The input is left
// untouched so the same slice can be reshuffled later.
func (d *Dealer) Shuffle(deck []cards.Card) []cards.Card {
	out := make([]cards.Card, len(deck))
	copy(out, deck)
	d.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// NewDeck returns a freshly shuffled full deck of f.
func (d *Dealer) NewDeck(f cards.Family) []cards.Card {
	return d.Shuffle(cards.NewDeck(f))
}

// NewDeckWithout returns a freshly shuffled full deck of f minus every card in
// excluded. Used when a game reshuffles while cards are still held or visible.
func (d *Dealer) NewDeckWithout(f cards.Family, excluded cards.Set) []cards.Card {
	deck := d.NewDeck(f)
	out := deck[:0]
	for _, c := range deck {
		if !excluded.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Intn exposes the dealer's source for seat and starting player draws.
func (d *Dealer) Intn(n int) int {
	return d.rnd.Intn(n)
}

// Perm returns a random permutation of [0, n).
func (d *Dealer) Perm(n int) []int {
	return d.rnd.Perm(n)
}
