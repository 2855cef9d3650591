package cards

// Family identifies a deck composition.
type Family string

const (
	// French is the 52 card deck plus a red and a black joker.
	French Family = "francesi"
	// Piacentine is the 40 card Italian deck.
	Piacentine Family = "piacentine"
)

var frenchSequence = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

var italianSequence = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Fante, Cavallo, Re}

// Suits returns the suits of f in deck order.
func (f Family) Suits() []Suit {
	switch f {
	case French:
		return []Suit{Hearts, Diamonds, Clubs, Spades}
	case Piacentine:
		return []Suit{Bastoni, Coppe, Denari, Spade}
	}
	return nil
}

// Sequence returns the canonical rank order of f, jokers excluded.
func (f Family) Sequence() []Rank {
	switch f {
	case French:
		return append([]Rank(nil), frenchSequence...)
	case Piacentine:
		return append([]Rank(nil), italianSequence...)
	}
	return nil
}

// Jokers returns the jokers a full deck of f contains.
func (f Family) Jokers() []Card {
	if f == French {
		return []Card{{Suit: Hearts, Rank: RankJoker}, {Suit: Spades, Rank: RankJoker}}
	}
	return nil
}

// Size is the number of cards in a full deck of f.
func (f Family) Size() int {
	return len(f.Suits())*len(f.Sequence()) + len(f.Jokers())
}

// NewDeck returns the full deck of f in a fixed order: suit by suit following
// the canonical sequence, jokers last.
func NewDeck(f Family) []Card {
	deck := make([]Card, 0, f.Size())
	for _, s := range f.Suits() {
		for _, r := range f.Sequence() {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return append(deck, f.Jokers()...)
}
