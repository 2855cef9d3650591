package cards

import (
	"fmt"
	"strings"
)

// Suit is the family a card belongs to inside its deck.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"

	Bastoni Suit = "bastoni"
	Coppe   Suit = "coppe"
	Denari  Suit = "denari"
	Spade   Suit = "spade"
)

// Rank is the card number. Jokers carry RankJoker and a suit that only tells
// the two jokers apart.
type Rank string

const (
	Ace   Rank = "1"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "jack"
	Queen Rank = "queen"
	King  Rank = "king"

	// Italian court cards.
	Fante   Rank = "fante"
	Cavallo Rank = "cavallo"
	Re      Rank = "re"

	RankJoker Rank = "joker"
)

const backText = "back"

// Card is a value type: two cards are the same card when suit and rank match.
type Card struct {
	Suit Suit
	Rank Rank
}

// Back is the face-down projection of c. It carries no suit or rank.
func (c Card) Back() Card {
	return Card{}
}

// IsBack reports whether c is a face-down projection.
func (c Card) IsBack() bool {
	return c == Card{}
}

func (c Card) IsJoker() bool {
	return c.Rank == RankJoker
}

func (c Card) String() string {
	if c.IsBack() {
		return backText
	}
	return string(c.Suit) + ":" + string(c.Rank)
}

// MarshalText encodes the card the way it travels on the wire.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse decodes "suit:rank" or "back".
func Parse(s string) (Card, error) {
	if s == backText {
		return Card{}, nil
	}
	suit, rank, ok := strings.Cut(s, ":")
	if !ok || !knownSuits[Suit(suit)] || !knownRanks[Rank(rank)] {
		return Card{}, fmt.Errorf("invalid card: %s", s)
	}
	return Card{Suit: Suit(suit), Rank: Rank(rank)}, nil
}

var knownSuits = map[Suit]bool{
	Hearts: true, Diamonds: true, Clubs: true, Spades: true,
	Bastoni: true, Coppe: true, Denari: true, Spade: true,
}

var knownRanks = map[Rank]bool{
	Ace: true, Two: true, Three: true, Four: true, Five: true, Six: true, Seven: true,
	Eight: true, Nine: true, Ten: true, Jack: true, Queen: true, King: true,
	Fante: true, Cavallo: true, Re: true, RankJoker: true,
}

// Set is a multiset-free membership index, used to exclude cards from a deck.
type Set map[Card]struct{}

func NewSet(groups ...[]Card) Set {
	s := make(Set)
	for _, g := range groups {
		s.Add(g...)
	}
	return s
}

func (s Set) Add(cs ...Card) {
	for _, c := range cs {
		s[c] = struct{}{}
	}
}

func (s Set) Has(c Card) bool {
	_, ok := s[c]
	return ok
}
