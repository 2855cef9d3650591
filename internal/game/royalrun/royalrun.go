// Package royalrun is a two player rummy-like game: the first player to hold
// a single suit run of distinct ranks, jokers filling the gaps, wins.
package royalrun

import (
	"encoding/json"

	"Carte/internal/game/cards"
	"Carte/internal/game/engine"
	"Carte/internal/websocket"
)

const Name = "royalrun"

const (
	PhaseDraw engine.Phase = "draw"
	PhaseHand engine.Phase = "hand"
	PhaseWin  engine.Phase = "win"
)

const (
	CmdDrawCard      = "draw_card"
	CmdDrawDiscarded = "draw_discarded"
	CmdPlay          = "play"
)

type Game struct {
	sequence []cards.Rank
	// prevented is the card taken from the table this turn. It cannot be
	// played back before the turn ends.
	prevented *cards.Card
}

// New returns a royal run game using the French canonical sequence.
func New() *Game {
	return &Game{sequence: cards.French.Sequence()}
}

// NewWithSequence overrides the canonical rank order used to lay out the
// winning hand.
func NewWithSequence(seq []cards.Rank) *Game {
	return &Game{sequence: append([]cards.Rank(nil), seq...)}
}

// Factory is the catalog entry of the game.
func Factory() engine.Game {
	return New()
}

func (g *Game) Info() engine.Info {
	return engine.Info{
		Name:         Name,
		Title:        "Royal Run",
		Version:      1,
		Family:       cards.French,
		Players:      2,
		HandSize:     13,
		TableSize:    2,
		InitialPhase: PhaseDraw,
	}
}

func (g *Game) Commands() map[string]engine.Command {
	turn := func(p engine.Phase) engine.Guard {
		return engine.Guard{CurrentPlayer: true, Status: engine.StatusStarted, Phase: p}
	}
	return map[string]engine.Command{
		CmdDrawCard:      {Guard: turn(PhaseDraw), Handler: g.drawCard},
		CmdDrawDiscarded: {Guard: turn(PhaseDraw), Handler: g.drawDiscarded},
		CmdPlay:          {Guard: turn(PhaseHand), Args: 1, Handler: g.play},
	}
}

func (g *Game) Deal(s *engine.Session) {
	g.prevented = nil
	s.InitDeck()
	s.DealRoundRobin(s.Info().HandSize)
	s.DrawToTable()
}

func (g *Game) drawCard(s *engine.Session, call *engine.Call) error {
	if s.DeckLen() == 0 {
		return engine.Illegal("The deck is empty")
	}
	s.DrawCard(call.Player)

	s.SetPhase(PhaseHand)
	s.Broadcast(engine.MsgTurnStatus, string(PhaseHand))
	s.Send(call.Player, engine.MsgTurn)
	return nil
}

func (g *Game) drawDiscarded(s *engine.Session, call *engine.Call) error {
	c, ok := s.Table().Pop()
	if !ok {
		return engine.Illegal("The table is empty")
	}
	p := call.Player
	p.Hand = append(p.Hand, c)
	g.prevented = &c

	s.Broadcast(engine.MsgDrawDiscarded, p.Seat, c)
	s.SetPhase(PhaseHand)
	s.Broadcast(engine.MsgTurnStatus, string(PhaseHand))
	s.Send(p, engine.MsgDiscardPrevention, c)
	s.Send(p, engine.MsgTurn)
	return nil
}

func (g *Game) play(s *engine.Session, call *engine.Call) error {
	c, err := cards.Parse(call.Args[0])
	if err != nil || c.IsBack() {
		return engine.Illegal("Invalid card")
	}
	if g.prevented != nil && *g.prevented == c {
		return engine.Illegal("You can't play that card")
	}
	p := call.Player
	if !p.Remove(c) {
		return engine.Illegal("You don't have that card")
	}
	s.Table().Push(c)
	g.prevented = nil

	if g.CheckWin(p.Hand) {
		s.SetPhase(PhaseWin)
		s.Broadcast(engine.MsgTurnStatus, string(PhaseWin))
		s.ShowWinnerCards(p)
		s.Broadcast(engine.MsgPlayCard, p.Seat, c)
		s.End(p)
		return nil
	}

	s.Broadcast(engine.MsgPlayCard, p.Seat, c)
	s.SetPhase(PhaseDraw)
	next := s.NextPlayer()
	if s.DeckLen() == 0 {
		s.Reshuffle()
	}
	s.Broadcast(engine.MsgTurnStatus, string(PhaseDraw))
	s.Send(next, engine.MsgTurn)
	return nil
}

// CheckWin reports whether the non-joker cards of hand share one suit and
// have pairwise distinct ranks.
func (g *Game) CheckWin(hand []cards.Card) bool {
	var suit cards.Suit
	ranks := make(map[cards.Rank]bool, len(hand))
	for _, c := range hand {
		if c.IsJoker() {
			continue
		}
		if suit == "" {
			suit = c.Suit
		} else if c.Suit != suit {
			return false
		}
		if ranks[c.Rank] {
			return false
		}
		ranks[c.Rank] = true
	}
	return true
}

// RevealOrder walks the canonical sequence: each rank is filled with the
// hand's card of that rank or, failing that, with the next unused joker.
// Ranks left without either are skipped.
func (g *Game) RevealOrder(hand []cards.Card) []cards.Card {
	var jokers []cards.Card
	byRank := make(map[cards.Rank]cards.Card, len(hand))
	for _, c := range hand {
		if c.IsJoker() {
			jokers = append(jokers, c)
			continue
		}
		if _, seen := byRank[c.Rank]; !seen {
			byRank[c.Rank] = c
		}
	}

	out := make([]cards.Card, 0, len(hand))
	for _, r := range g.sequence {
		if c, ok := byRank[r]; ok {
			out = append(out, c)
		} else if len(jokers) > 0 {
			out = append(out, jokers[0])
			jokers = jokers[1:]
		}
	}
	return out
}

// Markers tells the current player, mid turn, which card it may not play.
func (g *Game) Markers(s *engine.Session, viewer *engine.Player) []websocket.OutgoingMessage {
	if s.Phase() != PhaseHand || g.prevented == nil {
		return nil
	}
	return []websocket.OutgoingMessage{websocket.NewMessage(engine.MsgDiscardPrevention, *g.prevented)}
}

type state struct {
	Prevented *cards.Card `json:"prevented,omitempty"`
}

func (g *Game) MarshalState() (json.RawMessage, error) {
	return json.Marshal(state{Prevented: g.prevented})
}

func (g *Game) UnmarshalState(data json.RawMessage) error {
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	g.prevented = st.Prevented
	return nil
}
