package engine

import (
	"slices"
	"time"

	"Carte/internal/game/cards"
	"Carte/internal/game/table"
	"Carte/internal/utils"
	"Carte/internal/websocket"
)

// The methods below are for rule sets. They are only valid from inside a
// HandlerFunc or Game.Deal, i.e. on the session goroutine.

func (s *Session) Info() Info {
	return s.info
}

func (s *Session) Status() Status {
	return s.status
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) SetPhase(p Phase) {
	s.phase = p
}

// Players returns the seats in order. The slice must not be modified.
func (s *Session) Players() []*Player {
	return s.players
}

func (s *Session) CurrentPlayer() *Player {
	if s.current < 0 || s.current >= len(s.players) {
		return nil
	}
	return s.players[s.current]
}

func (s *Session) Table() *table.Table {
	return s.table
}

func (s *Session) DeckLen() int {
	return len(s.deck)
}

// Broadcast sends a directive to every attached connection.
func (s *Session) Broadcast(event string, args ...any) {
	s.hub.BroadcastToClients(s.viewerIDs(nil), websocket.NewMessage(event, args...))
}

// Send sends a directive to the connections bound to p only.
func (s *Session) Send(p *Player, event string, args ...any) {
	if p == nil {
		return
	}
	s.hub.BroadcastToClients(p.Conns(), websocket.NewMessage(event, args...))
}

// SendOthers sends a directive to every attached connection not bound to p.
func (s *Session) SendOthers(p *Player, event string, args ...any) {
	s.sendOthers(p.Conns(), event, args...)
}

func (s *Session) sendOthers(exclude []string, event string, args ...any) {
	s.hub.BroadcastToClients(s.viewerIDs(exclude), websocket.NewMessage(event, args...))
}

func (s *Session) deckArgs() []any {
	if len(s.deck) == 0 {
		return []any{0}
	}
	return []any{len(s.deck), s.deck[len(s.deck)-1].Back()}
}

// InitDeck announces the deck size and its top back to everyone.
func (s *Session) InitDeck() {
	s.Broadcast(MsgInitDeck, s.deckArgs()...)
}

func (s *Session) pop() (cards.Card, bool) {
	if len(s.deck) == 0 {
		return cards.Card{}, false
	}
	c := s.deck[len(s.deck)-1]
	s.deck = s.deck[:len(s.deck)-1]
	return c, true
}

// DrawCard moves the top of the deck into p's hand. p's own connections see
// the card, everybody else sees its back.
func (s *Session) DrawCard(p *Player) (cards.Card, bool) {
	c, ok := s.pop()
	if !ok {
		return cards.Card{}, false
	}
	p.Hand = append(p.Hand, c)
	s.Send(p, MsgDrawCard, p.Seat, c)
	s.SendOthers(p, MsgDrawCard, p.Seat, c.Back())
	return c, true
}

// DrawToTable turns the top of the deck face up on the table.
func (s *Session) DrawToTable() (cards.Card, bool) {
	c, ok := s.pop()
	if !ok {
		return cards.Card{}, false
	}
	s.table.Push(c)
	args := []any{c}
	if len(s.deck) > 0 {
		args = append(args, s.deck[len(s.deck)-1].Back())
	}
	s.Broadcast(MsgDrawToTable, args...)
	return c, true
}

// DealRoundRobin gives rounds cards to every seat, one at a time, starting
// from the current player.
func (s *Session) DealRoundRobin(rounds int) {
	n := len(s.players)
	for r := 0; r < rounds; r++ {
		for i := 0; i < n; i++ {
			if _, ok := s.DrawCard(s.players[(s.current+i)%n]); !ok {
				return
			}
		}
	}
}

// NextPlayer passes the turn to the next seat and returns it.
func (s *Session) NextPlayer() *Player {
	s.current = (s.current + 1) % len(s.players)
	return s.CurrentPlayer()
}

// Reshuffle rebuilds the deck once it runs out. Only the most recent table
// card stays in play; everything else on the table and in the discard pile
// goes back, reshuffled together with every card nobody holds.
func (s *Session) Reshuffle() {
	released := s.table.Retain(1)
	excluded := cards.NewSet(s.table.Cards)
	for _, p := range s.players {
		excluded.Add(p.Hand...)
	}
	s.deck = s.dealer.NewDeckWithout(s.info.Family, excluded)
	utils.Log.Debug("deck reshuffled", "game", s.key(), "released", len(released), "deck", len(s.deck))
	s.Broadcast(MsgInitDeck, append(s.deckArgs(), true)...)
}

func (s *Session) winnerCardsArgs() []any {
	if s.winner < 0 || s.winner >= len(s.players) {
		return nil
	}
	w := s.players[s.winner]
	args := []any{w.Seat}
	for _, c := range s.game.RevealOrder(w.Hand) {
		args = append(args, c)
	}
	return args
}

// ShowWinnerCards marks p as the winner and reveals its hand to everyone in
// canonical order.
func (s *Session) ShowWinnerCards(p *Player) {
	s.winner = p.Seat
	s.Broadcast(MsgShowWinnerCards, s.winnerCardsArgs()...)
}

// End closes the game with winner as the only scoring seat. ENDED is terminal.
func (s *Session) End(winner *Player) {
	s.status = StatusEnded
	s.winner = winner.Seat

	scores := make([]int, len(s.players))
	names := make([]string, len(s.players))
	args := make([]any, len(s.players))
	for i, p := range s.players {
		if p == winner {
			scores[i] = 1
		}
		names[i] = p.Name
		args[i] = scores[i]
	}
	s.Broadcast(MsgResults, args...)
	utils.Log.Info("game ended", "game", s.key(), "winner", winner.Name, "seat", winner.Seat)

	if s.onResult != nil {
		s.onResult(Result{
			GameType: s.Type,
			GameID:   s.ID,
			Winner:   winner.Seat,
			Players:  names,
			Scores:   slices.Clone(scores),
			EndedAt:  time.Now(),
		})
	}
}
