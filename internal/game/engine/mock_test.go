package engine

import (
	"encoding/json"
	"slices"
	"sync"

	"Carte/internal/game/cards"
	"Carte/internal/websocket"
)

// mockHub records every message per connection id.
type mockHub struct {
	mu    sync.Mutex
	inbox map[string][]websocket.OutgoingMessage
}

func newMockHub() *mockHub {
	return &mockHub{inbox: make(map[string][]websocket.OutgoingMessage)}
}

func (h *mockHub) BroadcastToClients(ids []string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		h.inbox[id] = append(h.inbox[id], msg)
	}
}

func (h *mockHub) SendToClient(id string, msg websocket.OutgoingMessage) {
	h.BroadcastToClients([]string{id}, msg)
}

func (h *mockHub) Close() {}

func (h *mockHub) messages(id string) []websocket.OutgoingMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.inbox[id])
}

func (h *mockHub) events(id string) []string {
	var out []string
	for _, m := range h.messages(id) {
		out = append(out, m.Event)
	}
	return out
}

func (h *mockHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inbox = make(map[string][]websocket.OutgoingMessage)
}

const (
	testDraw Phase = "draw"
	testPlay Phase = "play"
)

// testGame is a minimal rule set: draw one card, play one card, next seat.
// It wins when winning is set.
type testGame struct {
	winning bool
	marker  *cards.Card
}

func (g *testGame) Info() Info {
	return Info{
		Name:         "test",
		Title:        "Test",
		Version:      3,
		Family:       cards.Piacentine,
		Players:      2,
		HandSize:     3,
		TableSize:    2,
		InitialPhase: testDraw,
	}
}

func (g *testGame) Commands() map[string]Command {
	return map[string]Command{
		"draw": {
			Guard:   Guard{CurrentPlayer: true, Status: StatusStarted, Phase: testDraw},
			Handler: g.draw,
		},
		"play": {
			Guard:   Guard{CurrentPlayer: true, Status: StatusStarted, Phase: testPlay},
			Args:    1,
			Handler: g.play,
		},
		// shadowed by the built-in
		CmdName: {Handler: func(*Session, *Call) error { panic("unreachable") }},
	}
}

func (g *testGame) Deal(s *Session) {
	s.InitDeck()
	s.DealRoundRobin(s.Info().HandSize)
	s.DrawToTable()
}

func (g *testGame) draw(s *Session, call *Call) error {
	if s.DeckLen() == 0 {
		return Illegal("The deck is empty")
	}
	s.DrawCard(call.Player)
	s.SetPhase(testPlay)
	s.Broadcast(MsgTurnStatus, string(testPlay))
	s.Send(call.Player, MsgTurn)
	return nil
}

func (g *testGame) play(s *Session, call *Call) error {
	c, err := cards.Parse(call.Args[0])
	if err != nil {
		return Illegal("Invalid card")
	}
	if !call.Player.Remove(c) {
		return Illegal("You don't have that card")
	}
	s.Table().Push(c)
	if g.CheckWin(call.Player.Hand) {
		s.ShowWinnerCards(call.Player)
		s.Broadcast(MsgPlayCard, call.Player.Seat, c)
		s.End(call.Player)
		return nil
	}
	s.Broadcast(MsgPlayCard, call.Player.Seat, c)
	next := s.NextPlayer()
	s.SetPhase(testDraw)
	if s.DeckLen() == 0 {
		s.Reshuffle()
	}
	s.Broadcast(MsgTurnStatus, string(testDraw))
	s.Send(next, MsgTurn)
	return nil
}

func (g *testGame) CheckWin([]cards.Card) bool { return g.winning }

func (g *testGame) RevealOrder(hand []cards.Card) []cards.Card { return slices.Clone(hand) }

func (g *testGame) Markers(s *Session, viewer *Player) []websocket.OutgoingMessage {
	if g.marker == nil {
		return nil
	}
	return []websocket.OutgoingMessage{websocket.NewMessage(MsgDiscardPrevention, *g.marker)}
}

func (g *testGame) MarshalState() (json.RawMessage, error) {
	return json.Marshal(map[string]bool{"winning": g.winning})
}

func (g *testGame) UnmarshalState(data json.RawMessage) error {
	var st map[string]bool
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	g.winning = st["winning"]
	return nil
}
