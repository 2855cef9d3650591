package engine

import (
	"Carte/internal/websocket"
)

// state builds the resync sequence for conn: everything the viewer is allowed
// to know, in a fixed order. Other seats' cards are always face down.
func (s *Session) state(conn Conn) []websocket.OutgoingMessage {
	var out []websocket.OutgoingMessage
	add := func(event string, args ...any) {
		out = append(out, websocket.NewMessage(event, args...))
	}

	viewer := s.playerFor(conn)
	add(MsgPlayers, s.names()...)
	if s.status == StatusWaiting {
		return out
	}
	if viewer != nil {
		add(MsgPlayerID, viewer.Seat)
	}

	add(MsgAnimations, "off")
	add(MsgBegin)

	for _, p := range s.players {
		for _, c := range p.Hand {
			if p == viewer {
				add(MsgDrawCard, p.Seat, c)
			} else {
				add(MsgDrawCard, p.Seat, c.Back())
			}
		}
	}
	for _, c := range s.table.Cards {
		add(MsgDrawToTable, c)
	}
	add(MsgInitDeck, s.deckArgs()...)
	add(MsgTurnStatus, string(s.phase))

	if s.status == StatusEnded {
		if args := s.winnerCardsArgs(); args != nil {
			add(MsgShowWinnerCards, args...)
		}
	} else if s.isCurrent(viewer) {
		out = append(out, s.game.Markers(s, viewer)...)
		add(MsgTurn)
	}

	add(MsgAnimations, "on")
	return out
}

// sendState sends the resync to conn only, one message per directive.
func (s *Session) sendState(conn Conn) {
	for _, msg := range s.state(conn) {
		s.hub.SendToClient(conn.ID, msg)
	}
}
