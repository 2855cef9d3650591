package engine

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Carte/internal/game/cards"
	"Carte/internal/game/dealer"
	"Carte/internal/websocket"
)

var (
	alice = Conn{ID: "conn-a", Identity: "alice"}
	bob   = Conn{ID: "conn-b", Identity: "bob"}
	carol = Conn{ID: "conn-c", Identity: "carol"}
)

func newTestSession(t *testing.T, g *testGame, opts ...Option) (*Session, *mockHub) {
	t.Helper()
	hub := newMockHub()
	opts = append([]Option{WithDealer(dealer.NewDealer(7))}, opts...)
	s := NewSession("room", g, hub, opts...)
	t.Cleanup(s.Close)
	return s, hub
}

func startedSession(t *testing.T, opts ...Option) (*Session, *mockHub, *testGame) {
	t.Helper()
	g := &testGame{}
	s, hub := newTestSession(t, g, opts...)
	require.NoError(t, s.Handle(alice, CmdJoin, []string{"Alice"}))
	require.NoError(t, s.Handle(bob, CmdJoin, []string{"Bob"}))
	return s, hub, g
}

func mustSnapshot(t *testing.T, s *Session) Snapshot {
	t.Helper()
	snap, err := s.Snapshot()
	require.NoError(t, err)
	snap.SavedAt = time.Time{}
	return snap
}

// byTurn returns the connection of the current player first.
func byTurn(t *testing.T, s *Session) (current, other Conn) {
	t.Helper()
	snap := mustSnapshot(t, s)
	if snap.Players[snap.Current].Token == alice.Identity {
		return alice, bob
	}
	return bob, alice
}

func seatOf(t *testing.T, s *Session, conn Conn) int {
	t.Helper()
	for i, p := range mustSnapshot(t, s).Players {
		if p.Token == conn.Identity {
			return i
		}
	}
	t.Fatalf("%s holds no seat", conn.Identity)
	return -1
}

func handOf(t *testing.T, s *Session, conn Conn) []cards.Card {
	return mustSnapshot(t, s).Players[seatOf(t, s, conn)].Hand
}

func TestJoinStartsGameWhenFull(t *testing.T) {
	g := &testGame{}
	s, hub := newTestSession(t, g)

	require.NoError(t, s.Handle(alice, CmdJoin, []string{"Alice"}))
	snap := mustSnapshot(t, s)
	assert.Equal(t, StatusWaiting, snap.Status)
	assert.Equal(t, []string{MsgPlayers}, hub.events(alice.ID))

	require.NoError(t, s.Handle(bob, CmdJoin, []string{"Bob"}))
	snap = mustSnapshot(t, s)
	assert.Equal(t, StatusStarted, snap.Status)
	assert.Equal(t, testDraw, snap.Phase)
	require.Len(t, snap.Players, 2)
	for _, p := range snap.Players {
		assert.Len(t, p.Hand, 3)
	}
	assert.Len(t, snap.Table, 1)
	assert.Len(t, snap.Deck, cards.Piacentine.Size()-7)

	current, other := byTurn(t, s)
	events := hub.events(current.ID)
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, []string{MsgTurnStatus, MsgTurn}, events[len(events)-2:])
	assert.Equal(t, []any{string(testDraw)}, hub.messages(current.ID)[len(events)-2].Data)
	assert.NotContains(t, hub.events(other.ID), MsgTurn)
	assert.NotContains(t, hub.events(other.ID), MsgTurnStatus, "the opening phase is sent to the current player only")
	assert.Contains(t, hub.events(other.ID), MsgBegin)
}

func TestStartSendsEachSeatItsID(t *testing.T) {
	s, hub, _ := startedSession(t)

	for _, conn := range []Conn{alice, bob} {
		seat := seatOf(t, s, conn)
		var ids []websocket.OutgoingMessage
		for _, m := range hub.messages(conn.ID) {
			if m.Event == MsgPlayerID {
				ids = append(ids, m)
			}
		}
		require.NotEmpty(t, ids)
		assert.Equal(t, []any{seat}, ids[len(ids)-1].Data)
	}
}

func TestFullSessionTurnsJoinerIntoSpectator(t *testing.T) {
	s, hub, _ := startedSession(t)

	require.NoError(t, s.Handle(carol, CmdJoin, []string{"Carol"}))
	snap := mustSnapshot(t, s)
	assert.Len(t, snap.Players, 2)

	events := hub.events(carol.ID)
	assert.NotContains(t, events, MsgPlayerID)
	assert.NotContains(t, events, MsgTurn)
	assert.Contains(t, events, MsgBegin)

	err := s.Handle(carol, CmdName, []string{"Caz"})
	assert.ErrorIs(t, err, ErrIllegalArgument)
}

func TestGuardsAreCheckedInOrder(t *testing.T) {
	g := &testGame{}
	s, _ := newTestSession(t, g)
	require.NoError(t, s.Handle(alice, CmdJoin, []string{"Alice"}))
	assert.ErrorIs(t, s.Handle(alice, "draw", nil), ErrNotYourTurn)

	require.NoError(t, s.Handle(bob, CmdJoin, []string{"Bob"}))
	current, other := byTurn(t, s)

	assert.ErrorIs(t, s.Handle(other, "draw", nil), ErrNotYourTurn)
	assert.ErrorIs(t, s.Handle(current, "play", []string{"denari:1"}), ErrInvalidPhase)
	assert.ErrorIs(t, s.Handle(current, "draw", []string{"extra"}), ErrIllegalArgument)
	assert.ErrorIs(t, s.Handle(current, "fly", nil), ErrUnknownCommand)

	var ce *CommandError
	require.True(t, errors.As(s.Handle(other, "draw", nil), &ce))
	assert.Equal(t, "It's not your turn", ce.Message)
	assert.Equal(t, "draw", ce.Command)
}

func TestRejectedCommandLeavesStateUnchanged(t *testing.T) {
	s, _, _ := startedSession(t)
	current, other := byTurn(t, s)
	require.NoError(t, s.Handle(current, "draw", nil))

	before := mustSnapshot(t, s)
	onTable := before.Table[0]

	assert.ErrorIs(t, s.Handle(current, "play", []string{onTable.String()}), ErrIllegalArgument)
	assert.ErrorIs(t, s.Handle(current, "play", []string{"nonsense"}), ErrIllegalArgument)
	assert.ErrorIs(t, s.Handle(other, "play", []string{onTable.String()}), ErrNotYourTurn)
	assert.ErrorIs(t, s.Handle(current, "draw", nil), ErrInvalidPhase)

	assert.Equal(t, before, mustSnapshot(t, s))
}

func TestErrorIsFollowedByResync(t *testing.T) {
	s, hub, _ := startedSession(t)
	_, other := byTurn(t, s)
	hub.reset()

	require.Error(t, s.Handle(other, "draw", nil))

	msgs := hub.messages(other.ID)
	require.NotEmpty(t, msgs)
	assert.Equal(t, websocket.NewMessage(MsgError, "It's not your turn", "draw"), msgs[0])

	state, err := s.State(other)
	require.NoError(t, err)
	assert.Equal(t, state, msgs[1:])
}

func TestResyncHidesOtherHands(t *testing.T) {
	s, _, _ := startedSession(t)
	seat := seatOf(t, s, alice)

	first, err := s.State(alice)
	require.NoError(t, err)
	second, err := s.State(alice)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	own := 0
	for _, m := range first {
		if m.Event != MsgDrawCard {
			continue
		}
		c := m.Data[1].(cards.Card)
		if m.Data[0] == seat {
			own++
			assert.False(t, c.IsBack())
		} else {
			assert.True(t, c.IsBack(), "other seat's card leaked: %v", c)
		}
	}
	assert.Equal(t, 3, own)

	assert.Equal(t, MsgPlayers, first[0].Event)
	assert.Equal(t, websocket.NewMessage(MsgPlayerID, seat), first[1])
	assert.Equal(t, websocket.NewMessage(MsgAnimations, "off"), first[2])
	assert.Equal(t, websocket.NewMessage(MsgAnimations, "on"), first[len(first)-1])
}

func TestResyncOrder(t *testing.T) {
	s, _, g := startedSession(t)
	current, _ := byTurn(t, s)
	marker := cards.Card{Suit: cards.Coppe, Rank: cards.Re}
	g.marker = &marker

	state, err := s.State(current)
	require.NoError(t, err)

	var events []string
	for _, m := range state {
		if len(events) == 0 || events[len(events)-1] != m.Event {
			events = append(events, m.Event)
		}
	}
	assert.Equal(t, []string{
		MsgPlayers, MsgPlayerID, MsgAnimations, MsgBegin,
		MsgDrawCard, MsgDrawToTable, MsgInitDeck, MsgTurnStatus,
		MsgDiscardPrevention, MsgTurn, MsgAnimations,
	}, events)
}

func TestTurnPassesToNextSeat(t *testing.T) {
	s, hub, _ := startedSession(t)
	current, other := byTurn(t, s)
	start := mustSnapshot(t, s).Current

	require.NoError(t, s.Handle(current, "draw", nil))
	assert.Equal(t, testPlay, mustSnapshot(t, s).Phase)

	hand := handOf(t, s, current)
	require.NoError(t, s.Handle(current, "play", []string{hand[0].String()}))

	snap := mustSnapshot(t, s)
	assert.Equal(t, (start+1)%2, snap.Current)
	assert.Equal(t, testDraw, snap.Phase)
	assert.Len(t, handOf(t, s, current), 3)
	assert.Equal(t, MsgTurn, hub.events(other.ID)[len(hub.events(other.ID))-1])

	next, _ := byTurn(t, s)
	assert.Equal(t, other, next)
}

func reshuffleSnapshot() Snapshot {
	deck := cards.NewDeck(cards.Piacentine)
	return Snapshot{
		Type:    "test",
		ID:      "room",
		Version: 3,
		Players: []SeatSnapshot{
			{Token: alice.Identity, Name: "Alice", Hand: slices.Clone(deck[0:3])},
			{Token: bob.Identity, Name: "Bob", Hand: slices.Clone(deck[3:6])},
		},
		Table:   slices.Clone(deck[6:8]),
		Discard: slices.Clone(deck[8:]),
		Current: 0,
		Status:  StatusStarted,
		Phase:   testPlay,
		Winner:  -1,
		Game:    []byte(`{"winning":false}`),
	}
}

func TestReshuffleExcludesHeldAndVisibleCards(t *testing.T) {
	hub := newMockHub()
	s, err := Restore(reshuffleSnapshot(), &testGame{}, hub, WithDealer(dealer.NewDealer(3)))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Handle(alice, CmdJoin, []string{"Alice"}))
	played := cards.NewDeck(cards.Piacentine)[0]
	require.NoError(t, s.Handle(alice, "play", []string{played.String()}))

	snap := mustSnapshot(t, s)
	assert.Equal(t, []cards.Card{played}, snap.Table)
	assert.Empty(t, snap.Discard)

	held := 0
	excluded := cards.NewSet(snap.Table)
	for _, p := range snap.Players {
		held += len(p.Hand)
		excluded.Add(p.Hand...)
	}
	assert.Len(t, snap.Deck, cards.Piacentine.Size()-len(snap.Table)-held)
	for _, c := range snap.Deck {
		assert.False(t, excluded.Has(c), "%s is held or visible", c)
	}

	var reshuffled bool
	for _, m := range hub.messages(alice.ID) {
		if m.Event == MsgInitDeck && len(m.Data) == 3 {
			reshuffled = m.Data[2] == true
			assert.Equal(t, len(snap.Deck), m.Data[0])
		}
	}
	assert.True(t, reshuffled)
}

func TestRestoreRejectsStaleVersion(t *testing.T) {
	snap := reshuffleSnapshot()
	snap.Version = 2
	_, err := Restore(snap, &testGame{}, newMockHub())
	assert.ErrorIs(t, err, ErrStaleSnapshot)
}

func TestRestoreRejectsBrokenAccounting(t *testing.T) {
	snap := reshuffleSnapshot()
	snap.Discard = snap.Discard[1:]
	_, err := Restore(snap, &testGame{}, newMockHub())
	assert.Error(t, err)
}

func TestRestoreKeepsGameState(t *testing.T) {
	snap := reshuffleSnapshot()
	snap.Game = []byte(`{"winning":true}`)
	g := &testGame{}
	s, err := Restore(snap, g, newMockHub())
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, g.winning)
}

func TestObserverSeesMutationsOnly(t *testing.T) {
	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	observe := func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		snaps = append(snaps, snap)
	}
	s, _, _ := startedSession(t, WithObserver(observe))
	assert.Len(t, snaps, 2)

	require.NoError(t, s.Handle(alice, CmdCurrentState, nil))
	assert.Len(t, snaps, 2)

	_, other := byTurn(t, s)
	require.Error(t, s.Handle(other, "draw", nil))
	assert.Len(t, snaps, 2)

	assert.Equal(t, StatusStarted, snaps[1].Status)
	assert.Equal(t, "test", snaps[1].Type)
}

func TestEndIsTerminal(t *testing.T) {
	var results []Result
	s, hub, g := startedSession(t, WithResults(func(r Result) { results = append(results, r) }))
	current, other := byTurn(t, s)
	seat := seatOf(t, s, current)

	require.NoError(t, s.Handle(current, "draw", nil))
	g.winning = true
	hand := handOf(t, s, current)
	require.NoError(t, s.Handle(current, "play", []string{hand[0].String()}))

	snap := mustSnapshot(t, s)
	assert.Equal(t, StatusEnded, snap.Status)
	assert.Equal(t, seat, snap.Winner)

	require.Len(t, results, 1)
	assert.Equal(t, seat, results[0].Winner)
	assert.Equal(t, 1, results[0].Scores[seat])
	assert.Equal(t, 0, results[0].Scores[1-seat])

	msgs := hub.messages(other.ID)
	last := msgs[len(msgs)-1]
	assert.Equal(t, MsgResults, last.Event)
	assert.Equal(t, 1, last.Data[seat])

	assert.ErrorIs(t, s.Handle(current, "draw", nil), ErrInvalidPhase)

	state, err := s.State(other)
	require.NoError(t, err)
	var events []string
	for _, m := range state {
		events = append(events, m.Event)
	}
	assert.Contains(t, events, MsgShowWinnerCards)
	assert.NotContains(t, events, MsgTurn)
}

func TestDetachKeepsSeat(t *testing.T) {
	s, hub, _ := startedSession(t)
	seat := seatOf(t, s, alice)

	require.NoError(t, s.Detach(alice.ID))
	sum, err := s.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Viewers)
	assert.Equal(t, "started", sum.Status)

	again := Conn{ID: "conn-a2", Identity: alice.Identity}
	require.NoError(t, s.Handle(again, CmdJoin, []string{"Alicia"}))
	assert.Equal(t, seat, seatOf(t, s, again))
	assert.Equal(t, "Alicia", mustSnapshot(t, s).Players[seat].Name)
	assert.Contains(t, hub.events(again.ID), MsgPlayerID)
}

func TestNameIsBroadcast(t *testing.T) {
	s, hub, _ := startedSession(t)
	hub.reset()

	require.NoError(t, s.Handle(bob, CmdName, []string{"  Robert  "}))
	msgs := hub.messages(alice.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgPlayers, msgs[0].Event)
	assert.Contains(t, msgs[0].Data, "Robert")

	long := "abcdefghijklmnopqrstuvwxyz"
	assert.ErrorIs(t, s.Handle(bob, CmdName, []string{long}), ErrIllegalArgument)
}

func TestClosedSessionRefusesWork(t *testing.T) {
	s, _ := newTestSession(t, &testGame{})
	s.Close()
	assert.ErrorIs(t, s.Handle(alice, CmdJoin, []string{"Alice"}), ErrClosed)
	_, err := s.Snapshot()
	assert.ErrorIs(t, err, ErrClosed)
}
