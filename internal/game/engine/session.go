package engine

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"Carte/internal/game/cards"
	"Carte/internal/game/dealer"
	"Carte/internal/game/table"
	"Carte/internal/utils"
	"Carte/internal/websocket"
)

// Result is reported once, when a session ends.
type Result struct {
	GameType string
	GameID   string
	Winner   int
	Players  []string
	Scores   []int
	EndedAt  time.Time
}

// Summary is the public, connection-free description of a session.
type Summary struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Status  string   `json:"status"`
	Phase   Phase    `json:"phase"`
	Players []string `json:"players"`
	Viewers int      `json:"viewers"`
}

type Option func(*Session)

// WithDealer replaces the time-seeded dealer, mostly for deterministic tests.
func WithDealer(d *dealer.Dealer) Option {
	return func(s *Session) { s.dealer = d }
}

// WithObserver registers fn to receive a snapshot after every state change.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Session) { s.observer = fn }
}

// WithResults registers fn to receive the result when the game ends.
func WithResults(fn func(Result)) Option {
	return func(s *Session) { s.onResult = fn }
}

// Session is one running game. Every command, connection change and view runs
// on the session's own goroutine, one at a time, so handlers never need locks.
// Distinct sessions share nothing.
type Session struct {
	Type string
	ID   string

	game     Game
	info     Info
	commands map[string]Command
	hub      websocket.HubInterface
	dealer   *dealer.Dealer
	observer func(Snapshot)
	onResult func(Result)

	players  []*Player
	deck     []cards.Card
	table    *table.Table
	current  int
	starting int
	status   Status
	phase    Phase
	winner   int
	viewers  []Conn

	actions   chan func()
	quit      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, game Game, hub websocket.HubInterface, opts []Option) *Session {
	info := game.Info()
	s := &Session{
		Type:     info.Name,
		ID:       id,
		game:     game,
		info:     info,
		commands: builtinCommands(),
		hub:      hub,
		table:    table.New(info.TableSize),
		status:   StatusWaiting,
		winner:   -1,
		actions:  make(chan func()),
		quit:     make(chan struct{}),
	}
	for name, cmd := range game.Commands() {
		if _, builtin := s.commands[name]; !builtin {
			s.commands[name] = cmd
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dealer == nil {
		s.dealer = dealer.NewDealer(time.Now().UnixNano())
	}
	return s
}

// NewSession creates a waiting session and starts its goroutine.
func NewSession(id string, game Game, hub websocket.HubInterface, opts ...Option) *Session {
	s := newSession(id, game, hub, opts)
	s.starting = s.dealer.Intn(s.info.Players)
	go s.loop()
	utils.Log.Info("session created", "game", s.key())
	return s
}

func (s *Session) key() string {
	return s.Type + "/" + s.ID
}

func (s *Session) loop() {
	for {
		select {
		case fn := <-s.actions:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the session goroutine and waits for it. Once the loop has
// taken fn it always runs to completion.
func (s *Session) do(fn func()) error {
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	done := make(chan struct{})
	select {
	case s.actions <- func() { defer close(done); fn() }:
	case <-s.quit:
		return ErrClosed
	}
	<-done
	return nil
}

// Close stops the session goroutine. Pending calls return ErrClosed.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}

// Attach subscribes a connection to the session's broadcasts.
func (s *Session) Attach(conn Conn) error {
	return s.do(func() { s.attach(conn) })
}

// Detach removes a connection from the broadcast set and from its seat.
// The session itself stays alive.
func (s *Session) Detach(connID string) error {
	return s.do(func() { s.detach(connID) })
}

// Handle runs one command for conn. A rejected command leaves the session
// untouched; the caller is sent the error followed by a full resync.
func (s *Session) Handle(conn Conn, name string, args []string) error {
	var err error
	doErr := s.do(func() {
		err = s.dispatch(conn, name, args)
		if err == nil {
			return
		}
		ce := asCommandError(err, name)
		utils.Log.Debug("command rejected", "game", s.key(), "command", name, "err", ce.Message)
		errArgs := []any{ce.Message}
		if ce.Command != "" {
			errArgs = append(errArgs, ce.Command)
		}
		s.hub.SendToClient(conn.ID, websocket.NewMessage(MsgError, errArgs...))
		s.sendState(conn)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// State returns the resync sequence for conn without sending it.
func (s *Session) State(conn Conn) ([]websocket.OutgoingMessage, error) {
	var out []websocket.OutgoingMessage
	err := s.do(func() { out = s.state(conn) })
	return out, err
}

func (s *Session) Summary() (Summary, error) {
	var sum Summary
	err := s.do(func() {
		sum = Summary{
			Type:    s.Type,
			ID:      s.ID,
			Title:   s.info.Title,
			Status:  s.status.String(),
			Phase:   s.phase,
			Viewers: len(s.viewers),
		}
		for _, p := range s.players {
			sum.Players = append(sum.Players, p.Name)
		}
	})
	return sum, err
}

func (s *Session) attach(conn Conn) {
	if slices.ContainsFunc(s.viewers, func(v Conn) bool { return v.ID == conn.ID }) {
		return
	}
	s.viewers = append(s.viewers, conn)
}

func (s *Session) detach(connID string) {
	s.viewers = slices.DeleteFunc(s.viewers, func(v Conn) bool { return v.ID == connID })
	for _, p := range s.players {
		p.unbind(connID)
	}
}

func (s *Session) playerFor(conn Conn) *Player {
	if conn.Identity == "" {
		return nil
	}
	for _, p := range s.players {
		if p.Token == conn.Identity {
			return p
		}
	}
	return nil
}

func (s *Session) isCurrent(p *Player) bool {
	return p != nil && s.status != StatusWaiting && p.Seat == s.current
}

func (s *Session) names() []any {
	names := make([]any, len(s.players))
	for i, p := range s.players {
		names[i] = p.Name
	}
	return names
}

func (s *Session) viewerIDs(exclude []string) []string {
	ids := make([]string, 0, len(s.viewers))
	for _, v := range s.viewers {
		if !slices.Contains(exclude, v.ID) {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// start seats the players in random order, deals and hands the first turn out.
func (s *Session) start() {
	order := s.dealer.Perm(len(s.players))
	seated := make([]*Player, len(s.players))
	for seat, i := range order {
		seated[seat] = s.players[i]
		seated[seat].Seat = seat
		seated[seat].Hand = nil
	}
	s.players = seated

	s.table.Reset()
	s.deck = s.dealer.NewDeck(s.info.Family)
	s.current = s.starting
	s.status = StatusStarted
	s.phase = s.info.InitialPhase
	s.winner = -1

	s.Broadcast(MsgPlayers, s.names()...)
	for _, p := range s.players {
		s.Send(p, MsgPlayerID, p.Seat)
	}
	s.Broadcast(MsgBegin)

	s.game.Deal(s)

	// the opening phase goes to the player who acts on it; everyone else
	// learns it from the first play or a resync
	s.Send(s.CurrentPlayer(), MsgTurnStatus, string(s.phase))
	s.Send(s.CurrentPlayer(), MsgTurn)
	utils.Log.Info("game started", "game", s.key(), "players", len(s.players), "first", s.current)
}

// checkCards verifies the card accounting: every card of the family is in
// exactly one place.
func (s *Session) checkCards() error {
	if s.status == StatusWaiting {
		return nil
	}
	seen := cards.NewSet()
	total := 0
	count := func(where string, cs []cards.Card) error {
		for _, c := range cs {
			if seen.Has(c) {
				return fmt.Errorf("duplicate card %s in %s", c, where)
			}
			seen.Add(c)
			total++
		}
		return nil
	}
	if err := count("deck", s.deck); err != nil {
		return err
	}
	for _, p := range s.players {
		if err := count(fmt.Sprintf("hand %d", p.Seat), p.Hand); err != nil {
			return err
		}
	}
	if err := count("table", s.table.Cards); err != nil {
		return err
	}
	if err := count("discard", s.table.Discard); err != nil {
		return err
	}
	if total != s.info.Family.Size() {
		return fmt.Errorf("%d cards accounted for, want %d", total, s.info.Family.Size())
	}
	return nil
}

// assertCards panics on broken accounting after a command: that is a bug in
// a rule set, never a user error.
func (s *Session) assertCards() {
	if err := s.checkCards(); err != nil {
		panic(fmt.Sprintf("session %s: %v", s.key(), err))
	}
}

func (s *Session) notifyChange() {
	if s.observer == nil {
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		utils.Log.Error("snapshot failed", "game", s.key(), "err", err)
		return
	}
	s.observer(snap)
}
