package manager

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"Carte/internal/game/engine"
	"Carte/internal/matchmaker"
	"Carte/internal/utils"
	"Carte/internal/websocket"
)

// Factory creates a fresh rule set value for one session.
type Factory func() engine.Game

// SnapshotStore persists session snapshots between restarts.
type SnapshotStore interface {
	Save(ctx context.Context, snap engine.Snapshot) error
	Load(ctx context.Context, gameType, id string) (engine.Snapshot, error)
	Delete(ctx context.Context, gameType, id string) error
}

// ResultRecorder keeps finished games.
type ResultRecorder interface {
	Record(ctx context.Context, res engine.Result) error
}

type Option func(*GameManager)

func WithSnapshots(store SnapshotStore) Option {
	return func(m *GameManager) { m.store = store }
}

func WithRecorder(rec ResultRecorder) Option {
	return func(m *GameManager) { m.recorder = rec }
}

// WithSessionOptions passes extra options to every session the manager opens.
func WithSessionOptions(opts ...engine.Option) Option {
	return func(m *GameManager) { m.sessionOpts = append(m.sessionOpts, opts...) }
}

// storeTimeout bounds every call to the snapshot store and the recorder.
const storeTimeout = 5 * time.Second

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// GameManager is the registry of running sessions, keyed by game type and
// game id. It routes hub traffic to sessions and persists their state on a
// single background worker.
type GameManager struct {
	mu       sync.RWMutex
	catalog  map[string]Factory
	sessions map[string]*engine.Session // "type/id" -> session
	conns    map[string]*engine.Session // connection id -> session

	hub         websocket.HubInterface
	store       SnapshotStore
	recorder    ResultRecorder
	sessionOpts []engine.Option

	jobs      chan func(context.Context)
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewGameManager(hub websocket.HubInterface, opts ...Option) *GameManager {
	m := &GameManager{
		catalog:  make(map[string]Factory),
		sessions: make(map[string]*engine.Session),
		conns:    make(map[string]*engine.Session),
		hub:      hub,
		jobs:     make(chan func(context.Context), 256),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

// Register adds a rule set to the catalog under its Info().Name.
func (m *GameManager) Register(f Factory) {
	info := f().Info()
	m.mu.Lock()
	m.catalog[info.Name] = f
	m.mu.Unlock()
}

// Games lists the catalog, sorted by name.
func (m *GameManager) Games() []engine.Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Info, 0, len(m.catalog))
	for _, f := range m.catalog {
		out = append(out, f().Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Players returns the seat count of a game type.
func (m *GameManager) Players(gameType string) (int, bool) {
	m.mu.RLock()
	f, ok := m.catalog[gameType]
	m.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return f().Info().Players, true
}

func key(gameType, id string) string {
	return gameType + "/" + id
}

// Resolve makes sure the session exists, so a connection can be accepted.
func (m *GameManager) Resolve(ctx context.Context, gameType, id string) error {
	_, err := m.Open(ctx, gameType, id)
	return err
}

// Open returns the live session, restores it from its snapshot or creates
// a new one. The snapshot is loaded without holding the registry lock, so a
// slow store only delays the session being opened.
func (m *GameManager) Open(ctx context.Context, gameType, id string) (*engine.Session, error) {
	if !validID.MatchString(id) {
		return nil, fmt.Errorf("invalid game id %q", id)
	}

	m.mu.RLock()
	s, live := m.sessions[key(gameType, id)]
	f, known := m.catalog[gameType]
	m.mu.RUnlock()
	if live {
		return s, nil
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", websocket.ErrUnknownGame, gameType)
	}

	opts := append([]engine.Option{
		engine.WithObserver(m.save),
		engine.WithResults(m.record),
	}, m.sessionOpts...)

	s = m.restore(ctx, gameType, id, f, opts)
	if s == nil {
		s = engine.NewSession(id, f(), m.hub, opts...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if winner, ok := m.sessions[key(gameType, id)]; ok {
		// a concurrent Open got there first
		s.Close()
		return winner, nil
	}
	m.sessions[key(gameType, id)] = s
	return s, nil
}

func (m *GameManager) restore(ctx context.Context, gameType, id string, f Factory, opts []engine.Option) *engine.Session {
	if m.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	snap, err := m.store.Load(ctx, gameType, id)
	if errors.Is(err, engine.ErrSnapshotMissing) {
		return nil
	}
	if err != nil {
		utils.Log.Warn("snapshot load failed", "game", key(gameType, id), "err", err)
		return nil
	}
	s, err := engine.Restore(snap, f(), m.hub, opts...)
	if err != nil {
		utils.Log.Warn("snapshot discarded", "game", key(gameType, id), "err", err)
		if err := m.store.Delete(ctx, gameType, id); err != nil {
			utils.Log.Warn("snapshot delete failed", "game", key(gameType, id), "err", err)
		}
		return nil
	}
	return s
}

// Lookup returns a session without creating it.
func (m *GameManager) Lookup(gameType, id string) (*engine.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key(gameType, id)]
	return s, ok
}

// StartRoom opens the session of a quick match.
func (m *GameManager) StartRoom(ctx context.Context, r *matchmaker.Room) error {
	_, err := m.Open(ctx, r.GameType, r.ID)
	if err != nil {
		return err
	}
	utils.Log.Info("match ready", "game", key(r.GameType, r.ID), "players", len(r.Players))
	return nil
}

func (m *GameManager) connFor(c *websocket.Client) engine.Conn {
	return engine.Conn{ID: c.ID, Identity: c.Identity}
}

// OnConnect attaches a freshly upgraded client to its session.
func (m *GameManager) OnConnect(c *websocket.Client) {
	s, ok := m.Lookup(c.GameType, c.GameID)
	if !ok {
		return
	}
	m.mu.Lock()
	m.conns[c.ID] = s
	m.mu.Unlock()
	if err := s.Attach(m.connFor(c)); err != nil {
		utils.Log.Warn("attach failed", "conn", c.ID, "err", err)
	}
}

// HandleMessage routes one command to the client's session.
func (m *GameManager) HandleMessage(c *websocket.Client, msg websocket.IncomingMessage) {
	m.mu.RLock()
	s := m.conns[c.ID]
	m.mu.RUnlock()
	if s == nil {
		m.hub.SendToClient(c.ID, websocket.NewMessage(engine.MsgError, "Not in a game"))
		return
	}
	// command errors are reported to the client by the session itself
	if err := s.Handle(m.connFor(c), msg.Event, msg.Data); errors.Is(err, engine.ErrClosed) {
		m.hub.SendToClient(c.ID, websocket.NewMessage(engine.MsgError, "Game closed"))
	}
}

// OnDisconnect removes the client from its session. The session stays.
func (m *GameManager) OnDisconnect(c *websocket.Client) {
	m.mu.Lock()
	s := m.conns[c.ID]
	delete(m.conns, c.ID)
	m.mu.Unlock()
	if s != nil {
		_ = s.Detach(c.ID)
	}
}

// Summaries describes every live session.
func (m *GameManager) Summaries() []engine.Summary {
	m.mu.RLock()
	sessions := make([]*engine.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]engine.Summary, 0, len(sessions))
	for _, s := range sessions {
		if sum, err := s.Summary(); err == nil {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return key(out[i].Type, out[i].ID) < key(out[j].Type, out[j].ID)
	})
	return out
}

// save and record run on session goroutines; they only queue work.
func (m *GameManager) save(snap engine.Snapshot) {
	if m.store == nil {
		return
	}
	m.enqueue(func(ctx context.Context) {
		if err := m.store.Save(ctx, snap); err != nil {
			utils.Log.Error("snapshot save failed", "game", key(snap.Type, snap.ID), "err", err)
		}
	})
}

func (m *GameManager) record(res engine.Result) {
	if m.recorder == nil {
		return
	}
	m.enqueue(func(ctx context.Context) {
		if err := m.recorder.Record(ctx, res); err != nil {
			utils.Log.Error("result record failed", "game", key(res.GameType, res.GameID), "err", err)
		}
	})
}

func (m *GameManager) enqueue(job func(context.Context)) {
	select {
	case m.jobs <- job:
	case <-m.quit:
	}
}

func (m *GameManager) worker() {
	defer m.wg.Done()
	run := func(job func(context.Context)) {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		job(ctx)
	}
	for {
		select {
		case job := <-m.jobs:
			run(job)
		case <-m.quit:
			for {
				select {
				case job := <-m.jobs:
					run(job)
				default:
					return
				}
			}
		}
	}
}

// Flush blocks until every job queued so far has run.
func (m *GameManager) Flush() {
	done := make(chan struct{})
	m.enqueue(func(context.Context) { close(done) })
	select {
	case <-done:
	case <-m.quit:
	}
}

// Close stops every session and drains the persistence queue.
func (m *GameManager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		for _, s := range m.sessions {
			s.Close()
		}
		m.mu.Unlock()
		close(m.quit)
		m.wg.Wait()
	})
}
