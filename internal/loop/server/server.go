package server

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/asteroid-idle/internal/colony"
	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/loop/config"
	"github.com/tomz197/asteroid-idle/internal/mining"
	"github.com/tomz197/asteroid-idle/internal/persistence"
	"github.com/tomz197/asteroid-idle/internal/progression"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

// GameServer is the interface clients use to communicate with the game server.
// Decouples terminal and web clients from the concrete Server.
type GameServer interface {
	RegisterClient(player string) (*ClientHandle, error)
	UnregisterClient(clientID int)
	SendIntent(clientID int, intent Intent)
	GetSnapshot(clientID int) *SessionSnapshot
}

// Server runs every loaded session on one fixed-rate tick and routes client
// intents to the session they belong to.
type Server struct {
	catalog          *upgrade.Catalog
	planets          []colony.Planet
	store            persistence.Store
	defaults         progression.Defaults
	miningCfg        mining.Config
	autosaveInterval time.Duration
	idleTimeout      time.Duration
	logger           *log.Logger
	seed             func() int64

	sessMu   sync.Mutex
	sessions map[string]*Session
	closing  map[string]chan struct{}

	clients      map[int]*ClientHandle
	nextClientID int
	intentCh     chan ClientIntent
	registerCh   chan *ClientHandle
	unregisterCh chan int
	mu           sync.RWMutex
}

// Compile-time check that Server implements GameServer.
var _ GameServer = (*Server)(nil)

// ClientHandle represents a client's connection to the server.
type ClientHandle struct {
	ID       int
	Player   string
	EventsCh chan ClientEvent
	session  *Session
}

// Option configures a Server.
type Option func(*Server)

func WithCatalog(c *upgrade.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

func WithPlanets(p []colony.Planet) Option {
	return func(s *Server) { s.planets = p }
}

// WithStore sets where sessions are saved. Defaults to an in-memory store.
func WithStore(st persistence.Store) Option {
	return func(s *Server) { s.store = st }
}

func WithDefaults(d progression.Defaults) Option {
	return func(s *Server) { s.defaults = d }
}

func WithMiningConfig(c mining.Config) Option {
	return func(s *Server) { s.miningCfg = c }
}

func WithAutosaveInterval(d time.Duration) Option {
	return func(s *Server) { s.autosaveInterval = d }
}

// WithIdleTimeout sets how long a session with no clients stays loaded.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idleTimeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSeed sets the source of per-session random seeds.
func WithSeed(seed func() int64) Option {
	return func(s *Server) { s.seed = seed }
}

// NewServer creates a game server. The planet list is validated up front so
// sessions can be created without failing later.
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		store: persistence.NewMemoryStore(),
		defaults: progression.Defaults{
			Amounts: economy.Amounts{economy.Metal: config.StartingMetal},
			Rates:   economy.Amounts{economy.Metal: config.StartingMetalRate},
		},
		miningCfg: mining.Config{
			Field: mining.FieldConfig{
				Width:             config.FieldWidth,
				Height:            config.FieldHeight,
				Target:            config.FieldTarget,
				CrystallineChance: config.CrystallineChance,
			},
			FireInterval: config.BaseFireInterval,
			DropLifetime: config.DropLifetime,
		},
		autosaveInterval: config.DefaultAutosaveInterval,
		idleTimeout:      config.SessionIdleTimeout,
		logger:           log.New(io.Discard),
		seed:             func() int64 { return time.Now().UnixNano() },
		sessions:         make(map[string]*Session),
		closing:          make(map[string]chan struct{}),
		clients:          make(map[int]*ClientHandle),
		nextClientID:     1,
		intentCh:         make(chan ClientIntent, 256),
		registerCh:       make(chan *ClientHandle, 16),
		unregisterCh:     make(chan int, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = upgrade.Default()
	}
	if s.planets == nil {
		s.planets = colony.DefaultPlanets()
	}
	if _, err := colony.NewRegistry(s.planets); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the server loop. Blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) {
	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frameStart := time.Now()
		s.step(ctx, frameStart, frameStart.Sub(lastTime))
		lastTime = frameStart

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < config.ServerTickTime {
			time.Sleep(config.ServerTickTime - elapsed)
		}
	}
}

// step runs one tick: registrations, intents, session updates, idle
// eviction and snapshots.
func (s *Server) step(ctx context.Context, now time.Time, dt time.Duration) {
	s.processRegistrations()
	s.collectIntents(ctx)

	s.sessMu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	counts := make([]int, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
		counts = append(counts, sess.clients)
	}
	s.sessMu.Unlock()

	for i, sess := range live {
		sess.update(ctx, dt)
		sess.publish(counts[i], dt)
	}

	s.evictIdle(ctx, now)
}

// Shutdown notifies all connected clients and waits for them to disconnect
// (up to the given timeout). The caller should then cancel the server
// context, wait for Run to return and call Close.
func (s *Server) Shutdown(timeout time.Duration) {
	s.mu.RLock()
	for _, handle := range s.clients {
		select {
		case handle.EventsCh <- ClientEvent{Type: EventServerShutdown}:
		default:
		}
	}
	s.mu.RUnlock()

	// Wait for all clients to disconnect, or timeout
	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			s.mu.RLock()
			remaining := len(s.clients)
			s.mu.RUnlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// Close saves every loaded session and waits for sessions that are being
// unloaded. Call it after Run has returned.
func (s *Server) Close(ctx context.Context) error {
	s.sessMu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	pending := make([]chan struct{}, 0, len(s.closing))
	for _, done := range s.closing {
		pending = append(pending, done)
	}
	s.sessMu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := sess.close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	s.logger.Info("sessions saved", "count", len(sessions), "failed", len(errs))
	return errors.Join(errs...)
}

// RegisterClient attaches a new client to player's session, loading the
// session from its save slot if it is not running yet.
func (s *Server) RegisterClient(player string) (*ClientHandle, error) {
	player = NormalizePlayer(player)
	sess, err := s.attach(player)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := s.nextClientID
	s.nextClientID++
	s.mu.Unlock()

	handle := &ClientHandle{
		ID:       id,
		Player:   player,
		EventsCh: make(chan ClientEvent, 16),
		session:  sess,
	}

	s.registerCh <- handle
	return handle, nil
}

// UnregisterClient removes a client from the server.
func (s *Server) UnregisterClient(clientID int) {
	s.unregisterCh <- clientID
}

// SendIntent queues an intent for the client's session.
func (s *Server) SendIntent(clientID int, intent Intent) {
	select {
	case s.intentCh <- ClientIntent{ClientID: clientID, Intent: intent}:
	default:
		// Intent channel full, drop intent
	}
}

// GetSnapshot returns the latest snapshot of the client's session, or nil
// for an unknown client.
func (s *Server) GetSnapshot(clientID int) *SessionSnapshot {
	s.mu.RLock()
	handle, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return handle.session.Snapshot()
}

// Sessions returns the names of the loaded sessions.
func (s *Server) Sessions() []string {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	return names
}

// attach returns player's session with its client count raised, loading it
// if needed.
func (s *Server) attach(player string) (*Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	if sess, ok := s.sessions[player]; ok {
		sess.clients++
		return sess, nil
	}
	// Wait for the final save of a session that is being unloaded.
	if done, ok := s.closing[player]; ok {
		<-done
		delete(s.closing, player)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.SaveTimeout)
	defer cancel()
	sess, err := s.newSession(ctx, player)
	if err != nil {
		return nil, err
	}
	sess.clients = 1
	s.sessions[player] = sess
	s.logger.Info("session loaded", "player", player)
	return sess, nil
}

// detach lowers the client count of sess.
func (s *Server) detach(sess *Session) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	sess.clients--
	if sess.clients <= 0 {
		sess.clients = 0
		sess.idleSince = time.Now()
	}
}

// evictIdle unloads sessions that have had no clients for the idle timeout.
// Their final save runs in the background.
func (s *Server) evictIdle(ctx context.Context, now time.Time) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	for player, done := range s.closing {
		select {
		case <-done:
			delete(s.closing, player)
		default:
		}
	}

	for player, sess := range s.sessions {
		player, sess := player, sess
		if sess.clients > 0 || now.Sub(sess.idleSince) < s.idleTimeout {
			continue
		}
		delete(s.sessions, player)
		done := make(chan struct{})
		s.closing[player] = done
		go func() {
			defer close(done)
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.SaveTimeout)
			defer cancel()
			if err := sess.close(saveCtx); err != nil {
				s.logger.Error("unload save failed", "player", player, "err", err)
				return
			}
			s.logger.Info("session unloaded", "player", player)
		}()
	}
}

// processRegistrations handles pending client registrations/unregistrations.
func (s *Server) processRegistrations() {
	for {
		select {
		case handle := <-s.registerCh:
			s.mu.Lock()
			s.clients[handle.ID] = handle
			s.mu.Unlock()
		case clientID := <-s.unregisterCh:
			s.mu.Lock()
			handle, ok := s.clients[clientID]
			if ok {
				close(handle.EventsCh)
				delete(s.clients, clientID)
			}
			s.mu.Unlock()
			if ok {
				s.detach(handle.session)
			}
		default:
			return
		}
	}
}

// collectIntents applies every pending intent to its session and reports
// the outcome to the sending client.
func (s *Server) collectIntents(ctx context.Context) {
	for {
		select {
		case ci := <-s.intentCh:
			s.mu.RLock()
			handle, ok := s.clients[ci.ClientID]
			s.mu.RUnlock()
			if !ok {
				continue
			}

			err := handle.session.apply(ctx, ci.Intent)
			if err != nil {
				s.logger.Debug("intent rejected", "player", handle.Player, "intent", ci.Intent.Kind, "target", ci.Intent.Target, "err", err)
			} else {
				s.logger.Debug("intent applied", "player", handle.Player, "intent", ci.Intent.Kind, "target", ci.Intent.Target)
			}

			select {
			case handle.EventsCh <- ClientEvent{Type: EventIntentResult, Intent: ci.Intent, Err: err}:
			default:
			}
		default:
			return
		}
	}
}

// NormalizePlayer trims and shortens a player name. Empty names become
// "pilot".
func NormalizePlayer(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if r := []rune(name); len(r) > config.MaxPlayerNameLength {
		name = string(r[:config.MaxPlayerNameLength])
	}
	if name == "" {
		return "pilot"
	}
	return name
}
