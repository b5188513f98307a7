// Package session holds the per-page-view authentication state: whether the
// session has been resolved yet and who, if anyone, is signed in.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

// State is an immutable snapshot of the store.
type State struct {
	Loading  bool
	Identity *domain.Identity
	// Version increases on every change and lets watchers detect staleness.
	Version uint64
}

// SignedIn reports whether the state is resolved with an identity present.
func (s State) SignedIn() bool {
	return !s.Loading && s.Identity != nil
}

// Observer is notified of every session event the store applies.
type Observer interface {
	SessionEvent(event backend.Event)
}

// Store is the Session Store of one page view.
type Store struct {
	client   backend.Client
	log      *slog.Logger
	observer Observer

	mu        sync.Mutex
	state     State
	eventSeen bool
	closed    bool
	sub       backend.Subscription
	watchers  map[uint64]func(State)
	nextWatch uint64

	initOnce  sync.Once
	closeOnce sync.Once
	ready     chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithObserver attaches an observer for applied session events.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// New creates a store in the loading state. Nothing is queried until
// Initialize.
func New(client backend.Client, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		client:   client,
		log:      logger.With("component", "session"),
		state:    State{Loading: true, Version: 1},
		watchers: make(map[uint64]func(State)),
		ready:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize subscribes to session changes for the rest of the store's life,
// then queries the current session once. Loading is cleared whatever the
// query outcome. A change notification that arrives while the query is in
// flight takes precedence over the query result. Later calls are no-ops.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() { s.initialize(ctx) })
}

func (s *Store) initialize(ctx context.Context) {
	sub := s.client.OnSessionChange(s.onChange)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Unsubscribe()
		s.markReady()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	current, err := s.client.CurrentSession(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "session query failed", slog.String("error", err.Error()))
		current = nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.markReady()
		return
	}
	if !s.eventSeen {
		s.state.Identity = identityOf(current)
	}
	s.state.Loading = false
	s.state.Version++
	st, ws := s.state, s.watcherList()
	s.mu.Unlock()

	s.markReady()
	notify(ws, st)
}

func (s *Store) markReady() {
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
}

func (s *Store) onChange(event backend.Event, sess *domain.Session) {
	// The standing subscription replays the held session first; the
	// session query covers that.
	if event == backend.EventInitialSession {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.eventSeen = true
	s.state.Identity = identityOf(sess)
	s.state.Version++
	st, ws := s.state, s.watcherList()
	s.mu.Unlock()

	s.log.Debug("session event applied",
		slog.String("event", event.String()),
		slog.Bool("signed_in", st.Identity != nil))
	if s.observer != nil {
		s.observer.SessionEvent(event)
	}
	notify(ws, st)
}

// Ready is closed once the first session query has resolved.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SignIn delegates to the backend. The identity is updated by the change
// notification, not by this call.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	_, err := s.client.SignInWithPassword(ctx, email, password)
	return err
}

// SignOut delegates to the backend. The identity is cleared by the change
// notification, not by this call.
func (s *Store) SignOut(ctx context.Context) error {
	return s.client.SignOut(ctx)
}

// Watch calls fn with the new state after every change until the returned
// cancel func is called. fn runs on the goroutine that caused the change.
func (s *Store) Watch(fn func(State)) (cancel func()) {
	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Close releases the backend subscription exactly once. Events delivered
// afterwards are dropped.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		sub := s.sub
		s.sub = nil
		clear(s.watchers)
		s.mu.Unlock()

		if sub != nil {
			sub.Unsubscribe()
		}
	})
}

func (s *Store) watcherList() []func(State) {
	ws := make([]func(State), 0, len(s.watchers))
	for _, w := range s.watchers {
		ws = append(ws, w)
	}
	return ws
}

func notify(ws []func(State), st State) {
	for _, w := range ws {
		w(st)
	}
}

func identityOf(s *domain.Session) *domain.Identity {
	if s == nil {
		return nil
	}
	id := s.Identity
	return &id
}
