// Package visitor maps browser visitors to their page-view state: one
// backend client, one session store and one reference list controller each.
package visitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/reflist"
	"github.com/wonlinemenu/refadmin/internal/session"
)

// Visitor is the server-side state of one browser.
type Visitor struct {
	ID         uuid.UUID
	Client     backend.Client
	Session    *session.Store
	References *reflist.Controller

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *Visitor) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

// LastSeen returns when the visitor was last looked up.
func (v *Visitor) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Visitor) teardown() {
	v.References.Unmount()
	v.Session.Close()
}

// Observer is told the number of live visitors after every change.
type Observer interface {
	VisitorsActive(n int)
}

// Options configures a Registry.
type Options struct {
	TTL         time.Duration
	InitTimeout time.Duration
	Observer    Observer
	SessionOpts []session.Option
	ListOpts    []reflist.Option
}

// Registry owns all visitors.
type Registry struct {
	factory backend.Factory
	log     *slog.Logger
	opts    Options
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	visitors map[uuid.UUID]*Visitor
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry(factory backend.Factory, logger *slog.Logger, opts Options) *Registry {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		factory:  factory,
		log:      logger.With("component", "visitor"),
		opts:     opts,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		visitors: make(map[uuid.UUID]*Visitor),
	}
}

// WithClock overrides the clock used for idle tracking.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Get returns the visitor with id and marks it seen.
func (r *Registry) Get(id uuid.UUID) (*Visitor, bool) {
	r.mu.Lock()
	v, ok := r.visitors[id]
	r.mu.Unlock()
	if ok {
		v.touch(r.now())
	}
	return v, ok
}

// GetOrCreate returns the visitor with id, creating it on first sight. A new
// visitor's session is resolved in the background. After Close it returns
// nil.
func (r *Registry) GetOrCreate(id uuid.UUID) *Visitor {
	if v, ok := r.Get(id); ok {
		return v
	}

	client := r.factory()
	v := &Visitor{
		ID:         id,
		Client:     client,
		Session:    session.New(client, r.log, r.opts.SessionOpts...),
		References: reflist.New(client.References(), r.log, r.opts.ListOpts...),
		lastSeen:   r.now(),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	if existing, ok := r.visitors[id]; ok {
		r.mu.Unlock()
		existing.touch(r.now())
		return existing
	}
	r.visitors[id] = v
	n := len(r.visitors)
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(r.ctx, r.opts.InitTimeout)
		defer cancel()
		v.Session.Initialize(ctx)
	}()

	r.log.Debug("visitor created", slog.String("visitor_id", id.String()))
	r.report(n)
	return v
}

// Sweep tears down visitors idle for longer than the TTL and returns how
// many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.opts.TTL <= 0 {
		return 0
	}

	var stale []*Visitor
	r.mu.Lock()
	for id, v := range r.visitors {
		if now.Sub(v.LastSeen()) > r.opts.TTL {
			stale = append(stale, v)
			delete(r.visitors, id)
		}
	}
	n := len(r.visitors)
	r.mu.Unlock()

	for _, v := range stale {
		v.teardown()
	}
	if len(stale) > 0 {
		r.log.Info("idle visitors swept", slog.Int("removed", len(stale)), slog.Int("active", n))
		r.report(n)
	}
	return len(stale)
}

// Len returns the number of live visitors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Close tears down every visitor and waits for pending session resolution.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	all := make([]*Visitor, 0, len(r.visitors))
	for _, v := range r.visitors {
		all = append(all, v)
	}
	clear(r.visitors)
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	for _, v := range all {
		v.teardown()
	}
	r.report(0)
}

func (r *Registry) report(n int) {
	if r.opts.Observer != nil {
		r.opts.Observer.VisitorsActive(n)
	}
}
