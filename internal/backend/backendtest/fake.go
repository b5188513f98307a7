// Package backendtest provides an in-memory backend.Client for tests.
package backendtest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

// Op names a client operation for call counting and failure injection.
type Op string

const (
	OpCurrentSession Op = "current_session"
	OpSignIn         Op = "sign_in"
	OpSignOut        Op = "sign_out"
	OpSelect         Op = "select"
	OpInsert         Op = "insert"
	OpUpdate         Op = "update"
	OpDelete         Op = "delete"
)

// Store is the shared server side: users and reference records. Several
// Fake clients may share one Store, like browsers sharing one backend.
type Store struct {
	mu      sync.Mutex
	users   map[string]string
	records []domain.Reference
	nextID  int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{users: make(map[string]string)}
}

// AddUser registers credentials that SignInWithPassword accepts.
func (s *Store) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(email)] = password
}

// Seed inserts records directly, bypassing auth. IDs are assigned when empty.
func (s *Store) Seed(refs ...domain.Reference) []domain.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Reference, 0, len(refs))
	for _, r := range refs {
		if r.ID == "" {
			r.ID = s.newID()
		}
		s.records = append(s.records, r)
		out = append(out, r)
	}
	return out
}

// Records returns a copy of all stored records in insertion order.
func (s *Store) Records() []domain.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Client returns a new signed-out client bound to the store.
func (s *Store) Client() *Fake {
	return &Fake{
		store: s,
		calls: make(map[Op]int),
		fail:  make(map[Op]error),
		hooks: make(map[Op]func()),
	}
}

// Factory returns a backend.Factory producing clients bound to the store.
func (s *Store) Factory() backend.Factory {
	return func() backend.Client { return s.Client() }
}

func (s *Store) newID() string {
	s.nextID++
	return fmt.Sprintf("ref-%04d", s.nextID)
}

// Fake is an in-memory backend.Client.
type Fake struct {
	store *Store
	bc    backend.Broadcaster

	mu      sync.Mutex
	session *domain.Session
	calls   map[Op]int
	fail    map[Op]error
	hooks   map[Op]func()
}

var _ backend.Client = (*Fake)(nil)

// New returns a client bound to a fresh store.
func New() *Fake {
	return NewStore().Client()
}

// Store returns the backing store.
func (f *Fake) Store() *Store { return f.store }

// Fail makes every later call of op return err. A nil err clears it.
func (f *Fake) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// OnCall runs hook at the start of every call of op, outside the fake's
// locks. Tests use it to block a call in flight.
func (f *Fake) OnCall(op Op, hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = hook
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// ResetCalls zeroes all call counters.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.calls)
}

// Listeners returns the number of live session subscriptions.
func (f *Fake) Listeners() int { return f.bc.Len() }

// Session returns the held session without counting a call.
func (f *Fake) Session() *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return backend.CloneSession(f.session)
}

// ExpireSession drops the held session as if the server revoked it, and
// notifies listeners with EventSignedOut.
func (f *Fake) ExpireSession() {
	f.mu.Lock()
	f.session = nil
	f.mu.Unlock()
	f.bc.Emit(backend.EventSignedOut, nil)
}

// SetSession replaces the held session without notifying listeners.
func (f *Fake) SetSession(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = backend.CloneSession(s)
}

// Emit delivers an arbitrary event to listeners and stores session.
func (f *Fake) Emit(event backend.Event, s *domain.Session) {
	f.SetSession(s)
	f.bc.Emit(event, s)
}

func (f *Fake) enter(op Op) error {
	f.mu.Lock()
	f.calls[op]++
	hook := f.hooks[op]
	err := f.fail[op]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *Fake) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if err := f.enter(OpCurrentSession); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Session(), nil
}

func (f *Fake) OnSessionChange(l backend.Listener) backend.Subscription {
	return f.bc.Subscribe(l, f.Session())
}

func (f *Fake) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := f.enter(OpSignIn); err != nil {
		return nil, err
	}

	f.store.mu.Lock()
	want, ok := f.store.users[strings.ToLower(strings.TrimSpace(email))]
	f.store.mu.Unlock()
	if !ok || want != password {
		return nil, fmt.Errorf("invalid login credentials: %w", domain.ErrUnauthorized)
	}

	s := &domain.Session{
		AccessToken:  "access-" + email,
		RefreshToken: "refresh-" + email,
		ExpiresAt:    time.Now().Add(time.Hour),
		Identity:     domain.Identity{UserID: "user-" + email, Email: email},
	}
	f.SetSession(s)
	f.bc.Emit(backend.EventSignedIn, s)
	return backend.CloneSession(s), nil
}

func (f *Fake) SignOut(ctx context.Context) error {
	if err := f.enter(OpSignOut); err != nil {
		return err
	}

	f.mu.Lock()
	had := f.session != nil
	f.session = nil
	f.mu.Unlock()

	if had {
		f.bc.Emit(backend.EventSignedOut, nil)
	}
	return nil
}

func (f *Fake) References() backend.Table { return table{f} }

type table struct{ f *Fake }

func (t table) authorized() error {
	if t.f.Session() == nil {
		return fmt.Errorf("row-level security: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (t table) Select(ctx context.Context, q backend.Query) (backend.Result, error) {
	if err := t.f.enter(OpSelect); err != nil {
		return backend.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return backend.Result{}, err
	}

	recs := t.f.store.Records()
	order := q.Order.OrderOrDefault()
	slices.SortStableFunc(recs, func(a, b domain.Reference) int {
		c := compare(a, b, order.Column)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if !order.Ascending {
			c = -c
		}
		return c
	})

	var res backend.Result
	if q.Count {
		res.Count = len(recs)
	}
	if !q.Head {
		res.Records = recs
	}
	return res, nil
}

func compare(a, b domain.Reference, col domain.ReferenceColumn) int {
	switch col {
	case domain.ReferenceColumnValue:
		return cmp.Compare(a.Value, b.Value)
	case domain.ReferenceColumnCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case domain.ReferenceColumnUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}

func (t table) Insert(_ context.Context, rec domain.NewReference) error {
	if err := t.f.enter(OpInsert); err != nil {
		return err
	}
	if err := t.authorized(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.Value) == "" || rec.UpdatedAt.Before(rec.CreatedAt) {
		return fmt.Errorf("check constraint: %w", domain.ErrValidation)
	}

	s := t.f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, domain.Reference{
		ID:        s.newID(),
		Value:     rec.Value,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	})
	return nil
}

func (t table) Update(_ context.Context, id string, patch domain.ReferencePatch) error {
	if err := t.f.enter(OpUpdate); err != nil {
		return err
	}
	if err := t.authorized(); err != nil {
		return err
	}
	if strings.TrimSpace(patch.Value) == "" {
		return fmt.Errorf("check constraint: %w", domain.ErrValidation)
	}

	s := t.f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			if patch.UpdatedAt.Before(s.records[i].CreatedAt) {
				return fmt.Errorf("check constraint: %w", domain.ErrValidation)
			}
			s.records[i].Value = patch.Value
			s.records[i].UpdatedAt = patch.UpdatedAt
		}
	}
	return nil
}

func (t table) Delete(_ context.Context, id string) error {
	if err := t.f.enter(OpDelete); err != nil {
		return err
	}
	if err := t.authorized(); err != nil {
		return err
	}

	s := t.f.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.DeleteFunc(s.records, func(r domain.Reference) bool { return r.ID == id })
	return nil
}
