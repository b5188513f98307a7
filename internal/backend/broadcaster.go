package backend

import (
	"sync"

	"github.com/wonlinemenu/refadmin/internal/domain"
)

// Broadcaster fans session events out to listeners. Clients embed one.
// The zero value is ready to use.
type Broadcaster struct {
	mu        sync.Mutex
	next      uint64
	listeners map[uint64]Listener
}

type subscription struct {
	once sync.Once
	b    *Broadcaster
	id   uint64
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.listeners, s.id)
		s.b.mu.Unlock()
	})
}

// Subscribe registers l and delivers EventInitialSession with current to it
// before returning.
func (b *Broadcaster) Subscribe(l Listener, current *domain.Session) Subscription {
	b.mu.Lock()
	if b.listeners == nil {
		b.listeners = make(map[uint64]Listener)
	}
	b.next++
	id := b.next
	b.listeners[id] = l
	b.mu.Unlock()

	l(EventInitialSession, CloneSession(current))

	return &subscription{b: b, id: id}
}

// Emit delivers event to every registered listener, each with its own copy
// of session. It is called without holding the broadcaster lock.
func (b *Broadcaster) Emit(event Event, session *domain.Session) {
	b.mu.Lock()
	ls := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		ls = append(ls, l)
	}
	b.mu.Unlock()

	for _, l := range ls {
		l(event, CloneSession(session))
	}
}

// Len returns the number of registered listeners.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// CloneSession returns a copy of s, or nil.
func CloneSession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
