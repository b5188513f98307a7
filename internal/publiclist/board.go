// Package publiclist serves the read-only public listing, refreshed on a
// schedule from an anonymous backend client.
package publiclist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/reflist"
)

// Observer is told the outcome of every refresh.
type Observer interface {
	PublicRefresh(records int, err error)
}

type jobScheduler interface {
	Add(name, spec string, job func(ctx context.Context)) (cron.EntryID, error)
	Remove(id cron.EntryID)
}

// Board owns the public listing state.
type Board struct {
	ctrl     *reflist.Controller
	log      *slog.Logger
	observer Observer

	mu      sync.Mutex
	sched   jobScheduler
	entry   cron.EntryID
	running bool
}

// NewBoard creates a board over an anonymous client, newest record first.
func NewBoard(client backend.Client, logger *slog.Logger, observer Observer) *Board {
	log := logger.With("component", "publiclist")
	return &Board{
		ctrl:     reflist.New(client.References(), log, reflist.WithOrder(reflist.PublicOrder)),
		log:      log,
		observer: observer,
	}
}

// Refresh refetches the listing. On failure the last good list stays on
// display and the error is surfaced in the snapshot.
func (b *Board) Refresh(ctx context.Context) error {
	err := b.ctrl.FetchAll(ctx)
	n := len(b.ctrl.Snapshot().Records)
	if err != nil {
		b.log.WarnContext(ctx, "public refresh failed", slog.String("error", err.Error()))
	} else {
		b.log.DebugContext(ctx, "public listing refreshed", slog.Int("records", n))
	}
	if b.observer != nil {
		b.observer.PublicRefresh(n, err)
	}
	return err
}

// Snapshot returns the listing for rendering.
func (b *Board) Snapshot() reflist.Snapshot {
	return b.ctrl.Snapshot()
}

// Schedule registers the periodic refresh on s under spec.
func (b *Board) Schedule(s jobScheduler, spec string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	id, err := s.Add("public-refresh", spec, func(ctx context.Context) { _ = b.Refresh(ctx) })
	if err != nil {
		return err
	}
	b.sched, b.entry, b.running = s, id, true
	return nil
}

// Close removes the scheduled refresh and unmounts the listing.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		b.sched.Remove(b.entry)
		b.running = false
	}
	b.ctrl.Unmount()
}
