// Package reflist keeps one page view's list of reference records in step
// with the backend. Every successful mutation is followed by a full refetch.
package reflist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

// Op names a mutation for observers.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpEdit   Op = "edit"
)

// Observer is told the outcome of every mutation attempt.
type Observer interface {
	Mutation(op Op, err error)
}

// Draft is the single-slot edit state. A zero Draft means nothing is edited.
type Draft struct {
	EditingID string
	Value     string
}

// Active reports whether a record is being edited.
func (d Draft) Active() bool { return d.EditingID != "" }

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	Records []domain.Reference
	Error   string
	Input   string
	Draft   Draft
	Loaded  bool
	Busy    bool
}

// Controller is the Reference List Controller of one page view.
type Controller struct {
	table    backend.Table
	order    backend.Order
	now      func() time.Time
	log      *slog.Logger
	observer Observer

	mu       sync.Mutex
	records  []domain.Reference
	errMsg   string
	input    string
	draft    Draft
	loaded   bool
	inFlight bool
	// gen is bumped by Unmount so late results are discarded.
	gen uint64
	// fetchSeq orders concurrent fetches; only the newest one is applied.
	fetchSeq uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithOrder sets the server order used by FetchAll.
func WithOrder(o backend.Order) Option {
	return func(c *Controller) { c.order = o }
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithObserver attaches a mutation observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// AdminOrder lists the most recently touched record first.
var AdminOrder = backend.Order{Column: domain.ReferenceColumnUpdatedAt, Ascending: false}

// PublicOrder lists the newest record first.
var PublicOrder = backend.Order{Column: domain.ReferenceColumnCreatedAt, Ascending: false}

// New creates a controller over table. The default order is AdminOrder.
func New(table backend.Table, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		table: table,
		order: AdminOrder,
		now:   time.Now,
		log:   logger.With("component", "reflist"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Records: slices.Clone(c.records),
		Error:   c.errMsg,
		Input:   c.input,
		Draft:   c.draft,
		Loaded:  c.loaded,
		Busy:    c.inFlight,
	}
}

// Mount fetches the list for a newly shown view.
func (c *Controller) Mount(ctx context.Context) error {
	return c.FetchAll(ctx)
}

// Unmount discards the edit draft and any pending error. Results of calls
// still in flight are dropped when they complete.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.inFlight = false
	c.draft = Draft{}
	c.errMsg = ""
}

// FetchAll replaces the records with the server's full ordered list. On
// failure the previous records are kept and the error is surfaced.
func (c *Controller) FetchAll(ctx context.Context) error {
	c.mu.Lock()
	c.fetchSeq++
	seq, gen := c.fetchSeq, c.gen
	c.mu.Unlock()

	res, err := c.table.Select(ctx, backend.Query{Order: c.order})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || seq != c.fetchSeq {
		return err
	}
	if err != nil {
		c.log.WarnContext(ctx, "fetch references failed", slog.String("error", err.Error()))
		c.errMsg = message("Error loading references", err)
		return fmt.Errorf("reflist.FetchAll: %w", err)
	}
	c.records = res.Records
	if c.records == nil {
		c.records = []domain.Reference{}
	}
	c.loaded = true
	c.errMsg = ""
	return nil
}

// Count returns the exact number of records without fetching them.
func (c *Controller) Count(ctx context.Context) (int, error) {
	res, err := c.table.Select(ctx, backend.Query{Count: true, Head: true})
	if err != nil {
		return 0, fmt.Errorf("reflist.Count: %w", err)
	}
	return res.Count, nil
}

// SetInput records the add field's current text.
func (c *Controller) SetInput(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = raw
}

// Add inserts a record whose value is raw trimmed, stamped with the current
// time. An empty value fails before any server call. On success the input is
// cleared and the list is refetched; on failure the input is kept.
func (c *Controller) Add(ctx context.Context, raw string) error {
	c.SetInput(raw)

	value, err := domain.ValidateReferenceValue(raw)
	if err != nil {
		c.fail("Reference value is required", nil)
		return err
	}

	return c.mutate(ctx, OpAdd, "Error adding reference", func(ctx context.Context) error {
		now := c.stamp()
		return c.table.Insert(ctx, domain.NewReference{Value: value, CreatedAt: now, UpdatedAt: now})
	}, func() { c.input = "" })
}

// Remove deletes the record with id and refetches. Confirmation is the
// caller's responsibility.
func (c *Controller) Remove(ctx context.Context, id string) error {
	return c.mutate(ctx, OpRemove, "Error deleting reference", func(ctx context.Context) error {
		return c.table.Delete(ctx, id)
	}, func() {
		if c.draft.EditingID == id {
			c.draft = Draft{}
		}
	})
}

// BeginEdit puts rec into the edit slot, replacing any other draft.
func (c *Controller) BeginEdit(rec domain.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{EditingID: rec.ID, Value: rec.Value}
}

// BeginEditByID starts editing the listed record with id.
func (c *Controller) BeginEditByID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.records, func(r domain.Reference) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("reflist.BeginEdit %s: %w", id, domain.ErrNotFound)
	}
	c.draft = Draft{EditingID: id, Value: c.records[i].Value}
	return nil
}

// DiscardDraft drops the edit draft and any pending error when the view is
// left. Calls still in flight are not affected.
func (c *Controller) DiscardDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{}
	c.errMsg = ""
}

// SetDraft updates the draft value of the record being edited.
func (c *Controller) SetDraft(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.Active() {
		c.draft.Value = value
	}
}

// CancelEdit clears the draft and any pending error.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{}
	c.errMsg = ""
}

// CommitEdit saves value for id. updated_at strictly increases over the
// record's previous value. On failure the draft is preserved for retry.
func (c *Controller) CommitEdit(ctx context.Context, id, value string) error {
	c.mu.Lock()
	c.draft = Draft{EditingID: id, Value: value}
	var prev time.Time
	if i := slices.IndexFunc(c.records, func(r domain.Reference) bool { return r.ID == id }); i >= 0 {
		prev = c.records[i].UpdatedAt
	}
	c.mu.Unlock()

	trimmed, err := domain.ValidateReferenceValue(value)
	if err != nil {
		c.fail("Reference value is required", nil)
		return err
	}

	return c.mutate(ctx, OpEdit, "Error updating reference", func(ctx context.Context) error {
		at := c.stamp()
		if !prev.IsZero() && !at.After(prev) {
			at = prev.Add(time.Microsecond)
		}
		return c.table.Update(ctx, id, domain.ReferencePatch{Value: trimmed, UpdatedAt: at})
	}, func() { c.draft = Draft{} })
}

// stamp returns the current time at the storage precision.
func (c *Controller) stamp() time.Time {
	return c.now().UTC().Truncate(time.Microsecond)
}

// mutate runs call as the single in-flight mutation, then resyncs. onSuccess
// runs under the lock before the refetch.
func (c *Controller) mutate(ctx context.Context, op Op, prefix string, call func(context.Context) error, onSuccess func()) error {
	c.mu.Lock()
	if c.inFlight {
		c.errMsg = domain.ErrBusy.Error()
		c.mu.Unlock()
		c.observe(op, domain.ErrBusy)
		return domain.ErrBusy
	}
	c.inFlight = true
	gen := c.gen
	c.mu.Unlock()

	err := call(ctx)
	c.observe(op, err)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.inFlight = false
		c.mu.Unlock()
		c.log.WarnContext(ctx, "reference mutation failed",
			slog.String("op", string(op)),
			slog.String("error", err.Error()))
		c.fail(prefix, err)
		return fmt.Errorf("reflist.%s: %w", op, err)
	}
	onSuccess()
	c.errMsg = ""
	c.mu.Unlock()

	resyncErr := c.FetchAll(ctx)

	c.mu.Lock()
	if gen == c.gen {
		c.inFlight = false
	}
	c.mu.Unlock()

	return resyncErr
}

func (c *Controller) fail(prefix string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = message(prefix, err)
}

func (c *Controller) observe(op Op, err error) {
	if c.observer != nil {
		c.observer.Mutation(op, err)
	}
}

// message renders an inline error for the view.
func message(prefix string, err error) string {
	switch {
	case err == nil:
		return prefix
	case errors.Is(err, domain.ErrUnauthorized):
		return prefix + ": your session has expired, please sign in again"
	case errors.Is(err, domain.ErrValidation):
		return prefix + ": the value was rejected by the server"
	default:
		return prefix + ": " + err.Error()
	}
}
