// Package backend defines the client contract for the auth + storage
// service that owns sessions and reference records.
package backend

import (
	"context"

	"github.com/wonlinemenu/refadmin/internal/domain"
)

// Event names a session change.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

func (e Event) String() string { return string(e) }

// Listener receives session changes. session is nil for EventSignedOut and
// for EventInitialSession when nobody is signed in.
//
// Clients call listeners synchronously, without holding their own locks,
// before the operation that caused the change returns.
type Listener func(event Event, session *domain.Session)

// Subscription is a registered listener. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Client is one page view's connection to the backend service. A Client
// holds at most one session at a time.
type Client interface {
	// CurrentSession returns the held session, refreshing it first if the
	// access token has expired. It returns (nil, nil) when signed out.
	CurrentSession(ctx context.Context) (*domain.Session, error)
	// OnSessionChange registers l. The listener immediately receives
	// EventInitialSession with the held session, then every later change.
	OnSessionChange(l Listener) Subscription
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
	References() Table
}

// Table is the reference record collection. Reads are anonymous; writes
// require a signed-in session and fail with domain.ErrUnauthorized otherwise.
// Updating or deleting an id that matches no row succeeds with no effect.
type Table interface {
	Select(ctx context.Context, q Query) (Result, error)
	Insert(ctx context.Context, rec domain.NewReference) error
	Update(ctx context.Context, id string, patch domain.ReferencePatch) error
	Delete(ctx context.Context, id string) error
}

// Order sorts a Select. The zero value means created_at ascending.
type Order struct {
	Column    domain.ReferenceColumn
	Ascending bool
}

// Query parameterizes a Select.
type Query struct {
	Order Order
	// Count requests the exact row count in Result.Count.
	Count bool
	// Head skips the rows themselves; use with Count.
	Head bool
}

// Result is the outcome of a Select.
type Result struct {
	Records []domain.Reference
	// Count is set only when Query.Count was requested.
	Count int
}

// Factory builds a new, signed-out Client.
type Factory func() Client

// OrderOrDefault returns o, or created_at ascending when o is unset.
func (o Order) OrderOrDefault() Order {
	if o.Column == "" {
		return Order{Column: domain.ReferenceColumnCreatedAt, Ascending: true}
	}
	return o
}

// Ping checks that the reference table answers an anonymous count query.
func Ping(ctx context.Context, c Client) error {
	_, err := c.References().Select(ctx, Query{Count: true, Head: true})
	return err
}
