// Package ctxutil carries request-scoped identifiers on a context.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type key int

const (
	userKey key = iota
	requestKey
	visitorKey
)

// WithUserID records the signed-in account.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// UserIDFromCtx reports the account stored by WithUserID. uuid.Nil counts
// as absent.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	return idFrom(ctx, userKey)
}

// WithVisitorID records the browser visitor a request belongs to.
func WithVisitorID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, visitorKey, id)
}

// VisitorIDFromCtx reports the visitor stored by WithVisitorID.
func VisitorIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	return idFrom(ctx, visitorKey)
}

// WithRequestID records the correlation id of the current request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey, id)
}

// RequestIDFromCtx returns the request id, or "" outside a request.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestKey).(string)
	return id
}

func idFrom(ctx context.Context, k key) (uuid.UUID, bool) {
	id, _ := ctx.Value(k).(uuid.UUID)
	return id, id != uuid.Nil
}
