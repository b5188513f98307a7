// Package token implements the RefreshToken repository using PostgreSQL.
package token

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/wonlinemenu/refadmin/internal/adapter/postgres"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

const (
	table  = "refresh_tokens"
	entity = "refresh_token"
)

// Repo provides refresh-token persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new token repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Create inserts a new refresh token and fills in the server-assigned ID and CreatedAt.
func (r *Repo) Create(ctx context.Context, token *domain.RefreshToken) error {
	query, args, err := postgres.Builder.
		Insert(table).
		Columns("user_id", "token_hash", "expires_at").
		Values(token.UserID, token.TokenHash, token.ExpiresAt).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return postgres.MapError(err, entity, "")
	}

	err = postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return postgres.MapError(err, entity, "")
	}
	return nil
}

// GetByHash returns an active (non-revoked, non-expired) refresh token by its hash.
// Returns domain.ErrNotFound if the token does not exist, is revoked, or is expired.
func (r *Repo) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query, args, err := postgres.Builder.
		Select("id", "user_id", "token_hash", "expires_at", "created_at", "revoked_at").
		From(table).
		Where(squirrel.Eq{"token_hash": tokenHash, "revoked_at": nil}).
		Where("expires_at > now()").
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, entity, "")
	}

	var t domain.RefreshToken
	err = postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.RevokedAt)
	if err != nil {
		return nil, postgres.MapError(err, entity, "")
	}
	return &t, nil
}

// RevokeByID revokes a specific refresh token by setting revoked_at.
// Idempotent: revoking an already-revoked token is not an error.
func (r *Repo) RevokeByID(ctx context.Context, id uuid.UUID) error {
	return r.revoke(ctx, squirrel.Eq{"id": id}, id.String())
}

// RevokeAllByUser revokes all active refresh tokens for the given user.
func (r *Repo) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	return r.revoke(ctx, squirrel.Eq{"user_id": userID}, "")
}

func (r *Repo) revoke(ctx context.Context, where squirrel.Eq, id string) error {
	query, args, err := postgres.Builder.
		Update(table).
		Set("revoked_at", squirrel.Expr("now()")).
		Where(where).
		Where(squirrel.Eq{"revoked_at": nil}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, entity, id)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, entity, id)
	}
	return nil
}

// DeleteExpired removes all expired or revoked tokens and returns how many
// were deleted. It does not use a transaction.
func (r *Repo) DeleteExpired(ctx context.Context) (int, error) {
	query, args, err := postgres.Builder.
		Delete(table).
		Where(squirrel.Or{
			squirrel.Expr("expires_at <= now()"),
			squirrel.NotEq{"revoked_at": nil},
		}).
		ToSql()
	if err != nil {
		return 0, postgres.MapError(err, entity, "")
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return 0, postgres.MapError(err, entity, "")
	}
	return int(tag.RowsAffected()), nil
}
