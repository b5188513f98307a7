// Package reference implements the reference record repository using PostgreSQL.
package reference

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/wonlinemenu/refadmin/internal/adapter/postgres"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

const (
	table  = "reference_records"
	entity = "reference"
)

var columns = []string{"id::text", "value", "created_at", "updated_at"}

// Repo provides reference record persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new reference repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// List returns every record ordered by the given column. Ties are broken by id
// in the same direction so the order is stable between calls.
func (r *Repo) List(ctx context.Context, orderBy domain.ReferenceColumn, ascending bool) ([]domain.Reference, error) {
	if !orderBy.IsValid() {
		return nil, fmt.Errorf("reference.List: unknown order column %q: %w", orderBy, domain.ErrValidation)
	}

	dir := " DESC"
	if ascending {
		dir = " ASC"
	}

	query, args, err := postgres.Builder.
		Select(columns...).
		From(table).
		OrderBy(orderBy.String()+dir, "id"+dir).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, entity, "")
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, entity, "")
	}

	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Reference, error) {
		var ref domain.Reference
		err := row.Scan(&ref.ID, &ref.Value, &ref.CreatedAt, &ref.UpdatedAt)
		return ref, err
	})
	if err != nil {
		return nil, postgres.MapError(err, entity, "")
	}
	if refs == nil {
		refs = []domain.Reference{}
	}
	return refs, nil
}

// Count returns the exact number of records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	query, args, err := postgres.Builder.Select("count(*)").From(table).ToSql()
	if err != nil {
		return 0, postgres.MapError(err, entity, "")
	}

	var n int
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(err, entity, "")
	}
	return n, nil
}

// Create inserts a record with caller-supplied timestamps. The id is
// assigned by the database.
func (r *Repo) Create(ctx context.Context, in domain.NewReference) (*domain.Reference, error) {
	query, args, err := postgres.Builder.
		Insert(table).
		Columns("value", "created_at", "updated_at").
		Values(in.Value, in.CreatedAt, in.UpdatedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, entity, "")
	}

	ref, err := scan(postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, entity, "")
	}
	return ref, nil
}

// Update sets value and updated_at on one record.
// Returns domain.ErrNotFound if no record has that id.
func (r *Repo) Update(ctx context.Context, id string, patch domain.ReferencePatch) (*domain.Reference, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query, args, err := postgres.Builder.
		Update(table).
		Set("value", patch.Value).
		Set("updated_at", patch.UpdatedAt).
		Where(squirrel.Eq{"id": uid}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, entity, id)
	}

	ref, err := scan(postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, entity, id)
	}
	return ref, nil
}

// Delete removes one record.
// Returns domain.ErrNotFound if no record has that id.
func (r *Repo) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	query, args, err := postgres.Builder.
		Delete(table).
		Where(squirrel.Eq{"id": uid}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, entity, id)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, entity, id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, entity, id)
	}
	return nil
}

// Ping checks that the table is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	_, err := r.Count(ctx)
	return err
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}
	return uid, nil
}

func scan(row pgx.Row) (*domain.Reference, error) {
	var ref domain.Reference
	if err := row.Scan(&ref.ID, &ref.Value, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
		return nil, err
	}
	return &ref, nil
}
