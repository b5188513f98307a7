package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonlinemenu/refadmin/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates an admin user with the given password hash.
func SeedUser(t *testing.T, pool *pgxpool.Pool, passwordHash string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:           uuid.New(),
		Email:        "admin-" + uniqueSuffix() + "@example.com",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser: %v", err)
	}

	return user
}

// SeedReference inserts a reference record with equal created_at/updated_at.
func SeedReference(t *testing.T, pool *pgxpool.Pool, value string, at time.Time) domain.Reference {
	t.Helper()

	at = at.UTC().Truncate(time.Microsecond)
	ref := domain.Reference{Value: value, CreatedAt: at, UpdatedAt: at}

	err := pool.QueryRow(context.Background(),
		`INSERT INTO reference_records (value, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id::text`,
		value, at, at,
	).Scan(&ref.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedReference: %v", err)
	}

	return ref
}

// TruncateReferences empties reference_records. Tests that assert on the
// whole table must not run in parallel with each other.
func TruncateReferences(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), `TRUNCATE reference_records`); err != nil {
		t.Fatalf("testhelper: TruncateReferences: %v", err)
	}
}
