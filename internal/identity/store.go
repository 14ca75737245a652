package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardfolio/cardfolio/internal/db"
)

// Store is the persistence contract for user records. All lookups by
// handle are case-insensitive; UpsertBySubject must be a single atomic
// statement so concurrent logins for the same subject are safe.
type Store interface {
	UpsertBySubject(ctx context.Context, claims Claims) (User, error)
	FindBySubject(ctx context.Context, subject string) (User, error)
	FindByHandle(ctx context.Context, handle string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	ClaimHandle(ctx context.Context, subject, handle string) (User, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
}

// PostgresStore implements Store over pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = "id, subject_id, display_name, email, avatar_url, handle, created_at, last_seen_at"

// UpsertBySubject creates or refreshes the record for claims.Subject in
// one statement. On conflict only the mirrored fields and last_seen_at
// change; handle and created_at are untouched.
func (s *PostgresStore) UpsertBySubject(ctx context.Context, claims Claims) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	query := `
		INSERT INTO users (subject_id, display_name, email, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			avatar_url = EXCLUDED.avatar_url,
			last_seen_at = now()
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, claims.Subject, claims.Name, claims.Email, claims.AvatarURL)
	return scanUser(row)
}

func (s *PostgresStore) FindBySubject(ctx context.Context, subject string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE subject_id = $1`
	return scanUser(s.pool.QueryRow(ctx, query, subject))
}

func (s *PostgresStore) FindByHandle(ctx context.Context, handle string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE handle IS NOT NULL AND lower(handle) = lower($1)`
	return scanUser(s.pool.QueryRow(ctx, query, handle))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 ORDER BY created_at LIMIT 1`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// ClaimHandle writes the handle for the given subject. The partial
// unique index on lower(handle) is the authority on uniqueness; a
// violation maps to ErrHandleTaken.
func (s *PostgresStore) ClaimHandle(ctx context.Context, subject, handle string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	query := `UPDATE users SET handle = $2 WHERE subject_id = $1 RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(ctx, query, subject, handle))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrHandleTaken
		}
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) HandleExists(ctx context.Context, handle string) (bool, error) {
	if s.pool == nil {
		return false, fmt.Errorf("identity store not configured")
	}
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE handle IS NOT NULL AND lower(handle) = lower($1))`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, handle).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id         pgtype.UUID
		handle     pgtype.Text
		createdAt  pgtype.Timestamptz
		lastSeenAt pgtype.Timestamptz
		user       User
	)
	err := row.Scan(&id, &user.Subject, &user.DisplayName, &user.Email, &user.AvatarURL, &handle, &createdAt, &lastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("db error: %w", err)
	}
	user.ID = db.UUIDToString(id)
	user.Handle = db.TextToString(handle)
	user.CreatedAt = db.TimeFromPg(createdAt)
	user.LastSeenAt = db.TimeFromPg(lastSeenAt)
	return user, nil
}
