package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardfolio/cardfolio/internal/db"
)

const categoryColumns = "id, owner_subject, name, created_at"

// Service provides owner-scoped category operations backed by Postgres.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	return &Service{pool: pool, logger: log.With(slog.String("service", "categories"))}
}

// ListByOwner returns the owner's categories ordered by creation time.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]Category, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE owner_subject = $1 ORDER BY created_at ASC",
		owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

// Create inserts a new category for the owner.
func (s *Service) Create(ctx context.Context, owner string, req CreateRequest) (Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Category{}, ErrNameRequired
	}
	row := s.pool.QueryRow(ctx,
		"INSERT INTO categories (owner_subject, name) VALUES ($1, $2) RETURNING "+categoryColumns,
		owner, name)
	return scanCategory(row)
}

// Rename changes a category's name. Returns ErrNotFound when the id
// does not exist or belongs to another owner.
func (s *Service) Rename(ctx context.Context, owner, id string, req CreateRequest) (Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Category{}, ErrNameRequired
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Category{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		"UPDATE categories SET name = $3 WHERE id = $1 AND owner_subject = $2 RETURNING "+categoryColumns,
		pgID, owner, name)
	return scanCategory(row)
}

// Delete removes the category and strips its id from every card of the
// same owner. Both writes happen in one transaction so cards never
// reference a category that no longer exists.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return ErrNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM categories WHERE id = $1 AND owner_subject = $2",
		pgID, owner)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		"UPDATE cards SET categories = array_remove(categories, $2), updated_at = now() WHERE owner_subject = $1 AND $2 = ANY(categories)",
		owner, id); err != nil {
		return fmt.Errorf("detach category from cards: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}
	s.logger.Debug("category deleted", "owner", owner, "category_id", id)
	return nil
}

func scanCategory(row pgx.Row) (Category, error) {
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
		cat       Category
	)
	if err := row.Scan(&id, &cat.Owner, &cat.Name, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("db error: %w", err)
	}
	cat.ID = db.UUIDToString(id)
	cat.CreatedAt = db.TimeFromPg(createdAt)
	return cat, nil
}
