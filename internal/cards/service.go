package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardfolio/cardfolio/internal/db"
)

// Service owns all card persistence. Every statement filters by the
// owner subject alongside the primary key, so a caller can never read
// or mutate another owner's card through an id alone.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a card service over the shared pool.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "cards")),
	}
}

const cardColumns = "id, owner_subject, title, description, image_url, image_key, score, categories, created_at, updated_at"

// ListByOwner returns the owner's collection, newest first.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]Card, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("cards service not configured")
	}
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_subject = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

// Get returns one card within the owner's collection.
func (s *Service) Get(ctx context.Context, owner, id string) (Card, error) {
	if s.pool == nil {
		return Card{}, fmt.Errorf("cards service not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Card{}, ErrNotFound
	}
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND owner_subject = $2`
	return scanCard(s.pool.QueryRow(ctx, query, pgID, owner))
}

// Create inserts a new card for the owner, rejecting duplicate titles
// within the collection.
func (s *Service) Create(ctx context.Context, owner string, req CreateRequest) (Card, error) {
	if s.pool == nil {
		return Card{}, fmt.Errorf("cards service not configured")
	}
	title, err := validate(req.Title, req.Score)
	if err != nil {
		return Card{}, err
	}
	dup, err := s.titleExists(ctx, owner, title, "")
	if err != nil {
		return Card{}, err
	}
	if dup {
		return Card{}, ErrDuplicateTitle
	}

	query := `
		INSERT INTO cards (owner_subject, title, description, image_url, image_key, score, categories)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + cardColumns
	card, err := scanCard(s.pool.QueryRow(ctx, query,
		owner, title, req.Description, req.ImageURL, req.ImageKey, req.Score, normalizeCategories(req.Categories)))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Card{}, ErrDuplicateTitle
		}
		return Card{}, err
	}
	s.logger.Info("card created", slog.String("owner", owner), slog.String("card_id", card.ID))
	return card, nil
}

// Update replaces the card's mutable fields, keeping the duplicate-title
// rule against the owner's other cards.
func (s *Service) Update(ctx context.Context, owner, id string, req UpdateRequest) (Card, error) {
	if s.pool == nil {
		return Card{}, fmt.Errorf("cards service not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Card{}, ErrNotFound
	}
	title, err := validate(req.Title, req.Score)
	if err != nil {
		return Card{}, err
	}
	dup, err := s.titleExists(ctx, owner, title, db.UUIDToString(pgID))
	if err != nil {
		return Card{}, err
	}
	if dup {
		return Card{}, ErrDuplicateTitle
	}

	query := `
		UPDATE cards SET
			title = $3,
			description = $4,
			image_url = $5,
			image_key = $6,
			score = $7,
			categories = $8,
			updated_at = now()
		WHERE id = $1 AND owner_subject = $2
		RETURNING ` + cardColumns
	card, err := scanCard(s.pool.QueryRow(ctx, query,
		pgID, owner, title, req.Description, req.ImageURL, req.ImageKey, req.Score, normalizeCategories(req.Categories)))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Card{}, ErrDuplicateTitle
		}
		return Card{}, err
	}
	return card, nil
}

// Delete removes the card and returns it, so the caller can release the
// hosted image afterwards.
func (s *Service) Delete(ctx context.Context, owner, id string) (Card, error) {
	if s.pool == nil {
		return Card{}, fmt.Errorf("cards service not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Card{}, ErrNotFound
	}
	query := `DELETE FROM cards WHERE id = $1 AND owner_subject = $2 RETURNING ` + cardColumns
	card, err := scanCard(s.pool.QueryRow(ctx, query, pgID, owner))
	if err != nil {
		return Card{}, err
	}
	s.logger.Info("card deleted", slog.String("owner", owner), slog.String("card_id", id))
	return card, nil
}

// titleExists reports whether the owner already has a card with the
// title, optionally excluding one card id (the card being updated).
func (s *Service) titleExists(ctx context.Context, owner, title, excludeID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM cards
		WHERE owner_subject = $1 AND lower(title) = lower($2) AND ($3 = '' OR id::text <> $3)
	)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, owner, title, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func scanCard(row pgx.Row) (Card, error) {
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		card      Card
	)
	err := row.Scan(&id, &card.Owner, &card.Title, &card.Description, &card.ImageURL, &card.ImageKey,
		&card.Score, &card.Categories, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, fmt.Errorf("db error: %w", err)
	}
	card.ID = db.UUIDToString(id)
	card.CreatedAt = db.TimeFromPg(createdAt)
	card.UpdatedAt = db.TimeFromPg(updatedAt)
	if card.Categories == nil {
		card.Categories = []string{}
	}
	return card, nil
}
