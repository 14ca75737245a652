// Package cards implements the owner-scoped card collection.
package cards

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Card is one tracked item in an owner's collection. Categories holds
// the ids of the owner's categories the card is filed under.
type Card struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	ImageKey    string    `json:"image_key,omitempty"`
	Score       int       `json:"score"`
	Categories  []string  `json:"categories"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest is the payload for a new card. Creation is decided by
// the route, never by a sentinel id in the body.
type CreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	ImageKey    string   `json:"image_key"`
	Score       int      `json:"score"`
	Categories  []string `json:"categories"`
}

// UpdateRequest replaces a card's mutable fields.
type UpdateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	ImageKey    string   `json:"image_key"`
	Score       int      `json:"score"`
	Categories  []string `json:"categories"`
}

var (
	// ErrNotFound is returned when no card matches the id within the
	// owner's collection (including cards owned by someone else).
	ErrNotFound = errors.New("card not found")
	// ErrDuplicateTitle is returned when the owner already has a card
	// with the same title, compared case-insensitively.
	ErrDuplicateTitle = errors.New("duplicate card title")
	// ErrTitleRequired is returned for blank titles.
	ErrTitleRequired = errors.New("card title is required")
	// ErrScoreOutOfRange is returned for scores outside 0..100.
	ErrScoreOutOfRange = errors.New("score must be between 0 and 100")
)

// validate normalizes and checks the shared create/update fields.
func validate(title string, score int) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", ErrTitleRequired
	}
	if score < 0 || score > 100 {
		return "", fmt.Errorf("%w: %d", ErrScoreOutOfRange, score)
	}
	return trimmed, nil
}

// normalizeCategories trims and de-duplicates category ids.
func normalizeCategories(ids []string) []string {
	seen := map[string]struct{}{}
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
