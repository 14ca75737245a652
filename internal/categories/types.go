// Package categories manages per-owner labels that cards reference by id.
package categories

import (
	"errors"
	"time"
)

// Category is a label owned by a single account. Cards reference
// categories by id inside their categories array.
type Category struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest is the payload for creating or renaming a category.
type CreateRequest struct {
	Name string `json:"name"`
}

var (
	ErrNotFound     = errors.New("category not found")
	ErrNameRequired = errors.New("category name is required")
)
