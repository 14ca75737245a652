// Package identity holds the durable user directory: the records
// materialized from verified provider claims, the store contract over
// them, and the handle self-service flow.
package identity

import (
	"errors"
	"time"
)

// Claims is the verified output of the token verifier: the provider's
// stable subject plus the profile fields mirrored on every login.
type Claims struct {
	Subject   string
	Name      string
	Email     string
	AvatarURL string
}

// User is the durable identity record. Subject is assigned by the
// provider and immutable; Handle is empty until the user claims one.
type User struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	AvatarURL   string    `json:"avatar_url"`
	Handle      string    `json:"handle,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

var (
	// ErrNotFound is returned when no user record matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrHandleTaken is returned when the requested handle already
	// belongs to another user (case-insensitively).
	ErrHandleTaken = errors.New("handle already taken")
	// ErrHandleInvalid is returned for handles outside the allowed shape.
	ErrHandleInvalid = errors.New("invalid handle")
)
