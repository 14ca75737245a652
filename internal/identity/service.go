package identity

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// handlePattern bounds the public-facing short name: lowercase letters,
// digits, hyphen, underscore, 3 to 30 characters.
var handlePattern = regexp.MustCompile(`^[a-z0-9_-]{3,30}$`)

// NormalizeHandle lowercases and trims a requested handle and validates
// its shape. Handles are stored normalized so the storage index and the
// application can never disagree on case.
func NormalizeHandle(handle string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(handle))
	if !handlePattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrHandleInvalid, handle)
	}
	return normalized, nil
}

// Service materializes verified identities and serves the handle
// self-service flow.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates an identity service over the given store.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "identity")),
	}
}

// Materialize performs the idempotent create-or-refresh for a verified
// claims set. Safe under concurrent calls with the same subject: the
// store upsert is a single atomic statement.
func (s *Service) Materialize(ctx context.Context, claims Claims) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return User{}, fmt.Errorf("claims subject is required")
	}
	user, err := s.store.UpsertBySubject(ctx, claims)
	if err != nil {
		return User{}, fmt.Errorf("materialize %s: %w", claims.Subject, err)
	}
	return user, nil
}

// BySubject returns the record for a provider subject.
func (s *Service) BySubject(ctx context.Context, subject string) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	return s.store.FindBySubject(ctx, subject)
}

// ByHandle returns the record owning the given handle, case-insensitively.
func (s *Service) ByHandle(ctx context.Context, handle string) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	return s.store.FindByHandle(ctx, handle)
}

// ClaimHandle assigns a handle to the subject's record. The advisory
// existence check gives a friendly answer for the common case; the
// store's unique index is the authority when two claims race.
func (s *Service) ClaimHandle(ctx context.Context, subject, handle string) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("identity store not configured")
	}
	normalized, err := NormalizeHandle(handle)
	if err != nil {
		return User{}, err
	}
	current, err := s.store.FindBySubject(ctx, subject)
	if err != nil {
		return User{}, err
	}
	if strings.EqualFold(current.Handle, normalized) {
		return current, nil
	}
	taken, err := s.store.HandleExists(ctx, normalized)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, ErrHandleTaken
	}
	user, err := s.store.ClaimHandle(ctx, subject, normalized)
	if err != nil {
		return User{}, err
	}
	s.logger.Info("handle claimed", slog.String("subject", subject), slog.String("handle", normalized))
	return user, nil
}

// HandleAvailable reports whether a handle is free to claim.
func (s *Service) HandleAvailable(ctx context.Context, handle string) (bool, error) {
	if s.store == nil {
		return false, fmt.Errorf("identity store not configured")
	}
	normalized, err := NormalizeHandle(handle)
	if err != nil {
		return false, err
	}
	exists, err := s.store.HandleExists(ctx, normalized)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
