package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local development.
// It mirrors the Postgres semantics: upsert keyed by subject, handle
// uniqueness checked case-insensitively under the same lock that
// performs the write.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]User // keyed by subject
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
		now:   time.Now,
	}
}

// SetClock overrides the store clock; tests use it to observe
// created_at/last_seen_at movement.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) UpsertBySubject(_ context.Context, claims Claims) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	user, ok := s.users[claims.Subject]
	if !ok {
		user = User{
			ID:        uuid.NewString(),
			Subject:   claims.Subject,
			CreatedAt: now,
		}
	}
	user.DisplayName = claims.Name
	user.Email = claims.Email
	user.AvatarURL = claims.AvatarURL
	user.LastSeenAt = now
	s.users[claims.Subject] = user
	return user, nil
}

func (s *MemoryStore) FindBySubject(_ context.Context, subject string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[subject]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) FindByHandle(_ context.Context, handle string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Handle != "" && strings.EqualFold(user.Handle, handle) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) ClaimHandle(_ context.Context, subject, handle string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Subject != subject && user.Handle != "" && strings.EqualFold(user.Handle, handle) {
			return User{}, ErrHandleTaken
		}
	}
	user, ok := s.users[subject]
	if !ok {
		return User{}, ErrNotFound
	}
	user.Handle = handle
	s.users[subject] = user
	return user, nil
}

func (s *MemoryStore) HandleExists(_ context.Context, handle string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Handle != "" && strings.EqualFold(user.Handle, handle) {
			return true, nil
		}
	}
	return false, nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
