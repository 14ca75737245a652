// Package media releases hosted card images when their cards go away.
package media

import "context"

// Store removes hosted objects by key. Implementations must treat
// deleting a missing object as success.
type Store interface {
	Delete(ctx context.Context, key string) error
}

// NoopStore satisfies Store when no object storage is configured.
// Cards can still carry external image URLs without a hosted copy.
type NoopStore struct{}

func (NoopStore) Delete(context.Context, string) error { return nil }
