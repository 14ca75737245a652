package owner

import (
	"context"
	"errors"
	"testing"

	"github.com/cardfolio/cardfolio/internal/identity"
)

const templateEmail = "showcase@example.com"

func seedStore(t *testing.T, withTemplate bool) *identity.MemoryStore {
	t.Helper()
	store := identity.NewMemoryStore()
	ctx := context.Background()

	if withTemplate {
		if _, err := store.UpsertBySubject(ctx, identity.Claims{Subject: "tmpl", Email: templateEmail}); err != nil {
			t.Fatalf("seed template: %v", err)
		}
	}
	if _, err := store.UpsertBySubject(ctx, identity.Claims{Subject: "u1", Email: "alice@example.com"}); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if _, err := store.ClaimHandle(ctx, "u1", "alice"); err != nil {
		t.Fatalf("claim alice handle: %v", err)
	}
	return store
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	store := seedStore(t, true)
	r := NewResolver(nil, store, templateEmail)
	ctx := context.Background()
	authed := &identity.User{Subject: "u2"}

	tests := []struct {
		name  string
		q     Query
		ident *identity.User
		want  string
	}{
		{"override wins over handle", Query{TemplateOverride: true, Handle: "alice"}, authed, "tmpl"},
		{"override wins over authenticated", Query{TemplateOverride: true}, authed, "tmpl"},
		{"handle wins over authenticated", Query{Handle: "alice"}, authed, "u1"},
		{"handle is case-insensitive", Query{Handle: "ALICE"}, nil, "u1"},
		{"authenticated when no params", Query{}, authed, "u2"},
		{"template fallback for anonymous", Query{}, nil, "tmpl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.q, tt.ident)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveUnknownHandleIsTerminal(t *testing.T) {
	t.Parallel()

	store := seedStore(t, true)
	r := NewResolver(nil, store, templateEmail)

	// Even an authenticated caller gets a 404-class error, never a
	// silent fallthrough to their own or the template's data.
	_, err := r.Resolve(context.Background(), Query{Handle: "nobody"}, &identity.User{Subject: "u1"})
	if !errors.Is(err, ErrHandleNotFound) {
		t.Fatalf("expected ErrHandleNotFound, got %v", err)
	}
}

func TestResolveTemplateMissing(t *testing.T) {
	t.Parallel()

	store := seedStore(t, false)
	r := NewResolver(nil, store, templateEmail)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, Query{TemplateOverride: true}, nil); !errors.Is(err, ErrTemplateOwnerMissing) {
		t.Fatalf("override: expected ErrTemplateOwnerMissing, got %v", err)
	}
	if _, err := r.Resolve(ctx, Query{}, nil); !errors.Is(err, ErrTemplateOwnerMissing) {
		t.Fatalf("fallback: expected ErrTemplateOwnerMissing, got %v", err)
	}
}

func TestResolveTemplateRevalidatesWhileAbsent(t *testing.T) {
	t.Parallel()

	store := seedStore(t, false)
	r := NewResolver(nil, store, templateEmail)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, Query{}, nil); !errors.Is(err, ErrTemplateOwnerMissing) {
		t.Fatalf("expected ErrTemplateOwnerMissing before provisioning, got %v", err)
	}

	// The reserved account can be created after process start; the miss
	// must not have been cached.
	if _, err := store.UpsertBySubject(ctx, identity.Claims{Subject: "tmpl", Email: templateEmail}); err != nil {
		t.Fatalf("provision template: %v", err)
	}
	got, err := r.Resolve(ctx, Query{}, nil)
	if err != nil {
		t.Fatalf("Resolve() after provisioning: %v", err)
	}
	if got != "tmpl" {
		t.Fatalf("Resolve() = %q, want tmpl", got)
	}
}

func TestResolveNoTemplateConfigured(t *testing.T) {
	t.Parallel()

	store := seedStore(t, true)
	r := NewResolver(nil, store, "")

	if _, err := r.Resolve(context.Background(), Query{}, nil); !errors.Is(err, ErrTemplateOwnerMissing) {
		t.Fatalf("expected ErrTemplateOwnerMissing, got %v", err)
	}
}
