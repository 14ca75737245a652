// Package owner resolves which owner's collection a read request
// operates over: an explicit template override, a public handle, the
// authenticated caller, or the template fallback — in that order.
package owner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/cardfolio/cardfolio/internal/identity"
)

// Terminal resolution failures. Both map to a 404: a caller asking for
// a specific owner that does not exist must never be served someone
// else's data instead.
var (
	// ErrHandleNotFound is returned when the requested handle matches no user.
	ErrHandleNotFound = errors.New("no user with that handle")
	// ErrTemplateOwnerMissing is returned when the reserved template
	// account has not been provisioned yet.
	ErrTemplateOwnerMissing = errors.New("template owner not provisioned")
)

// TemplateOverride is the query value that forces template resolution.
const TemplateOverride = "template"

// Query carries the owner-selection parameters of one read request.
type Query struct {
	// TemplateOverride forces resolution to the template owner.
	TemplateOverride bool
	// Handle selects a specific owner's public view.
	Handle string
}

// Resolver computes the effective owner for read requests. The template
// owner's subject is cached per process once found and revalidated
// while absent, since the reserved account can be created after start.
type Resolver struct {
	store           identity.Store
	templateEmail   string
	templateSubject atomic.Pointer[string]
	logger          *slog.Logger
}

// NewResolver creates a resolver over the identity store. templateEmail
// addresses the reserved account served to anonymous visitors.
func NewResolver(log *slog.Logger, store identity.Store, templateEmail string) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:         store,
		templateEmail: strings.TrimSpace(templateEmail),
		logger:        log.With(slog.String("component", "owner_resolver")),
	}
}

// strategy inspects one branch of the precedence chain. It reports
// matched=false to pass resolution to the next branch; an error is
// terminal for the whole request.
type strategy func(ctx context.Context, q Query, ident *identity.User) (subject string, matched bool, err error)

// Resolve walks the precedence chain and returns the subject whose data
// the request should read. The order is load-bearing: override, then
// handle, then the authenticated caller, then the template fallback.
func (r *Resolver) Resolve(ctx context.Context, q Query, ident *identity.User) (string, error) {
	strategies := []strategy{
		r.resolveOverride,
		r.resolveHandle,
		r.resolveAuthenticated,
		r.resolveTemplate,
	}
	for _, s := range strategies {
		subject, matched, err := s(ctx, q, ident)
		if err != nil {
			return "", err
		}
		if matched {
			return subject, nil
		}
	}
	// The template branch always matches or errors.
	return "", ErrTemplateOwnerMissing
}

func (r *Resolver) resolveOverride(ctx context.Context, q Query, _ *identity.User) (string, bool, error) {
	if !q.TemplateOverride {
		return "", false, nil
	}
	subject, err := r.templateOwner(ctx)
	if err != nil {
		return "", false, err
	}
	return subject, true, nil
}

func (r *Resolver) resolveHandle(ctx context.Context, q Query, _ *identity.User) (string, bool, error) {
	handle := strings.TrimSpace(q.Handle)
	if handle == "" {
		return "", false, nil
	}
	user, err := r.store.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// Terminal: falling through here would serve the wrong owner's data.
			return "", false, fmt.Errorf("%w: %q", ErrHandleNotFound, handle)
		}
		return "", false, err
	}
	return user.Subject, true, nil
}

func (*Resolver) resolveAuthenticated(_ context.Context, _ Query, ident *identity.User) (string, bool, error) {
	if ident == nil {
		return "", false, nil
	}
	return ident.Subject, true, nil
}

func (r *Resolver) resolveTemplate(ctx context.Context, _ Query, _ *identity.User) (string, bool, error) {
	subject, err := r.templateOwner(ctx)
	if err != nil {
		return "", false, err
	}
	return subject, true, nil
}

// templateOwner returns the reserved account's subject, consulting the
// per-process cache first. Lookup failures are never cached.
func (r *Resolver) templateOwner(ctx context.Context) (string, error) {
	if cached := r.templateSubject.Load(); cached != nil {
		return *cached, nil
	}
	if r.templateEmail == "" {
		return "", ErrTemplateOwnerMissing
	}
	user, err := r.store.FindByEmail(ctx, r.templateEmail)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return "", ErrTemplateOwnerMissing
		}
		return "", err
	}
	subject := user.Subject
	r.templateSubject.Store(&subject)
	r.logger.Debug("template owner resolved", slog.String("subject", subject))
	return subject, nil
}
