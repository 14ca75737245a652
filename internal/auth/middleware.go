package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/identity"
)

// Materializer persists the verified identity (create-or-refresh keyed
// by subject). Implemented by identity.Service.
type Materializer interface {
	Materialize(ctx context.Context, claims identity.Claims) (identity.User, error)
}

// Middleware builds the strict and optional authentication middleware
// from a verifier and a materializer. Both variants run the same
// pipeline (verify, then materialize, then attach); they differ only in
// what happens when credentials are absent or bad.
type Middleware struct {
	verifier Verifier
	users    Materializer
	logger   *slog.Logger
}

// NewMiddleware creates the middleware pair's shared state.
func NewMiddleware(log *slog.Logger, verifier Verifier, users Materializer) *Middleware {
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{
		verifier: verifier,
		users:    users,
		logger:   log.With(slog.String("component", "auth")),
	}
}

// Require returns the strict variant: requests without a verified
// identity are rejected with a uniform 401 before the handler runs.
// The failure subtype (malformed header, rejected token, provider
// unreachable) is logged but never exposed to the caller.
func (m *Middleware) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			user, err := m.authenticate(c.Request().Context(), header)
			if err != nil {
				if IsCredentialError(err) {
					m.logger.Warn("authentication rejected",
						slog.String("path", c.Request().URL.Path),
						slog.Any("error", err),
					)
					return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
				}
				m.logger.Error("identity materialization failed", slog.Any("error", err))
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
			WithIdentity(c, user)
			return next(c)
		}
	}
}

// Optional returns the lenient variant for public-read endpoints: the
// request always continues, as anonymous when credentials are absent or
// fail verification. Only a store failure during materialization aborts
// the request, since attaching a half-made identity would be worse than
// failing.
func (m *Middleware) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}
			user, err := m.authenticate(c.Request().Context(), header)
			if err != nil {
				if IsCredentialError(err) {
					m.logger.Debug("optional auth failed, serving anonymous",
						slog.String("path", c.Request().URL.Path),
						slog.Any("error", err),
					)
					return next(c)
				}
				m.logger.Error("identity materialization failed", slog.Any("error", err))
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
			WithIdentity(c, user)
			return next(c)
		}
	}
}

// authenticate runs verify-then-materialize. Credential failures keep
// their taxonomy sentinel; anything else is a store-side failure.
func (m *Middleware) authenticate(ctx context.Context, header string) (*identity.User, error) {
	if m.verifier == nil || m.users == nil {
		return nil, fmt.Errorf("auth middleware not configured")
	}
	claims, err := m.verifier.Verify(ctx, header)
	if err != nil {
		return nil, err
	}
	user, err := m.users.Materialize(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("materialize: %w", err)
	}
	return &user, nil
}
