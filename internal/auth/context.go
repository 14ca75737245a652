package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/identity"
)

// identityKey is the echo context key under which the materialized user
// record is stored for the lifetime of one request. Anonymous requests
// carry no value.
const identityKey = "cardfolio.identity"

// WithIdentity attaches the authenticated user record to the request.
func WithIdentity(c echo.Context, user *identity.User) {
	if user == nil {
		return
	}
	c.Set(identityKey, user)
}

// IdentityFromContext returns the authenticated user for this request,
// or false when the request is anonymous.
func IdentityFromContext(c echo.Context) (*identity.User, bool) {
	user, ok := c.Get(identityKey).(*identity.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// RequireIdentity returns the authenticated user or a 401. Mutating
// handlers use this as their only source of owner identity; query
// parameters never influence write scoping.
func RequireIdentity(c echo.Context) (*identity.User, error) {
	user, ok := IdentityFromContext(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return user, nil
}
