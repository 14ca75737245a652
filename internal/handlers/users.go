package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/auth"
	"github.com/cardfolio/cardfolio/internal/identity"
)

// UsersHandler exposes the caller's profile and public handle lookups.
type UsersHandler struct {
	userService *identity.Service
	auth        *auth.Middleware
	logger      *slog.Logger
}

func NewUsersHandler(log *slog.Logger, userService *identity.Service, authMW *auth.Middleware) *UsersHandler {
	return &UsersHandler{
		userService: userService,
		auth:        authMW,
		logger:      log.With(slog.String("handler", "users")),
	}
}

func (h *UsersHandler) Register(e *echo.Echo) {
	group := e.Group("/api/users")
	group.GET("/me", h.Me, h.auth.Require())
	group.PUT("/me/handle", h.ClaimHandle, h.auth.Require())
	group.GET("/check-handle", h.CheckHandle)
	group.GET("/by-handle/:handle", h.ByHandle)
}

// Me returns the caller's profile. The strict middleware has already
// materialized the record, so this never misses.
func (h *UsersHandler) Me(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

type claimHandleRequest struct {
	Handle string `json:"handle"`
}

// ClaimHandle sets or changes the caller's public handle.
func (h *UsersHandler) ClaimHandle(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	var req claimHandleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.userService.ClaimHandle(c.Request().Context(), user.Subject, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrHandleInvalid):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrHandleTaken):
			return echo.NewHTTPError(http.StatusConflict, "handle is already taken")
		default:
			h.logger.Error("claim handle failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to claim handle")
		}
	}
	return c.JSON(http.StatusOK, updated)
}

// CheckHandle reports whether a handle is free to claim.
func (h *UsersHandler) CheckHandle(c echo.Context) error {
	handle := c.QueryParam("handle")
	if handle == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "handle is required")
	}
	available, err := h.userService.HandleAvailable(c.Request().Context(), handle)
	if err != nil {
		if errors.Is(err, identity.ErrHandleInvalid) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Error("check handle failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check handle")
	}
	return c.JSON(http.StatusOK, map[string]bool{"available": available})
}

// publicProfile is the subset of a user record safe to show to anyone.
type publicProfile struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// ByHandle returns the public profile behind a handle.
func (h *UsersHandler) ByHandle(c echo.Context) error {
	user, err := h.userService.ByHandle(c.Request().Context(), c.Param("handle"))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		h.logger.Error("lookup by handle failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up user")
	}
	return c.JSON(http.StatusOK, publicProfile{
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	})
}
