package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/auth"
	"github.com/cardfolio/cardfolio/internal/media"
)

// MediaHandler lets clients release hosted images they uploaded but
// never attached to a card (for example after cancelling a form).
type MediaHandler struct {
	store  media.Store
	auth   *auth.Middleware
	logger *slog.Logger
}

func NewMediaHandler(log *slog.Logger, store media.Store, authMW *auth.Middleware) *MediaHandler {
	return &MediaHandler{
		store:  store,
		auth:   authMW,
		logger: log.With(slog.String("handler", "media")),
	}
}

func (h *MediaHandler) Register(e *echo.Echo) {
	e.POST("/api/images/delete", h.Delete, h.auth.Require())
}

type deleteImageRequest struct {
	Key string `json:"key"`
}

// Delete removes a hosted image by key.
func (h *MediaHandler) Delete(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	var req deleteImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}
	if err := h.store.Delete(c.Request().Context(), key); err != nil {
		h.logger.Error("delete image failed", "subject", user.Subject, "key", key, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete image")
	}
	return c.NoContent(http.StatusNoContent)
}
