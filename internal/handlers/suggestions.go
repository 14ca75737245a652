package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/suggestions"
)

// SuggestionsHandler proxies title autocomplete to the games database.
// The route is public; the upstream API key never reaches the client.
type SuggestionsHandler struct {
	client *suggestions.Client
	logger *slog.Logger
}

func NewSuggestionsHandler(log *slog.Logger, client *suggestions.Client) *SuggestionsHandler {
	return &SuggestionsHandler{
		client: client,
		logger: log.With(slog.String("handler", "suggestions")),
	}
}

func (h *SuggestionsHandler) Register(e *echo.Echo) {
	e.GET("/api/suggestions", h.Search)
}

// Search returns autocomplete candidates for ?query=.
func (h *SuggestionsHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	results, err := h.client.Search(c.Request().Context(), query)
	if err != nil {
		if errors.Is(err, suggestions.ErrUpstream) {
			h.logger.Warn("suggestions upstream failed", "error", err)
			return echo.NewHTTPError(http.StatusBadGateway, "suggestions unavailable")
		}
		h.logger.Error("suggestions search failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch suggestions")
	}
	return c.JSON(http.StatusOK, results)
}
