package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/auth"
	"github.com/cardfolio/cardfolio/internal/cards"
	"github.com/cardfolio/cardfolio/internal/media"
	"github.com/cardfolio/cardfolio/internal/owner"
)

// CardsHandler exposes the card collection. Reads resolve their owner
// through the precedence chain so visitors can browse public and
// template collections; writes are always scoped to the caller.
type CardsHandler struct {
	cardService *cards.Service
	resolver    *owner.Resolver
	mediaStore  media.Store
	auth        *auth.Middleware
	logger      *slog.Logger
}

func NewCardsHandler(log *slog.Logger, cardService *cards.Service, resolver *owner.Resolver, mediaStore media.Store, authMW *auth.Middleware) *CardsHandler {
	return &CardsHandler{
		cardService: cardService,
		resolver:    resolver,
		mediaStore:  mediaStore,
		auth:        authMW,
		logger:      log.With(slog.String("handler", "cards")),
	}
}

func (h *CardsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/cards")
	group.GET("", h.List, h.auth.Optional())
	group.GET("/:id", h.Get, h.auth.Optional())
	group.POST("", h.Create, h.auth.Require())
	group.PUT("/:id", h.Update, h.auth.Require())
	group.DELETE("/:id", h.Delete, h.auth.Require())
}

// List returns the effective owner's cards. Owner selection follows
// the precedence chain: owner=template, then handle=, then the
// authenticated caller, then the template account.
func (h *CardsHandler) List(c echo.Context) error {
	subject, err := h.resolveOwner(c)
	if err != nil {
		return err
	}
	list, err := h.cardService.ListByOwner(c.Request().Context(), subject)
	if err != nil {
		h.logger.Error("list cards failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list cards")
	}
	return c.JSON(http.StatusOK, list)
}

// Get returns one card from the effective owner's collection.
func (h *CardsHandler) Get(c echo.Context) error {
	subject, err := h.resolveOwner(c)
	if err != nil {
		return err
	}
	card, err := h.cardService.Get(c.Request().Context(), subject, c.Param("id"))
	if err != nil {
		if errors.Is(err, cards.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "card not found")
		}
		h.logger.Error("get card failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load card")
	}
	return c.JSON(http.StatusOK, card)
}

// Create adds a card to the caller's collection.
func (h *CardsHandler) Create(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	var req cards.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	card, err := h.cardService.Create(c.Request().Context(), user.Subject, req)
	if err != nil {
		return h.writeError(c, err, "create card failed")
	}
	return c.JSON(http.StatusCreated, card)
}

// Update modifies a card in the caller's collection.
func (h *CardsHandler) Update(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	var req cards.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	card, err := h.cardService.Update(c.Request().Context(), user.Subject, c.Param("id"), req)
	if err != nil {
		return h.writeError(c, err, "update card failed")
	}
	return c.JSON(http.StatusOK, card)
}

// Delete removes a card from the caller's collection and releases its
// hosted image, if any. Image cleanup is best effort.
func (h *CardsHandler) Delete(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	card, err := h.cardService.Delete(c.Request().Context(), user.Subject, c.Param("id"))
	if err != nil {
		return h.writeError(c, err, "delete card failed")
	}
	if card.ImageKey != "" {
		if err := h.mediaStore.Delete(c.Request().Context(), card.ImageKey); err != nil {
			h.logger.Warn("failed to delete hosted image", "key", card.ImageKey, "error", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// resolveOwner turns the request's query parameters and identity into
// the subject whose collection is served.
func (h *CardsHandler) resolveOwner(c echo.Context) (string, error) {
	ident, _ := auth.IdentityFromContext(c)
	q := owner.Query{
		TemplateOverride: strings.EqualFold(c.QueryParam("owner"), owner.TemplateOverride),
		Handle:           c.QueryParam("handle"),
	}
	subject, err := h.resolver.Resolve(c.Request().Context(), q, ident)
	if err != nil {
		switch {
		case errors.Is(err, owner.ErrHandleNotFound):
			return "", echo.NewHTTPError(http.StatusNotFound, "user not found")
		case errors.Is(err, owner.ErrTemplateOwnerMissing):
			return "", echo.NewHTTPError(http.StatusNotFound, "no collection available")
		default:
			h.logger.Error("owner resolution failed", "error", err)
			return "", echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve owner")
		}
	}
	return subject, nil
}

func (h *CardsHandler) writeError(c echo.Context, err error, logMsg string) error {
	switch {
	case errors.Is(err, cards.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "card not found")
	case errors.Is(err, cards.ErrDuplicateTitle):
		return echo.NewHTTPError(http.StatusBadRequest, "a card with this title already exists")
	case errors.Is(err, cards.ErrTitleRequired), errors.Is(err, cards.ErrScoreOutOfRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(logMsg, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "card operation failed")
	}
}
