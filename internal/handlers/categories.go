package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cardfolio/cardfolio/internal/auth"
	"github.com/cardfolio/cardfolio/internal/categories"
	"github.com/cardfolio/cardfolio/internal/owner"
)

// CategoriesHandler exposes per-owner categories. Reads use the same
// owner precedence as cards so a visitor sees the labels of the
// collection they are browsing.
type CategoriesHandler struct {
	categoryService *categories.Service
	resolver        *owner.Resolver
	auth            *auth.Middleware
	logger          *slog.Logger
}

func NewCategoriesHandler(log *slog.Logger, categoryService *categories.Service, resolver *owner.Resolver, authMW *auth.Middleware) *CategoriesHandler {
	return &CategoriesHandler{
		categoryService: categoryService,
		resolver:        resolver,
		auth:            authMW,
		logger:          log.With(slog.String("handler", "categories")),
	}
}

func (h *CategoriesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/categories")
	group.GET("", h.List, h.auth.Optional())
	group.POST("", h.Create, h.auth.Require())
	group.PUT("/:id", h.Rename, h.auth.Require())
	group.DELETE("/:id", h.Delete, h.auth.Require())
}

// List returns the effective owner's categories.
func (h *CategoriesHandler) List(c echo.Context) error {
	ident, _ := auth.IdentityFromContext(c)
	q := owner.Query{
		TemplateOverride: strings.EqualFold(c.QueryParam("owner"), owner.TemplateOverride),
		Handle:           c.QueryParam("handle"),
	}
	subject, err := h.resolver.Resolve(c.Request().Context(), q, ident)
	if err != nil {
		switch {
		case errors.Is(err, owner.ErrHandleNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		case errors.Is(err, owner.ErrTemplateOwnerMissing):
			return echo.NewHTTPError(http.StatusNotFound, "no collection available")
		default:
			h.logger.Error("owner resolution failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve owner")
		}
	}
	list, err := h.categoryService.ListByOwner(c.Request().Context(), subject)
	if err != nil {
		h.logger.Error("list categories failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list categories")
	}
	return c.JSON(http.StatusOK, list)
}

// Create adds a category for the caller.
func (h *CategoriesHandler) Create(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	var req categories.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cat, err := h.categoryService.Create(c.Request().Context(), user.Subject, req)
	if err != nil {
		if errors.Is(err, categories.ErrNameRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Error("create category failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create category")
	}
	return c.JSON(http.StatusCreated, cat)
}

// Rename changes a category's name.
func (h *CategoriesHandler) Rename(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	var req categories.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cat, err := h.categoryService.Rename(c.Request().Context(), user.Subject, c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, categories.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		case errors.Is(err, categories.ErrNameRequired):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("rename category failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to rename category")
		}
	}
	return c.JSON(http.StatusOK, cat)
}

// Delete removes a category and detaches it from the caller's cards.
func (h *CategoriesHandler) Delete(c echo.Context) error {
	user, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	if err := h.categoryService.Delete(c.Request().Context(), user.Subject, c.Param("id")); err != nil {
		if errors.Is(err, categories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		h.logger.Error("delete category failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete category")
	}
	return c.NoContent(http.StatusNoContent)
}
