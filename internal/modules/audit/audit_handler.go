package audit

import (
	"net/http"
	"strconv"
	"time"

	"campus-dispatch/internal/models"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the audit trail.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new audit handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the audit routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit", h.ListEntries)
}

// ListEntries returns audit entries newest first, filtered by the optional
// action, from, to and search query parameters.
func (h *Handler) ListEntries(c echo.Context) error {
	filter := models.AuditFilter{
		Action: c.QueryParam("action"),
		Search: c.QueryParam("search"),
	}

	if fromStr := c.QueryParam("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid 'from' timestamp"})
		}
		filter.From = t
	}
	if toStr := c.QueryParam("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid 'to' timestamp"})
		}
		filter.To = t
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o > 0 {
			filter.Offset = o
		}
	}

	entries, err := h.svc.Query(c.Request().Context(), filter)
	if err != nil {
		c.Logger().Error("Handler.ListEntries: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to query audit log"})
	}
	return c.JSON(http.StatusOK, entries)
}
