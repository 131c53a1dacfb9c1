package requests

import (
	"errors"
	"net/http"

	"campus-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for delivery requests.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate // For request body validation
}

// NewHandler creates a new request handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the request routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/requests", h.ListRequests)
	g.POST("/requests", h.CreateRequest)
	g.PUT("/requests/:requestId/status", h.TransitionRequest)
	g.GET("/locations", h.ListLocations)
}

// ListRequests returns delivery requests newest first, optionally filtered by
// ?status= and a fuzzy ?search= over origin and destination.
func (h *Handler) ListRequests(c echo.Context) error {
	filter := models.RequestFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	out, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		c.Logger().Error("Handler.ListRequests: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to list requests"})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateRequest opens a new delivery request in pending status.
func (h *Handler) CreateRequest(c echo.Context) error {
	session := c.Get("session").(models.Session)

	var req models.CreateDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	created, err := h.svc.Create(c.Request().Context(), session, req)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Origin and destination must be distinct campus locations"})
		}
		if errors.Is(err, models.ErrNoCapableDevice) {
			return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: "No devices available with sufficient capacity for this weight"})
		}
		c.Logger().Error("Handler.CreateRequest: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to create request"})
	}
	return c.JSON(http.StatusCreated, created)
}

// TransitionRequest moves a request to a new status. Assigning picks a
// device; delivering frees it.
func (h *Handler) TransitionRequest(c echo.Context) error {
	session := c.Get("session").(models.Session)
	requestID := c.Param("requestId")

	var req models.TransitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	updated, err := h.svc.Transition(c.Request().Context(), session, requestID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
		case errors.Is(err, models.ErrNoAvailableDevice):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "No available devices with sufficient capacity"})
		case errors.Is(err, models.ErrInvalidTransition):
			return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: "Status transition not allowed"})
		case errors.Is(err, models.ErrForbidden):
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Only admins can force a status transition"})
		}
		c.Logger().Error("Handler.TransitionRequest: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update request"})
	}
	return c.JSON(http.StatusOK, updated)
}

// ListLocations returns the fixed set of campus pickup/dropoff points the
// console offers in its origin/destination selectors.
func (h *Handler) ListLocations(c echo.Context) error {
	return c.JSON(http.StatusOK, models.CampusLocations)
}
