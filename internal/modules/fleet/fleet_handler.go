package fleet

import (
	"errors"
	"net/http"

	"campus-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the device fleet.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate // For request body validation
}

// NewHandler creates a new fleet handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the fleet routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/fleet", h.ListDevices)
	g.POST("/fleet", h.RegisterDevice)
	g.PUT("/fleet/:deviceId/status", h.SetDeviceStatus)
	g.PUT("/fleet/:deviceId/location", h.UpdateDeviceLocation)
}

// ListDevices returns the fleet, optionally filtered by ?status= and a fuzzy
// ?search= over model and serial number. This also feeds the live map.
func (h *Handler) ListDevices(c echo.Context) error {
	filter := models.DeviceFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	devices, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		c.Logger().Error("Handler.ListDevices: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to list devices"})
	}
	return c.JSON(http.StatusOK, devices)
}

// RegisterDevice creates a new device with status available.
func (h *Handler) RegisterDevice(c echo.Context) error {
	session := c.Get("session").(models.Session)

	var req models.RegisterDeviceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	device, err := h.svc.Register(c.Request().Context(), session, req)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Capacity must be greater than zero"})
		}
		if errors.Is(err, models.ErrConflict) {
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "A device with this serial number already exists"})
		}
		c.Logger().Error("Handler.RegisterDevice: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to register device"})
	}
	return c.JSON(http.StatusCreated, device)
}

// SetDeviceStatus overwrites a device's status, e.g. for maintenance.
func (h *Handler) SetDeviceStatus(c echo.Context) error {
	session := c.Get("session").(models.Session)
	deviceID := c.Param("deviceId")

	var req models.DeviceStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	if err := h.svc.SetStatus(c.Request().Context(), session, deviceID, req.Status); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Device not found"})
		}
		c.Logger().Error("Handler.SetDeviceStatus: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update device"})
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateDeviceLocation records a position report for the live map.
func (h *Handler) UpdateDeviceLocation(c echo.Context) error {
	session := c.Get("session").(models.Session)
	deviceID := c.Param("deviceId")

	var req models.DeviceLocationUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	if err := h.svc.UpdateLocation(c.Request().Context(), session, deviceID, req); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Device not found"})
		}
		c.Logger().Error("Handler.UpdateDeviceLocation: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update device location"})
	}
	return c.NoContent(http.StatusNoContent)
}
