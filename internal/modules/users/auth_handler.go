package users

import (
	"errors"
	"net/http"

	"campus-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for authentication and factor management.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate // For request body validation
}

// NewHandler creates a new auth handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes mounts the unauthenticated sign-in routes.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/verify", h.VerifyChallenge)
}

// RegisterRoutes mounts the routes that require a session.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/auth/me", h.Me)
	g.POST("/auth/factors", h.EnrollFactor)
	g.DELETE("/auth/factors", h.UnenrollFactor)
}

// Login signs a user in. When a second factor is enrolled the response
// carries a challenge id instead of a token.
func (h *Handler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	resp, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid email or password"})
		}
		c.Logger().Error("Handler.Login: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to sign in"})
	}
	return c.JSON(http.StatusOK, resp)
}

// VerifyChallenge completes a login or enrollment with an emailed code.
func (h *Handler) VerifyChallenge(c echo.Context) error {
	var req models.VerifyChallengeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	resp, err := h.svc.VerifyChallenge(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrChallengeExpired) {
			return c.JSON(http.StatusGone, models.ErrorResponse{Message: "Verification code expired, sign in again"})
		}
		if errors.Is(err, models.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Incorrect verification code"})
		}
		c.Logger().Error("Handler.VerifyChallenge: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to verify code"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Me returns the signed-in account.
func (h *Handler) Me(c echo.Context) error {
	session := c.Get("session").(models.Session)
	user, err := h.svc.Me(c.Request().Context(), session)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Account not found"})
		}
		c.Logger().Error("Handler.Me: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to load account"})
	}
	return c.JSON(http.StatusOK, user)
}

// EnrollFactor starts email-code second-factor enrollment.
func (h *Handler) EnrollFactor(c echo.Context) error {
	session := c.Get("session").(models.Session)
	challengeID, err := h.svc.EnrollFactor(c.Request().Context(), session)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "A second factor is already enrolled"})
		}
		c.Logger().Error("Handler.EnrollFactor: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to start enrollment"})
	}
	return c.JSON(http.StatusOK, map[string]string{"challenge_id": challengeID})
}

// UnenrollFactor removes the enrolled second factor.
func (h *Handler) UnenrollFactor(c echo.Context) error {
	session := c.Get("session").(models.Session)
	if err := h.svc.UnenrollFactor(c.Request().Context(), session); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Account not found"})
		}
		c.Logger().Error("Handler.UnenrollFactor: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to remove factor"})
	}
	return c.NoContent(http.StatusNoContent)
}
