package users

import (
	"net/http"

	"campus-dispatch/internal/models"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware validates the session token and puts the resulting
// models.Session on the echo context under "session". Every core operation
// receives the session explicitly; nothing reads ambient auth state.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(models.SessionClaims)
		},
		SuccessHandler: func(c echo.Context) {
			token := c.Get("user").(*jwt.Token)
			claims := token.Claims.(*models.SessionClaims)
			c.Set("session", claims.Session())
		},
	})
}

// RequireFullAuth rejects sessions that have not satisfied their enrolled
// factors: a user with a verified second factor must hold an AAL2 token.
func RequireFullAuth(repo RepositoryInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, ok := c.Get("session").(models.Session)
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Not authenticated"})
			}
			user, err := repo.FindByID(c.Request().Context(), session.UserID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Not authenticated"})
			}
			if !session.FullyAuthenticated(user.MFAEnrolled) {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Second factor verification required"})
			}
			return next(c)
		}
	}
}
