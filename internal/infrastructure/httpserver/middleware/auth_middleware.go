package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/ports"
	"github.com/updateme/engine/internal/infrastructure/httpserver/helpers"
)

type OpsAuthMiddleware struct {
	authService ports.OpsAuthService
	logger      *logrus.Logger
}

func NewOpsAuthMiddleware(authService ports.OpsAuthService, logger *logrus.Logger) *OpsAuthMiddleware {
	return &OpsAuthMiddleware{authService: authService, logger: logger}
}

// RequireOps validates the bearer token and sets the ops subject on the context.
func (m *OpsAuthMiddleware) RequireOps() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.authService == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "ops api disabled")
			}
			tokenString, err := helpers.GetBearerToken(c)
			if err != nil {
				return err
			}

			claims, err := m.authService.ValidateToken(tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("ops token validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			helpers.SetOpsSubject(c, claims.Subject)
			helpers.SetOpsRole(c, claims.Role)
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"subject": claims.Subject, "role": claims.Role}).Debug("ops token validated")
			}
			return next(c)
		}
	}
}
