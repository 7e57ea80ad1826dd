package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/pkg/logger"
	"taskhub/prometheus"
)

const sessionContextKey = "session"

// SessionAuth resolves the session cookie (or bearer token) to a live
// server-side session. The session row is the only identity source; no role
// or user data is trusted from the token itself.
func SessionAuth(sessions *service.SessionService, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			tokenString := ""
			if cookie, err := c.Cookie(cookieName); err == nil {
				tokenString = cookie.Value
			}
			if tokenString == "" {
				authHeader := c.Request().Header.Get("Authorization")
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = parts[1]
				}
			}
			if tokenString == "" {
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			session, err := sessions.Resolve(c.Request().Context(), tokenString)
			if err != nil {
				log.Debug("session resolution failed", zap.Error(err))
				prometheus.RecordAuthError("invalid_session")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
			}

			c.Set(sessionContextKey, session)
			c.Set("user_id", session.UserID)

			return next(c)
		}
	}
}

// SessionFromContext returns the session set by SessionAuth
func SessionFromContext(c echo.Context) (*model.Session, bool) {
	session, ok := c.Get(sessionContextKey).(*model.Session)
	return session, ok
}
