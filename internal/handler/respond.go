package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/middleware"
	"taskhub/internal/model"
	"taskhub/pkg/config"
	"taskhub/pkg/logger"
)

// respondError maps a service error onto the JSON error body. 5xx causes are
// logged here so handlers don't repeat it.
func respondError(c echo.Context, err error) error {
	appErr := apperr.From(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("request failed",
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}
	return c.JSON(appErr.Status, appErr)
}

// requireSession returns the authenticated session or a 401 error
func requireSession(c echo.Context) (*model.Session, error) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return nil, apperr.Unauthenticated("authentication required")
	}
	return session, nil
}

// setSessionCookie propagates a freshly issued session token to the client
func setSessionCookie(c echo.Context, auth *config.AuthConfig, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie
func clearSessionCookie(c echo.Context, auth *config.AuthConfig) {
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
