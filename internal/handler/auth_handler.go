package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskhub/internal/service"
	"taskhub/pkg/config"
	"taskhub/pkg/logger"
	"taskhub/prometheus"
)

// AuthHandler serves registration, login and logout
type AuthHandler struct {
	users    *service.UserService
	sessions *service.SessionService
	auth     *config.AuthConfig
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(users *service.UserService, sessions *service.SessionService, auth *config.AuthConfig) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, auth: auth}
}

func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.users.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		prometheus.RecordAuthError("registration_failed")
		return respondError(c, err)
	}

	log.Info("User registered", zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.users.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		prometheus.RecordAuthError("invalid_credentials")
		return respondError(c, err)
	}

	session, token, err := h.sessions.Issue(c.Request().Context(), user.ID, nil, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		prometheus.RecordAuthError("session_issuance_failed")
		return respondError(c, err)
	}

	setSessionCookie(c, h.auth, token, session.ExpiresAt)
	prometheus.IncreaseActiveSessions()

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	log := logger.FromEcho(c)

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.sessions.Revoke(c.Request().Context(), session.ID); err != nil {
		return respondError(c, err)
	}

	clearSessionCookie(c, h.auth)
	prometheus.DecreaseActiveSessions()

	log.Info("User logged out", zap.Uint("user_id", session.UserID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}
