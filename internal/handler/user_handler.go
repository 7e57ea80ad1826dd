package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/pkg/logger"
	"taskhub/prometheus"
)

// UserHandler serves profile, onboarding and session self-management
type UserHandler struct {
	users    *service.UserService
	sessions *service.SessionService
	orgs     *service.OrganizationService
}

// NewUserHandler creates the user handler
func NewUserHandler(users *service.UserService, sessions *service.SessionService, orgs *service.OrganizationService) *UserHandler {
	return &UserHandler{users: users, sessions: sessions, orgs: orgs}
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.users.Get(c.Request().Context(), session.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	log := logger.FromEcho(c)

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse profile update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.users.UpdateName(c.Request().Context(), session.UserID, req.Name)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Profile updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

func (h *UserHandler) GetOnboarding(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.users.Get(c.Request().Context(), session.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"completed": user.OnboardingCompleted})
}

func (h *UserHandler) CompleteOnboarding(c echo.Context) error {
	return h.setOnboarding(c, true)
}

// SkipOnboarding marks onboarding as done without walking the flow
func (h *UserHandler) SkipOnboarding(c echo.Context) error {
	return h.setOnboarding(c, true)
}

func (h *UserHandler) RestartOnboarding(c echo.Context) error {
	return h.setOnboarding(c, false)
}

func (h *UserHandler) setOnboarding(c echo.Context, completed bool) error {
	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.users.SetOnboarding(c.Request().Context(), session.UserID, completed); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"completed": completed})
}

// SetCurrentOrganization stores the selected tenant on the session
func (h *UserHandler) SetCurrentOrganization(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("select_current")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		OrganizationID uint   `json:"organizationId"`
		Slug           string `json:"slug"`
	}
	if err := c.Bind(&req); err != nil || (req.Slug == "" && req.OrganizationID == 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organizationId or slug is required"})
	}

	var org *model.Organization
	if req.Slug != "" {
		org, err = h.orgs.SelectCurrent(c.Request().Context(), session, req.Slug)
	} else {
		org, err = h.orgs.SelectCurrentByID(c.Request().Context(), session, req.OrganizationID)
	}
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Current organization selected",
		zap.Uint("user_id", session.UserID),
		zap.String("slug", org.Slug))

	return c.JSON(http.StatusOK, echo.Map{
		"organization": map[string]interface{}{
			"id":   org.ID,
			"slug": org.Slug,
			"name": org.Name,
		},
	})
}

// RevokeSession destroys one of the caller's own sessions by ID
func (h *UserHandler) RevokeSession(c echo.Context) error {
	log := logger.FromEcho(c)

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session ID is required"})
	}

	if err := h.sessions.RevokeOwned(c.Request().Context(), session.UserID, sessionID); err != nil {
		return respondError(c, err)
	}

	log.Info("Session revoked",
		zap.Uint("user_id", session.UserID),
		zap.String("session_id", sessionID))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
