package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/internal/store"
	"taskhub/pkg/config"
	"taskhub/pkg/logger"
	"taskhub/prometheus"
)

// ImpersonationHandler serves the impersonation start/stop/observability
// endpoints.
type ImpersonationHandler struct {
	authz *service.Authorizer
	imps  *service.ImpersonationService
	auth  *config.AuthConfig
}

// NewImpersonationHandler creates the impersonation handler
func NewImpersonationHandler(authz *service.Authorizer, imps *service.ImpersonationService, auth *config.AuthConfig) *ImpersonationHandler {
	return &ImpersonationHandler{authz: authz, imps: imps, auth: auth}
}

func (h *ImpersonationHandler) Start(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordImpersonation("start")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	admin, err := h.authz.RequireRole(c.Request().Context(), session.UserID, model.RoleSuperAdmin)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		UserID uint   `json:"userId"`
		Reason string `json:"reason,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId is required"})
	}

	entry, token, err := h.imps.Start(c.Request().Context(), admin.ID, service.StartImpersonationInput{
		TargetUserID: req.UserID,
		Reason:       req.Reason,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
	})
	if err != nil {
		return respondError(c, err)
	}

	setSessionCookie(c, h.auth, token, time.Now().Add(h.auth.SessionTTL))

	log.Info("Impersonation started",
		zap.Uint("admin_id", admin.ID),
		zap.Uint("target_user_id", entry.TargetUserID))

	return c.JSON(http.StatusOK, echo.Map{"session": entry})
}

// Stop is valid for any authenticated session: during impersonation the
// session's owner is the target, so role gating on the admin would lock the
// stop endpoint out. The service resolves the admin identity itself.
func (h *ImpersonationHandler) Stop(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordImpersonation("stop")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	token, err := h.imps.Stop(c.Request().Context(), session)
	if err != nil {
		return respondError(c, err)
	}

	// Orphan recovery closes the log without restoring a session; the
	// caller's cookie stays untouched.
	if token != "" {
		setSessionCookie(c, h.auth, token, time.Now().Add(h.auth.SessionTTL))
	}

	log.Info("Impersonation stopped", zap.Uint("session_user_id", session.UserID))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *ImpersonationHandler) Active(c echo.Context) error {
	prometheus.RecordImpersonation("active")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	admin, err := h.authz.RequireRole(c.Request().Context(), session.UserID, model.RoleSuperAdmin)
	if err != nil {
		return respondError(c, err)
	}

	entry, err := h.imps.Active(c.Request().Context(), admin.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"active":  entry != nil,
		"session": entry,
	})
}

func (h *ImpersonationHandler) Logs(c echo.Context) error {
	prometheus.RecordImpersonation("logs")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := h.authz.RequireRole(c.Request().Context(), session.UserID, model.RoleSuperAdmin); err != nil {
		return respondError(c, err)
	}

	filter := store.LogFilter{}
	if adminID, err := strconv.ParseUint(c.QueryParam("adminId"), 10, 32); err == nil {
		filter.AdminID = uint(adminID)
	}
	if targetID, err := strconv.ParseUint(c.QueryParam("targetUserId"), 10, 32); err == nil {
		filter.TargetUserID = uint(targetID)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		filter.Limit = limit
	}

	entries, err := h.imps.Logs(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"logs": entries})
}
