package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/internal/store"
	"taskhub/pkg/logger"
)

// AdminHandler serves platform administration endpoints (SUPER_ADMIN only)
type AdminHandler struct {
	authz *service.Authorizer
	users *service.UserService
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(authz *service.Authorizer, users *service.UserService) *AdminHandler {
	return &AdminHandler{authz: authz, users: users}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := h.authz.RequireRole(c.Request().Context(), session.UserID, model.RoleSuperAdmin); err != nil {
		return respondError(c, err)
	}

	filter := store.ListUsersFilter{
		Role: model.Role(c.QueryParam("role")),
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		filter.Offset = offset
	}

	users, err := h.users.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (h *AdminHandler) UpdateUserRole(c echo.Context) error {
	log := logger.FromEcho(c)

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	caller, err := h.authz.RequireRole(c.Request().Context(), session.UserID, model.RoleSuperAdmin)
	if err != nil {
		return respondError(c, err)
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var req struct {
		Role model.Role `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.users.UpdateRole(c.Request().Context(), caller, uint(targetID), req.Role)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("User role updated",
		zap.Uint("caller_id", caller.ID),
		zap.Uint("target_id", user.ID),
		zap.String("role", string(req.Role)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
	})
}
