package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/pkg/logger"
	"taskhub/prometheus"
)

// anyOrgRole is the allowed set for member-level read endpoints
var anyOrgRole = []model.OrgRole{model.OrgRoleOwner, model.OrgRoleAdmin, model.OrgRoleMember, model.OrgRoleGuest}

// OrganizationHandler serves organization CRUD, membership and invites
type OrganizationHandler struct {
	authz *service.Authorizer
	orgs  *service.OrganizationService
	users *service.UserService
}

// NewOrganizationHandler creates the organization handler
func NewOrganizationHandler(authz *service.Authorizer, orgs *service.OrganizationService, users *service.UserService) *OrganizationHandler {
	return &OrganizationHandler{authz: authz, orgs: orgs, users: users}
}

func (h *OrganizationHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("create")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var req service.CreateOrganizationInput
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse organization creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	org, err := h.orgs.Create(c.Request().Context(), session.UserID, req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Organization created",
		zap.String("slug", org.Slug),
		zap.Uint("id", org.ID),
		zap.Uint("owner_id", session.UserID))

	return c.JSON(http.StatusCreated, echo.Map{"organization": org})
}

func (h *OrganizationHandler) List(c echo.Context) error {
	prometheus.RecordOrgOperation("list")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	memberships, err := h.orgs.ListForUser(c.Request().Context(), session.UserID)
	if err != nil {
		return respondError(c, err)
	}

	type orgResponse struct {
		ID          uint          `json:"id"`
		Slug        string        `json:"slug"`
		Name        string        `json:"name"`
		Description string        `json:"description"`
		Role        model.OrgRole `json:"role"`
	}

	response := make([]orgResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, orgResponse{
			ID:          m.OrganizationID,
			Slug:        m.Organization.Slug,
			Name:        m.Organization.Name,
			Description: m.Organization.Description,
			Role:        m.Role,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"organizations": response})
}

func (h *OrganizationHandler) Get(c echo.Context) error {
	prometheus.RecordOrgOperation("access")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, member, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"), anyOrgRole...)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"organization": org,
		"role":         member.Role,
	})
}

func (h *OrganizationHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("update")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, _, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"),
		model.OrgRoleOwner, model.OrgRoleAdmin)
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdateOrganizationInput
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse organization update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updated, err := h.orgs.Update(c.Request().Context(), org, req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Organization updated", zap.Uint("id", updated.ID))
	return c.JSON(http.StatusOK, echo.Map{"organization": updated})
}

func (h *OrganizationHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("delete")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, _, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"),
		model.OrgRoleOwner)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.orgs.Delete(c.Request().Context(), session.UserID, org); err != nil {
		return respondError(c, err)
	}

	log.Info("Organization deleted",
		zap.Uint("id", org.ID),
		zap.String("slug", org.Slug))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *OrganizationHandler) ListMembers(c echo.Context) error {
	prometheus.RecordOrgOperation("list_members")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, _, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"), anyOrgRole...)
	if err != nil {
		return respondError(c, err)
	}

	members, err := h.orgs.ListMembers(c.Request().Context(), org.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"members": members})
}

func (h *OrganizationHandler) UpdateMemberRole(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("update_member_role")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, _, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"),
		model.OrgRoleOwner)
	if err != nil {
		return respondError(c, err)
	}

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var req struct {
		Role model.OrgRole `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	member, err := h.orgs.UpdateMemberRole(c.Request().Context(), session.UserID, org, uint(targetID), req.Role)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Member role updated",
		zap.Uint("organization_id", org.ID),
		zap.Uint64("target_user_id", targetID),
		zap.String("role", string(req.Role)))

	return c.JSON(http.StatusOK, echo.Map{"member": member})
}

func (h *OrganizationHandler) RemoveMember(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("remove_member")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, _, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"),
		model.OrgRoleOwner, model.OrgRoleAdmin)
	if err != nil {
		return respondError(c, err)
	}

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	if err := h.orgs.RemoveMember(c.Request().Context(), session.UserID, org, uint(targetID)); err != nil {
		return respondError(c, err)
	}

	log.Info("Member removed",
		zap.Uint("organization_id", org.ID),
		zap.Uint64("target_user_id", targetID))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *OrganizationHandler) ListInvites(c echo.Context) error {
	prometheus.RecordOrgOperation("list_invites")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, _, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"),
		model.OrgRoleOwner, model.OrgRoleAdmin)
	if err != nil {
		return respondError(c, err)
	}

	invites, err := h.orgs.ListInvites(c.Request().Context(), org.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"invites": invites})
}

func (h *OrganizationHandler) CreateInvite(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("invite")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	org, _, err := h.authz.RequireOrgAccess(c.Request().Context(), session.UserID, c.Param("slug"),
		model.OrgRoleOwner, model.OrgRoleAdmin)
	if err != nil {
		return respondError(c, err)
	}

	var req service.InviteMemberInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	invite, err := h.orgs.Invite(c.Request().Context(), org, req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Member invited",
		zap.Uint("organization_id", org.ID),
		zap.String("email", invite.Email),
		zap.String("role", string(invite.Role)))

	return c.JSON(http.StatusCreated, echo.Map{"invite": invite})
}

func (h *OrganizationHandler) AcceptInvite(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("accept_invite")

	session, err := requireSession(c)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.users.Get(c.Request().Context(), session.UserID)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	member, err := h.orgs.AcceptInvite(c.Request().Context(), user, req.Token)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Invite accepted",
		zap.Uint("organization_id", member.OrganizationID),
		zap.Uint("user_id", user.ID))

	return c.JSON(http.StatusOK, echo.Map{"member": member})
}
