package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/mailer"
	"taskhub/internal/model"
	"taskhub/internal/store"
	"taskhub/pkg/logger"
	"taskhub/pkg/tokens"
)

// CreateOrganizationInput is the payload for organization creation
type CreateOrganizationInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// UpdateOrganizationInput is a partial patch; nil fields are left untouched
type UpdateOrganizationInput struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

// InviteMemberInput is the payload for inviting a member
type InviteMemberInput struct {
	Email string        `json:"email"`
	Role  model.OrgRole `json:"role,omitempty"`
}

// OrganizationService enforces membership and role invariants for
// organization mutation. Endpoint-level role gating happens in the
// Authorizer; this service owns the cross-row invariants (last owner,
// slug uniqueness, invite consumption).
type OrganizationService struct {
	orgs      store.OrganizationStore
	sessions  store.SessionStore
	audit     store.AuditStore
	mail      mailer.Mailer
	inviteTTL time.Duration
	now       func() time.Time
}

// NewOrganizationService creates an organization service
func NewOrganizationService(orgs store.OrganizationStore, sessions store.SessionStore, audit store.AuditStore, mail mailer.Mailer, inviteTTL time.Duration) *OrganizationService {
	return &OrganizationService{
		orgs:      orgs,
		sessions:  sessions,
		audit:     audit,
		mail:      mail,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}

// Create creates the organization with the creator as OWNER. Slug uniqueness
// is global; a duplicate surfaces as 409.
func (s *OrganizationService) Create(ctx context.Context, creatorID uint, input CreateOrganizationInput) (*model.Organization, error) {
	var issues []apperr.Issue
	if issue := validateOrgName(input.Name); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := validateSlug(input.Slug); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := validateDescription(input.Description); issue != nil {
		issues = append(issues, *issue)
	}
	if len(issues) > 0 {
		return nil, apperr.Validation("validation failed", issues...)
	}

	org := &model.Organization{
		Name:        input.Name,
		Slug:        input.Slug,
		Description: input.Description,
		Plan:        "free",
	}

	if err := s.orgs.CreateWithOwner(ctx, org, creatorID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("slug already in use")
		}
		return nil, apperr.Internal("failed to create organization", err)
	}

	return org, nil
}

// Update applies a partial patch to the organization
func (s *OrganizationService) Update(ctx context.Context, org *model.Organization, input UpdateOrganizationInput) (*model.Organization, error) {
	var issues []apperr.Issue
	patch := map[string]interface{}{}

	if input.Name != nil {
		if issue := validateOrgName(*input.Name); issue != nil {
			issues = append(issues, *issue)
		}
		patch["name"] = *input.Name
	}
	if input.Slug != nil {
		if issue := validateSlug(*input.Slug); issue != nil {
			issues = append(issues, *issue)
		}
		patch["slug"] = *input.Slug
	}
	if input.Description != nil {
		if issue := validateDescription(*input.Description); issue != nil {
			issues = append(issues, *issue)
		}
		patch["description"] = *input.Description
	}
	if len(issues) > 0 {
		return nil, apperr.Validation("validation failed", issues...)
	}

	updated, err := s.orgs.Update(ctx, org.ID, patch)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("slug already in use")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("organization not found")
		}
		return nil, apperr.Internal("failed to update organization", err)
	}
	return updated, nil
}

// Delete removes the organization, cascading memberships and invites
func (s *OrganizationService) Delete(ctx context.Context, actorID uint, org *model.Organization) error {
	if err := s.orgs.Delete(ctx, org.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("organization not found")
		}
		return apperr.Internal("failed to delete organization", err)
	}

	s.appendAudit(ctx, "organization.delete", actorID, &org.ID,
		fmt.Sprintf(`{"slug":%q,"name":%q}`, org.Slug, org.Name))
	return nil
}

// ListForUser returns the caller's memberships with their organizations
func (s *OrganizationService) ListForUser(ctx context.Context, userID uint) ([]model.OrganizationMember, error) {
	memberships, err := s.orgs.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list organizations", err)
	}
	return memberships, nil
}

// ListMembers returns the organization's members with user details
func (s *OrganizationService) ListMembers(ctx context.Context, orgID uint) ([]model.OrganizationMember, error) {
	members, err := s.orgs.ListMembers(ctx, orgID)
	if err != nil {
		return nil, apperr.Internal("failed to list members", err)
	}
	return members, nil
}

// Invite creates a single-use invitation and sends the notification
// best-effort.
func (s *OrganizationService) Invite(ctx context.Context, org *model.Organization, input InviteMemberInput) (*model.OrganizationInvite, error) {
	if issue := validateEmail(input.Email); issue != nil {
		return nil, apperr.Validation("validation failed", *issue)
	}
	if input.Role == "" {
		input.Role = model.OrgRoleMember
	}
	if !input.Role.Valid() {
		return nil, apperr.Validation("validation failed",
			apperr.Issue{Field: "role", Message: "is not a valid organization role"})
	}

	invite := &model.OrganizationInvite{
		OrganizationID: org.ID,
		Email:          strings.ToLower(input.Email),
		Role:           input.Role,
		Token:          tokens.NewInviteToken(),
		ExpiresAt:      s.now().Add(s.inviteTTL),
	}

	if err := s.orgs.CreateInvite(ctx, invite); err != nil {
		return nil, apperr.Internal("failed to create invite", err)
	}

	// Fire-and-forget: a failed notification must not abort the invite.
	if err := s.mail.SendInvite(ctx, invite.Email, org.Name, invite.Token); err != nil {
		logger.FromContext(ctx).Warn("failed to send invite email",
			zap.String("email", invite.Email), zap.Error(err))
	}

	return invite, nil
}

// ListInvites returns the organization's pending invitations
func (s *OrganizationService) ListInvites(ctx context.Context, orgID uint) ([]model.OrganizationInvite, error) {
	invites, err := s.orgs.ListInvites(ctx, orgID)
	if err != nil {
		return nil, apperr.Internal("failed to list invites", err)
	}
	return invites, nil
}

// AcceptInvite validates the token and converts the invite into a
// membership. The token exists, is unexpired and matches the accepting
// user's email case-insensitively, or acceptance fails with 400.
func (s *OrganizationService) AcceptInvite(ctx context.Context, user *model.User, token string) (*model.OrganizationMember, error) {
	if token == "" {
		return nil, apperr.BadRequest("invite token is required")
	}

	invite, err := s.orgs.FindInviteByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.BadRequest("invalid invite token")
		}
		return nil, apperr.Internal("failed to load invite", err)
	}

	if invite.Expired(s.now()) {
		return nil, apperr.BadRequest("invite has expired")
	}

	if !strings.EqualFold(invite.Email, user.Email) {
		return nil, apperr.BadRequest("invite was issued for a different email address")
	}

	member, err := s.orgs.ConsumeInvite(ctx, invite, user.ID)
	if err != nil {
		return nil, apperr.Internal("failed to accept invite", err)
	}
	return member, nil
}

// UpdateMemberRole changes a member's organization role. An organization
// must retain at least one OWNER, so demoting the last owner is rejected.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, actorID uint, org *model.Organization, targetUserID uint, newRole model.OrgRole) (*model.OrganizationMember, error) {
	if !newRole.Valid() {
		return nil, apperr.Validation("validation failed",
			apperr.Issue{Field: "role", Message: "is not a valid organization role"})
	}

	member, err := s.orgs.FindMember(ctx, org.ID, targetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("member not found")
		}
		return nil, apperr.Internal("failed to load member", err)
	}

	if member.Role == model.OrgRoleOwner && newRole != model.OrgRoleOwner {
		owners, err := s.orgs.CountOwners(ctx, org.ID)
		if err != nil {
			return nil, apperr.Internal("failed to count owners", err)
		}
		if owners <= 1 {
			return nil, apperr.Conflict("organization must retain at least one owner")
		}
	}

	updated, err := s.orgs.UpdateMemberRole(ctx, org.ID, targetUserID, newRole)
	if err != nil {
		return nil, apperr.Internal("failed to update member role", err)
	}

	s.appendAudit(ctx, "organization.member_role", actorID, &targetUserID,
		fmt.Sprintf(`{"organization_id":%d,"role":%q}`, org.ID, newRole))
	return updated, nil
}

// RemoveMember removes a member, refusing to remove the last OWNER
func (s *OrganizationService) RemoveMember(ctx context.Context, actorID uint, org *model.Organization, targetUserID uint) error {
	member, err := s.orgs.FindMember(ctx, org.ID, targetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("member not found")
		}
		return apperr.Internal("failed to load member", err)
	}

	if member.Role == model.OrgRoleOwner {
		owners, err := s.orgs.CountOwners(ctx, org.ID)
		if err != nil {
			return apperr.Internal("failed to count owners", err)
		}
		if owners <= 1 {
			return apperr.Conflict("organization must retain at least one owner")
		}
	}

	if err := s.orgs.RemoveMember(ctx, org.ID, targetUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("member not found")
		}
		return apperr.Internal("failed to remove member", err)
	}

	s.appendAudit(ctx, "organization.member_remove", actorID, &targetUserID,
		fmt.Sprintf(`{"organization_id":%d}`, org.ID))
	return nil
}

// SelectCurrent stores the organization as the session's tenant context
// after verifying membership.
func (s *OrganizationService) SelectCurrent(ctx context.Context, session *model.Session, slug string) (*model.Organization, error) {
	org, err := s.orgs.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("organization not found")
		}
		return nil, apperr.Internal("failed to load organization", err)
	}
	return s.selectCurrent(ctx, session, org)
}

// SelectCurrentByID is SelectCurrent keyed by organization ID
func (s *OrganizationService) SelectCurrentByID(ctx context.Context, session *model.Session, orgID uint) (*model.Organization, error) {
	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("organization not found")
		}
		return nil, apperr.Internal("failed to load organization", err)
	}
	return s.selectCurrent(ctx, session, org)
}

func (s *OrganizationService) selectCurrent(ctx context.Context, session *model.Session, org *model.Organization) (*model.Organization, error) {
	if _, err := s.orgs.FindMember(ctx, org.ID, session.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Forbidden("not a member of this organization")
		}
		return nil, apperr.Internal("failed to load membership", err)
	}

	if err := s.sessions.SetCurrentOrganization(ctx, session.ID, &org.ID); err != nil {
		return nil, apperr.Internal("failed to update session", err)
	}
	return org, nil
}

func (s *OrganizationService) appendAudit(ctx context.Context, action string, actorID uint, targetID *uint, metadata string) {
	entry := &model.AuditLog{
		Action:   action,
		ActorID:  actorID,
		TargetID: targetID,
		Metadata: metadata,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		logger.FromContext(ctx).Warn("failed to append audit log",
			zap.String("action", action), zap.Error(err))
	}
}
