package service

import (
	"context"
	"errors"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/store"
	"taskhub/prometheus"
)

// Authorizer evaluates global and organization-scoped role checks.
// The caller's role is always re-read from the database: impersonation
// changes the effective identity mid-session, so nothing cached in or
// derived from the session token can be trusted.
type Authorizer struct {
	users store.UserStore
	orgs  store.OrganizationStore
}

// NewAuthorizer creates an authorization engine
func NewAuthorizer(users store.UserStore, orgs store.OrganizationStore) *Authorizer {
	return &Authorizer{users: users, orgs: orgs}
}

// RequireRole checks the user's platform role against the allowed set.
// Membership is a strict set test: callers enumerate every allowed role.
func (a *Authorizer) RequireRole(ctx context.Context, userID uint, allowed ...model.Role) (*model.User, error) {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthenticated("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	for _, role := range allowed {
		if user.Role == role {
			return user, nil
		}
	}

	prometheus.RecordAuthzDenied("global_role")
	return nil, apperr.Forbidden("insufficient permissions")
}

// RequireOrgAccess resolves the organization by slug and checks the caller's
// membership role against the allowed set. A missing organization is 404 for
// everyone; an existing organization without membership is 403. Slugs are not
// secret, so the asymmetry leaks nothing.
func (a *Authorizer) RequireOrgAccess(ctx context.Context, userID uint, slug string, allowed ...model.OrgRole) (*model.Organization, *model.OrganizationMember, error) {
	org, err := a.orgs.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("organization not found")
		}
		return nil, nil, apperr.Internal("failed to load organization", err)
	}

	member, err := a.orgs.FindMember(ctx, org.ID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			prometheus.RecordAuthzDenied("membership")
			return nil, nil, apperr.Forbidden("not a member of this organization")
		}
		return nil, nil, apperr.Internal("failed to load membership", err)
	}

	for _, role := range allowed {
		if member.Role == role {
			return org, member, nil
		}
	}

	prometheus.RecordAuthzDenied("org_role")
	return nil, nil, apperr.Forbidden("insufficient organization role")
}
