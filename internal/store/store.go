package store

import (
	"context"
	"time"

	"taskhub/internal/model"
)

// ListUsersFilter narrows the admin user listing
type ListUsersFilter struct {
	Role   model.Role
	Limit  int
	Offset int
}

// LogFilter narrows impersonation audit queries
type LogFilter struct {
	AdminID      uint
	TargetUserID uint
	Limit        int
}

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, id uint, role model.Role) (*model.User, error)
	UpdateName(ctx context.Context, id uint, name string) (*model.User, error)
	SetOnboardingCompleted(ctx context.Context, id uint, completed bool) error
	List(ctx context.Context, filter ListUsersFilter) ([]model.User, error)
}

// SessionStore persists server-side sessions
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	SetCurrentOrganization(ctx context.Context, id string, organizationID *uint) error
}

// OrganizationStore persists organizations, memberships and invites
type OrganizationStore interface {
	// CreateWithOwner creates the organization and the creator's OWNER
	// membership in one transaction.
	CreateWithOwner(ctx context.Context, org *model.Organization, ownerID uint) error
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)
	FindByID(ctx context.Context, id uint) (*model.Organization, error)
	Update(ctx context.Context, id uint, patch map[string]interface{}) (*model.Organization, error)
	// Delete removes the organization and cascades memberships and invites.
	Delete(ctx context.Context, id uint) error

	ListForUser(ctx context.Context, userID uint) ([]model.OrganizationMember, error)
	FindMember(ctx context.Context, orgID, userID uint) (*model.OrganizationMember, error)
	ListMembers(ctx context.Context, orgID uint) ([]model.OrganizationMember, error)
	UpdateMemberRole(ctx context.Context, orgID, userID uint, role model.OrgRole) (*model.OrganizationMember, error)
	RemoveMember(ctx context.Context, orgID, userID uint) error
	CountOwners(ctx context.Context, orgID uint) (int64, error)

	CreateInvite(ctx context.Context, invite *model.OrganizationInvite) error
	FindInviteByToken(ctx context.Context, token string) (*model.OrganizationInvite, error)
	ListInvites(ctx context.Context, orgID uint) ([]model.OrganizationInvite, error)
	// ConsumeInvite upserts the membership and deletes the invite row in one
	// transaction, making the token single use.
	ConsumeInvite(ctx context.Context, invite *model.OrganizationInvite, userID uint) (*model.OrganizationMember, error)
}

// ImpersonationStore persists impersonation audit logs
type ImpersonationStore interface {
	// Open closes any stale active log for the admin and creates the new one.
	// The whole sequence runs under a per-admin lock so concurrent starts
	// cannot both observe "no active log". Returns the number of stale logs
	// closed on the way in.
	Open(ctx context.Context, entry *model.ImpersonationLog) (int64, error)
	// Close ends the active log for the admin, if any. Returns the number of
	// rows closed; closing when nothing is open is not an error.
	Close(ctx context.Context, adminID uint, endedAt time.Time) (int64, error)
	ActiveByAdmin(ctx context.Context, adminID uint) (*model.ImpersonationLog, error)
	ActiveByTarget(ctx context.Context, targetUserID uint) (*model.ImpersonationLog, error)
	List(ctx context.Context, filter LogFilter) ([]model.ImpersonationLog, error)
}

// AuditStore appends audit trail rows
type AuditStore interface {
	Append(ctx context.Context, entry *model.AuditLog) error
}
