package handler

import (
	"context"
	"strings"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/store"
)

// Minimal in-memory stores for handler tests. Handlers are exercised with
// real services wired over these.

type stubUsers struct {
	byID   map[uint]*model.User
	nextID uint
}

func newStubUsers(users ...*model.User) *stubUsers {
	f := &stubUsers{byID: map[uint]*model.User{}, nextID: 1}
	for _, u := range users {
		if u.ID == 0 {
			u.ID = f.nextID
		}
		if u.ID >= f.nextID {
			f.nextID = u.ID + 1
		}
		f.byID[u.ID] = u
	}
	return f
}

func (f *stubUsers) Create(ctx context.Context, user *model.User) error {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrDuplicate
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.byID[user.ID] = user
	return nil
}

func (f *stubUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *stubUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *stubUsers) UpdateRole(ctx context.Context, id uint, role model.Role) (*model.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.Role = role
	return user, nil
}

func (f *stubUsers) UpdateName(ctx context.Context, id uint, name string) (*model.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.Name = name
	return user, nil
}

func (f *stubUsers) SetOnboardingCompleted(ctx context.Context, id uint, completed bool) error {
	user, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.OnboardingCompleted = completed
	return nil
}

func (f *stubUsers) List(ctx context.Context, filter store.ListUsersFilter) ([]model.User, error) {
	var users []model.User
	for _, u := range f.byID {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

type stubSessions struct {
	byID map[string]*model.Session
}

func newStubSessions() *stubSessions {
	return &stubSessions{byID: map[string]*model.Session{}}
}

func (f *stubSessions) Create(ctx context.Context, session *model.Session) error {
	f.byID[session.ID] = session
	return nil
}

func (f *stubSessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return session, nil
}

func (f *stubSessions) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *stubSessions) SetCurrentOrganization(ctx context.Context, id string, organizationID *uint) error {
	session, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	session.CurrentOrganizationID = organizationID
	return nil
}

func (f *stubSessions) forUser(userID uint) *model.Session {
	for _, s := range f.byID {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

type stubImpersonation struct {
	logs   []*model.ImpersonationLog
	nextID uint
}

func (f *stubImpersonation) Open(ctx context.Context, entry *model.ImpersonationLog) (int64, error) {
	var staleClosed int64
	for _, l := range f.logs {
		if l.AdminID == entry.AdminID && l.EndedAt == nil {
			ended := entry.StartedAt
			l.EndedAt = &ended
			staleClosed++
		}
	}
	f.nextID++
	entry.ID = f.nextID
	f.logs = append(f.logs, entry)
	return staleClosed, nil
}

func (f *stubImpersonation) Close(ctx context.Context, adminID uint, endedAt time.Time) (int64, error) {
	var closed int64
	for _, l := range f.logs {
		if l.AdminID == adminID && l.EndedAt == nil {
			ended := endedAt
			l.EndedAt = &ended
			closed++
		}
	}
	return closed, nil
}

func (f *stubImpersonation) ActiveByAdmin(ctx context.Context, adminID uint) (*model.ImpersonationLog, error) {
	for _, l := range f.logs {
		if l.AdminID == adminID && l.EndedAt == nil {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *stubImpersonation) ActiveByTarget(ctx context.Context, targetUserID uint) (*model.ImpersonationLog, error) {
	for _, l := range f.logs {
		if l.TargetUserID == targetUserID && l.EndedAt == nil {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *stubImpersonation) List(ctx context.Context, filter store.LogFilter) ([]model.ImpersonationLog, error) {
	var entries []model.ImpersonationLog
	for i := len(f.logs) - 1; i >= 0; i-- {
		l := f.logs[i]
		if filter.AdminID != 0 && l.AdminID != filter.AdminID {
			continue
		}
		if filter.TargetUserID != 0 && l.TargetUserID != filter.TargetUserID {
			continue
		}
		entries = append(entries, *l)
		if filter.Limit > 0 && len(entries) >= filter.Limit {
			break
		}
	}
	return entries, nil
}

// stubOrgs satisfies store.OrganizationStore for handlers that never touch
// organizations.
type stubOrgs struct{}

func (stubOrgs) CreateWithOwner(ctx context.Context, org *model.Organization, ownerID uint) error {
	return store.ErrNotFound
}
func (stubOrgs) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	return nil, store.ErrNotFound
}
func (stubOrgs) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	return nil, store.ErrNotFound
}
func (stubOrgs) Update(ctx context.Context, id uint, patch map[string]interface{}) (*model.Organization, error) {
	return nil, store.ErrNotFound
}
func (stubOrgs) Delete(ctx context.Context, id uint) error { return store.ErrNotFound }
func (stubOrgs) ListForUser(ctx context.Context, userID uint) ([]model.OrganizationMember, error) {
	return nil, nil
}
func (stubOrgs) FindMember(ctx context.Context, orgID, userID uint) (*model.OrganizationMember, error) {
	return nil, store.ErrNotFound
}
func (stubOrgs) ListMembers(ctx context.Context, orgID uint) ([]model.OrganizationMember, error) {
	return nil, nil
}
func (stubOrgs) UpdateMemberRole(ctx context.Context, orgID, userID uint, role model.OrgRole) (*model.OrganizationMember, error) {
	return nil, store.ErrNotFound
}
func (stubOrgs) RemoveMember(ctx context.Context, orgID, userID uint) error {
	return store.ErrNotFound
}
func (stubOrgs) CountOwners(ctx context.Context, orgID uint) (int64, error) { return 0, nil }
func (stubOrgs) CreateInvite(ctx context.Context, invite *model.OrganizationInvite) error {
	return nil
}
func (stubOrgs) FindInviteByToken(ctx context.Context, token string) (*model.OrganizationInvite, error) {
	return nil, store.ErrNotFound
}
func (stubOrgs) ListInvites(ctx context.Context, orgID uint) ([]model.OrganizationInvite, error) {
	return nil, nil
}
func (stubOrgs) ConsumeInvite(ctx context.Context, invite *model.OrganizationInvite, userID uint) (*model.OrganizationMember, error) {
	return nil, store.ErrNotFound
}

type stubAudit struct {
	entries []*model.AuditLog
}

func (f *stubAudit) Append(ctx context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}
