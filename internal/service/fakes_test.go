package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/store"
)

// In-memory store fakes for service tests. Error injection via the err
// fields; all maps are keyed the way the real store queries them.

type fakeUsers struct {
	byID   map[uint]*model.User
	err    error
	nextID uint
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint]*model.User{}, nextID: 1}
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

func (f *fakeUsers) Create(ctx context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
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

func (f *fakeUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) UpdateRole(ctx context.Context, id uint, role model.Role) (*model.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.Role = role
	copy := *user
	return &copy, nil
}

func (f *fakeUsers) UpdateName(ctx context.Context, id uint, name string) (*model.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.Name = name
	copy := *user
	return &copy, nil
}

func (f *fakeUsers) SetOnboardingCompleted(ctx context.Context, id uint, completed bool) error {
	user, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.OnboardingCompleted = completed
	return nil
}

func (f *fakeUsers) List(ctx context.Context, filter store.ListUsersFilter) ([]model.User, error) {
	var users []model.User
	for _, u := range f.byID {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

type fakeImpersonation struct {
	logs    []*model.ImpersonationLog
	openErr error
	nextID  uint
}

func (f *fakeImpersonation) Open(ctx context.Context, entry *model.ImpersonationLog) (int64, error) {
	if f.openErr != nil {
		return 0, f.openErr
	}
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

func (f *fakeImpersonation) Close(ctx context.Context, adminID uint, endedAt time.Time) (int64, error) {
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

func (f *fakeImpersonation) ActiveByAdmin(ctx context.Context, adminID uint) (*model.ImpersonationLog, error) {
	for _, l := range f.logs {
		if l.AdminID == adminID && l.EndedAt == nil {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeImpersonation) ActiveByTarget(ctx context.Context, targetUserID uint) (*model.ImpersonationLog, error) {
	for _, l := range f.logs {
		if l.TargetUserID == targetUserID && l.EndedAt == nil {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeImpersonation) List(ctx context.Context, filter store.LogFilter) ([]model.ImpersonationLog, error) {
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

// activeCount is a test helper checking the exclusivity invariant
func (f *fakeImpersonation) activeCount(adminID uint) int {
	count := 0
	for _, l := range f.logs {
		if l.AdminID == adminID && l.EndedAt == nil {
			count++
		}
	}
	return count
}

type fakeIssuer struct {
	issueErr error
	issued   []*model.Session
	revoked  []string
}

func (f *fakeIssuer) Issue(ctx context.Context, userID uint, impersonatedBy *uint, ip, userAgent string) (*model.Session, string, error) {
	if f.issueErr != nil {
		return nil, "", f.issueErr
	}
	session := &model.Session{
		ID:             "sess-new",
		UserID:         userID,
		ImpersonatedBy: impersonatedBy,
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	f.issued = append(f.issued, session)
	return session, "token-" + session.ID, nil
}

func (f *fakeIssuer) Revoke(ctx context.Context, sessionID string) error {
	f.revoked = append(f.revoked, sessionID)
	return nil
}

type memberKey struct {
	orgID  uint
	userID uint
}

type fakeOrgs struct {
	orgs    map[uint]*model.Organization
	bySlug  map[string]uint
	members map[memberKey]*model.OrganizationMember
	invites map[string]*model.OrganizationInvite
	nextID  uint
}

func newFakeOrgs() *fakeOrgs {
	return &fakeOrgs{
		orgs:    map[uint]*model.Organization{},
		bySlug:  map[string]uint{},
		members: map[memberKey]*model.OrganizationMember{},
		invites: map[string]*model.OrganizationInvite{},
	}
}

func (f *fakeOrgs) addOrg(slug string, members map[uint]model.OrgRole) *model.Organization {
	f.nextID++
	org := &model.Organization{ID: f.nextID, Slug: slug, Name: slug}
	f.orgs[org.ID] = org
	f.bySlug[slug] = org.ID
	for userID, role := range members {
		f.members[memberKey{org.ID, userID}] = &model.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           role,
		}
	}
	return org
}

func (f *fakeOrgs) CreateWithOwner(ctx context.Context, org *model.Organization, ownerID uint) error {
	if _, exists := f.bySlug[org.Slug]; exists {
		return store.ErrDuplicate
	}
	f.nextID++
	org.ID = f.nextID
	f.orgs[org.ID] = org
	f.bySlug[org.Slug] = org.ID
	f.members[memberKey{org.ID, ownerID}] = &model.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         ownerID,
		Role:           model.OrgRoleOwner,
	}
	return nil
}

func (f *fakeOrgs) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	id, ok := f.bySlug[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.orgs[id], nil
}

func (f *fakeOrgs) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return org, nil
}

func (f *fakeOrgs) Update(ctx context.Context, id uint, patch map[string]interface{}) (*model.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if slug, ok := patch["slug"].(string); ok {
		if existing, exists := f.bySlug[slug]; exists && existing != id {
			return nil, store.ErrDuplicate
		}
		delete(f.bySlug, org.Slug)
		org.Slug = slug
		f.bySlug[slug] = id
	}
	if name, ok := patch["name"].(string); ok {
		org.Name = name
	}
	if description, ok := patch["description"].(string); ok {
		org.Description = description
	}
	return org, nil
}

func (f *fakeOrgs) Delete(ctx context.Context, id uint) error {
	org, ok := f.orgs[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(f.bySlug, org.Slug)
	delete(f.orgs, id)
	for key := range f.members {
		if key.orgID == id {
			delete(f.members, key)
		}
	}
	for token, invite := range f.invites {
		if invite.OrganizationID == id {
			delete(f.invites, token)
		}
	}
	return nil
}

func (f *fakeOrgs) ListForUser(ctx context.Context, userID uint) ([]model.OrganizationMember, error) {
	var memberships []model.OrganizationMember
	for key, m := range f.members {
		if key.userID == userID {
			membership := *m
			membership.Organization = *f.orgs[key.orgID]
			memberships = append(memberships, membership)
		}
	}
	return memberships, nil
}

func (f *fakeOrgs) FindMember(ctx context.Context, orgID, userID uint) (*model.OrganizationMember, error) {
	member, ok := f.members[memberKey{orgID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	copy := *member
	return &copy, nil
}

func (f *fakeOrgs) ListMembers(ctx context.Context, orgID uint) ([]model.OrganizationMember, error) {
	var members []model.OrganizationMember
	for key, m := range f.members {
		if key.orgID == orgID {
			members = append(members, *m)
		}
	}
	return members, nil
}

func (f *fakeOrgs) UpdateMemberRole(ctx context.Context, orgID, userID uint, role model.OrgRole) (*model.OrganizationMember, error) {
	member, ok := f.members[memberKey{orgID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	member.Role = role
	copy := *member
	return &copy, nil
}

func (f *fakeOrgs) RemoveMember(ctx context.Context, orgID, userID uint) error {
	key := memberKey{orgID, userID}
	if _, ok := f.members[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.members, key)
	return nil
}

func (f *fakeOrgs) CountOwners(ctx context.Context, orgID uint) (int64, error) {
	var count int64
	for key, m := range f.members {
		if key.orgID == orgID && m.Role == model.OrgRoleOwner {
			count++
		}
	}
	return count, nil
}

func (f *fakeOrgs) CreateInvite(ctx context.Context, invite *model.OrganizationInvite) error {
	f.nextID++
	invite.ID = f.nextID
	f.invites[invite.Token] = invite
	return nil
}

func (f *fakeOrgs) FindInviteByToken(ctx context.Context, token string) (*model.OrganizationInvite, error) {
	invite, ok := f.invites[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	copy := *invite
	return &copy, nil
}

func (f *fakeOrgs) ListInvites(ctx context.Context, orgID uint) ([]model.OrganizationInvite, error) {
	var invites []model.OrganizationInvite
	for _, invite := range f.invites {
		if invite.OrganizationID == orgID {
			invites = append(invites, *invite)
		}
	}
	return invites, nil
}

func (f *fakeOrgs) ConsumeInvite(ctx context.Context, invite *model.OrganizationInvite, userID uint) (*model.OrganizationMember, error) {
	key := memberKey{invite.OrganizationID, userID}
	member, ok := f.members[key]
	if ok {
		member.Role = invite.Role
	} else {
		member = &model.OrganizationMember{
			OrganizationID: invite.OrganizationID,
			UserID:         userID,
			Role:           invite.Role,
		}
		f.members[key] = member
	}
	delete(f.invites, invite.Token)
	copy := *member
	return &copy, nil
}

type fakeSessions struct {
	byID map[string]*model.Session
	err  error
}

func newFakeSessions(sessions ...*model.Session) *fakeSessions {
	f := &fakeSessions{byID: map[string]*model.Session{}}
	for _, s := range sessions {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeSessions) Create(ctx context.Context, session *model.Session) error {
	if f.err != nil {
		return f.err
	}
	f.byID[session.ID] = session
	return nil
}

func (f *fakeSessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return session, nil
}

func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeSessions) SetCurrentOrganization(ctx context.Context, id string, organizationID *uint) error {
	session, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	session.CurrentOrganizationID = organizationID
	return nil
}

type fakeAudit struct {
	entries []*model.AuditLog
	err     error
}

func (f *fakeAudit) Append(ctx context.Context, entry *model.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

var errBoom = errors.New("boom")
