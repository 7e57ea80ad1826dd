package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/store"
	"taskhub/pkg/logger"
)

// UserService handles registration, credentials, profile, onboarding and
// platform role management.
type UserService struct {
	users store.UserStore
	audit store.AuditStore
}

// NewUserService creates a user service
func NewUserService(users store.UserStore, audit store.AuditStore) *UserService {
	return &UserService{users: users, audit: audit}
}

// Register creates a user with a bcrypt-hashed password
func (s *UserService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	var issues []apperr.Issue
	if issue := validateEmail(email); issue != nil {
		issues = append(issues, *issue)
	}
	if len(password) < 8 {
		issues = append(issues, apperr.Issue{Field: "password", Message: "must be at least 8 characters"})
	}
	if len(issues) > 0 {
		return nil, apperr.Validation("validation failed", issues...)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := &model.User{
		Email:    email,
		Name:     name,
		Password: string(hashed),
		Role:     model.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	return user, nil
}

// Authenticate verifies the credentials and returns the user. Invalid email
// and invalid password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	return user, nil
}

// Get loads a user by ID
func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

// UpdateName changes the user's display name
func (s *UserService) UpdateName(ctx context.Context, id uint, name string) (*model.User, error) {
	if name == "" || len(name) > 100 {
		return nil, apperr.Validation("validation failed",
			apperr.Issue{Field: "name", Message: "must be 1 to 100 characters"})
	}

	user, err := s.users.UpdateName(ctx, id, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to update user", err)
	}
	return user, nil
}

// SetOnboarding flips the onboarding-completed flag
func (s *UserService) SetOnboarding(ctx context.Context, id uint, completed bool) error {
	if err := s.users.SetOnboardingCompleted(ctx, id, completed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to update onboarding state", err)
	}
	return nil
}

// UpdateRole changes a user's platform role. A SUPER_ADMIN may not demote
// their own account: losing the last role that can undo mistakes locks the
// platform out of its own admin tooling.
func (s *UserService) UpdateRole(ctx context.Context, caller *model.User, targetID uint, newRole model.Role) (*model.User, error) {
	if !newRole.Valid() {
		return nil, apperr.Validation("validation failed",
			apperr.Issue{Field: "role", Message: "is not a valid role"})
	}

	if targetID == caller.ID && newRole != model.RoleSuperAdmin {
		return nil, apperr.Forbidden("cannot demote yourself")
	}

	user, err := s.users.UpdateRole(ctx, targetID, newRole)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to update role", err)
	}

	s.appendAudit(ctx, "user.role", caller.ID, &targetID, fmt.Sprintf(`{"role":%q}`, newRole))
	return user, nil
}

// List returns users for the admin listing
func (s *UserService) List(ctx context.Context, filter store.ListUsersFilter) ([]model.User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, apperr.Validation("validation failed",
			apperr.Issue{Field: "role", Message: "is not a valid role"})
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return users, nil
}

func (s *UserService) appendAudit(ctx context.Context, action string, actorID uint, targetID *uint, metadata string) {
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
