package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/store"
	"taskhub/pkg/logger"
	"taskhub/prometheus"
)

// SessionIssuer is the session-issuance capability the coordinator drives.
// Failures here trigger the compensating close of the audit log.
type SessionIssuer interface {
	Issue(ctx context.Context, userID uint, impersonatedBy *uint, ip, userAgent string) (*model.Session, string, error)
	Revoke(ctx context.Context, sessionID string) error
}

// StartImpersonationInput carries the start request plus forensic context
type StartImpersonationInput struct {
	TargetUserID uint
	Reason       string
	IPAddress    string
	UserAgent    string
}

// ImpersonationService coordinates an admin acting as another user.
// Impersonation depth is always exactly 0 or 1: starting while already
// impersonating auto-closes the previous log, and the audit log may only
// show "active" while a live impersonated session exists.
type ImpersonationService struct {
	users    store.UserStore
	logs     store.ImpersonationStore
	sessions SessionIssuer
	now      func() time.Time
}

// NewImpersonationService creates an impersonation coordinator
func NewImpersonationService(users store.UserStore, logs store.ImpersonationStore, sessions SessionIssuer) *ImpersonationService {
	return &ImpersonationService{
		users:    users,
		logs:     logs,
		sessions: sessions,
		now:      time.Now,
	}
}

// Start begins impersonating the target user. Returns the audit log entry
// and the signed cookie token for the new impersonated session.
func (s *ImpersonationService) Start(ctx context.Context, adminID uint, input StartImpersonationInput) (*model.ImpersonationLog, string, error) {
	if len(input.Reason) > 500 {
		return nil, "", apperr.Validation("validation failed",
			apperr.Issue{Field: "reason", Message: "must be at most 500 characters"})
	}

	target, err := s.users.FindByID(ctx, input.TargetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", apperr.NotFound("target user not found")
		}
		return nil, "", apperr.Internal("failed to load target user", err)
	}

	// Super admins are never impersonable.
	if target.Role == model.RoleSuperAdmin {
		return nil, "", apperr.Forbidden("cannot impersonate super admin")
	}

	entry := &model.ImpersonationLog{
		AdminID:      adminID,
		TargetUserID: target.ID,
		StartedAt:    s.now(),
		Reason:       input.Reason,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
	}

	// Open self-heals: a stale active log from a crashed session is closed
	// before the new one is created.
	staleClosed, err := s.logs.Open(ctx, entry)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", apperr.Conflict("impersonation already starting")
		}
		return nil, "", apperr.Internal("failed to create impersonation log", err)
	}
	prometheus.ActiveImpersonationsGauge.Add(1 - float64(staleClosed))

	_, token, err := s.sessions.Issue(ctx, target.ID, &adminID, input.IPAddress, input.UserAgent)
	if err != nil {
		// Compensate: the log must never show active when no live
		// impersonated session exists.
		closed, closeErr := s.logs.Close(ctx, adminID, s.now())
		if closeErr != nil {
			logger.FromContext(ctx).Error("failed to close impersonation log after issuance failure",
				zap.Uint("admin_id", adminID), zap.Error(closeErr))
		} else {
			prometheus.ActiveImpersonationsGauge.Sub(float64(closed))
		}
		return nil, "", apperr.Upstream("failed to start impersonation session", err)
	}

	return entry, token, nil
}

// Stop ends the impersonation behind the given session. Called with a live
// impersonation session (ImpersonatedBy set) it restores the admin's own
// session and returns the restored cookie token. Called with a plain session
// whose owner is the target of an orphaned active log, it only closes that
// log and returns no token: the admin identity is restored exclusively to
// sessions the admin started, never to the target's own session.
func (s *ImpersonationService) Stop(ctx context.Context, current *model.Session) (string, error) {
	if current.ImpersonatedBy == nil {
		return "", s.recoverOrphan(ctx, current.UserID)
	}

	entry, err := s.logs.ActiveByAdmin(ctx, *current.ImpersonatedBy)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.BadRequest("no active impersonation session")
		}
		return "", apperr.Internal("failed to load impersonation log", err)
	}

	// Restore first. If restoration fails the log stays open: the admin is
	// still nominally impersonating and can retry, which is safer than
	// silently losing the trail.
	_, token, err := s.sessions.Issue(ctx, entry.AdminID, nil, current.IPAddress, current.UserAgent)
	if err != nil {
		return "", apperr.Upstream("failed to restore admin session", err)
	}

	closed, err := s.logs.Close(ctx, entry.AdminID, s.now())
	if err != nil {
		return "", apperr.Internal("failed to close impersonation log", err)
	}
	prometheus.ActiveImpersonationsGauge.Sub(float64(closed))

	// The impersonated session is dead weight once the admin is restored.
	if err := s.sessions.Revoke(ctx, current.ID); err != nil {
		logger.FromContext(ctx).Warn("failed to revoke impersonated session",
			zap.String("session_id", current.ID), zap.Error(err))
	}

	return token, nil
}

// recoverOrphan closes an active log whose impersonated session no longer
// exists, detected when the target shows up under their own plain session.
// No session is minted: closing only de-escalates.
func (s *ImpersonationService) recoverOrphan(ctx context.Context, targetUserID uint) error {
	entry, err := s.logs.ActiveByTarget(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.BadRequest("no active impersonation session")
		}
		return apperr.Internal("failed to load impersonation log", err)
	}

	closed, err := s.logs.Close(ctx, entry.AdminID, s.now())
	if err != nil {
		return apperr.Internal("failed to close impersonation log", err)
	}
	prometheus.ActiveImpersonationsGauge.Sub(float64(closed))

	logger.FromContext(ctx).Warn("closed orphaned impersonation log",
		zap.Uint("admin_id", entry.AdminID), zap.Uint("target_user_id", targetUserID))
	return nil
}

// Active returns the admin's active impersonation log, or nil if none
func (s *ImpersonationService) Active(ctx context.Context, adminID uint) (*model.ImpersonationLog, error) {
	entry, err := s.logs.ActiveByAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal("failed to load impersonation log", err)
	}
	return entry, nil
}

// Logs returns impersonation audit entries, newest first
func (s *ImpersonationService) Logs(ctx context.Context, filter store.LogFilter) ([]model.ImpersonationLog, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	entries, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list impersonation logs", err)
	}
	return entries, nil
}
