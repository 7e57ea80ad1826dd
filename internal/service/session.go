package service

import (
	"context"
	"errors"
	"time"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/store"
	"taskhub/pkg/tokens"
)

// SessionService issues, resolves and revokes server-side sessions. The
// cookie value is a signed wrapper around the session ID; all session state
// lives in the database.
type SessionService struct {
	sessions store.SessionStore
	signer   *tokens.Signer
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionService creates a session service
func NewSessionService(sessions store.SessionStore, signer *tokens.Signer, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions: sessions,
		signer:   signer,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue mints a new session for the user and returns it with the signed
// cookie token. impersonatedBy is set only for impersonation sessions.
func (s *SessionService) Issue(ctx context.Context, userID uint, impersonatedBy *uint, ip, userAgent string) (*model.Session, string, error) {
	session := &model.Session{
		ID:             tokens.NewSessionID(),
		UserID:         userID,
		ImpersonatedBy: impersonatedBy,
		IPAddress:      ip,
		UserAgent:      userAgent,
		ExpiresAt:      s.now().Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", apperr.Upstream("failed to create session", err)
	}

	token, err := s.signer.SignSession(session.ID, session.ExpiresAt)
	if err != nil {
		// No token means no live session; drop the row so nothing dangles.
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, "", apperr.Upstream("failed to sign session token", err)
	}

	return session, token, nil
}

// Resolve validates the cookie token and loads the live session
func (s *SessionService) Resolve(ctx context.Context, tokenString string) (*model.Session, error) {
	sessionID, err := s.signer.ParseSession(tokenString)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid session token")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthenticated("session not found")
		}
		return nil, apperr.Internal("failed to load session", err)
	}

	if session.Expired(s.now()) {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, apperr.Unauthenticated("session expired")
	}

	return session, nil
}

// Revoke destroys a session by ID
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Internal("failed to revoke session", err)
	}
	return nil
}

// RevokeOwned destroys a session only if it belongs to the given user
func (s *SessionService) RevokeOwned(ctx context.Context, userID uint, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("session not found")
		}
		return apperr.Internal("failed to load session", err)
	}
	if session.UserID != userID {
		return apperr.Forbidden("session does not belong to you")
	}
	return s.Revoke(ctx, sessionID)
}
