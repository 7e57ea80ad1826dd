package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/prometheus"
)

// Sessions is the GORM-backed SessionStore
type Sessions struct {
	db *gorm.DB
}

// NewSessions creates a session store over the given database handle
func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) Create(ctx context.Context, session *model.Session) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(session).Error)
}

func (s *Sessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var session model.Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Session{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Sessions) SetCurrentOrganization(ctx context.Context, id string, organizationID *uint) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).
		Update("current_organization_id", organizationID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
