package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/prometheus"
)

// Users is the GORM-backed UserStore
type Users struct {
	db *gorm.DB
}

// NewUsers creates a user store over the given database handle
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Create(ctx context.Context, user *model.User) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Users) FindByID(ctx context.Context, id uint) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Users) UpdateRole(ctx context.Context, id uint, role model.Role) (*model.User, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Users) UpdateName(ctx context.Context, id uint, name string) (*model.User, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("name", name).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Users) SetOnboardingCompleted(ctx context.Context, id uint, completed bool) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("onboarding_completed", completed)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Users) List(ctx context.Context, filter ListUsersFilter) ([]model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	query := s.db.WithContext(ctx).Model(&model.User{}).Order("created_at DESC")
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var users []model.User
	if err := query.Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}
