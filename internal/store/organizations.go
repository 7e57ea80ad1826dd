package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
	"taskhub/prometheus"
)

// Organizations is the GORM-backed OrganizationStore
type Organizations struct {
	db *gorm.DB
}

// NewOrganizations creates an organization store over the given database handle
func NewOrganizations(db *gorm.DB) *Organizations {
	return &Organizations{db: db}
}

func (s *Organizations) CreateWithOwner(ctx context.Context, org *model.Organization, ownerID uint) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		member := model.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         ownerID,
			Role:           model.OrgRoleOwner,
		}
		return tx.Create(&member).Error
	})
	return translate(err)
}

func (s *Organizations) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var org model.Organization
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error; err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

func (s *Organizations) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var org model.Organization
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

func (s *Organizations) Update(ctx context.Context, id uint, patch map[string]interface{}) (*model.Organization, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	var org model.Organization
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, translate(err)
	}
	if len(patch) > 0 {
		if err := s.db.WithContext(ctx).Model(&org).Updates(patch).Error; err != nil {
			return nil, translate(err)
		}
	}
	return &org, nil
}

func (s *Organizations) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).Delete(&model.OrganizationMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", id).Delete(&model.OrganizationInvite{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Organization{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

func (s *Organizations) ListForUser(ctx context.Context, userID uint) ([]model.OrganizationMember, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var memberships []model.OrganizationMember
	err := s.db.WithContext(ctx).Preload("Organization").
		Where("user_id = ?", userID).Find(&memberships).Error
	if err != nil {
		return nil, translate(err)
	}
	return memberships, nil
}

func (s *Organizations) FindMember(ctx context.Context, orgID, userID uint) (*model.OrganizationMember, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var member model.OrganizationMember
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (s *Organizations) ListMembers(ctx context.Context, orgID uint) ([]model.OrganizationMember, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var members []model.OrganizationMember
	err := s.db.WithContext(ctx).Preload("User").
		Where("organization_id = ?", orgID).Order("created_at ASC").Find(&members).Error
	if err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (s *Organizations) UpdateMemberRole(ctx context.Context, orgID, userID uint, role model.OrgRole) (*model.OrganizationMember, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	var member model.OrganizationMember
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if err != nil {
		return nil, translate(err)
	}
	if err := s.db.WithContext(ctx).Model(&member).Update("role", role).Error; err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (s *Organizations) RemoveMember(ctx context.Context, orgID, userID uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&model.OrganizationMember{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Organizations) CountOwners(ctx context.Context, orgID uint) (int64, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	err := s.db.WithContext(ctx).Model(&model.OrganizationMember{}).
		Where("organization_id = ? AND role = ?", orgID, model.OrgRoleOwner).Count(&count).Error
	if err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (s *Organizations) CreateInvite(ctx context.Context, invite *model.OrganizationInvite) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(invite).Error)
}

func (s *Organizations) FindInviteByToken(ctx context.Context, token string) (*model.OrganizationInvite, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var invite model.OrganizationInvite
	err := s.db.WithContext(ctx).Preload("Organization").
		Where("token = ?", token).First(&invite).Error
	if err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

func (s *Organizations) ListInvites(ctx context.Context, orgID uint) ([]model.OrganizationInvite, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var invites []model.OrganizationInvite
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).Order("created_at DESC").Find(&invites).Error
	if err != nil {
		return nil, translate(err)
	}
	return invites, nil
}

func (s *Organizations) ConsumeInvite(ctx context.Context, invite *model.OrganizationInvite, userID uint) (*model.OrganizationMember, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	member := model.OrganizationMember{
		OrganizationID: invite.OrganizationID,
		UserID:         userID,
		Role:           invite.Role,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Upsert: re-accepting while already a member updates the role
		// instead of failing on the unique (organization_id, user_id) index.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&member).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", invite.ID).Delete(&model.OrganizationInvite{}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &member, nil
}
