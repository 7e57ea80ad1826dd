package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/prometheus"
)

// impersonationLockClass namespaces the per-admin advisory lock keys
const impersonationLockClass int32 = 4201

// Impersonation is the GORM-backed ImpersonationStore
type Impersonation struct {
	db *gorm.DB
}

// NewImpersonation creates an impersonation log store over the given database handle
func NewImpersonation(db *gorm.DB) *Impersonation {
	return &Impersonation{db: db}
}

// Open closes any stale active log for the admin and inserts the new one.
// Runs inside a transaction holding pg_advisory_xact_lock keyed by the admin
// ID, so two concurrent starts for the same admin serialize and cannot both
// leave an active row. The partial unique index ux_impersonation_active
// backstops this: a violation surfaces as ErrDuplicate.
func (s *Impersonation) Open(ctx context.Context, entry *model.ImpersonationLog) (int64, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	var staleClosed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)",
			impersonationLockClass, int32(entry.AdminID)).Error; err != nil {
			return err
		}
		result := tx.Model(&model.ImpersonationLog{}).
			Where("admin_id = ? AND ended_at IS NULL", entry.AdminID).
			Update("ended_at", entry.StartedAt)
		if result.Error != nil {
			return result.Error
		}
		staleClosed = result.RowsAffected
		return tx.Create(entry).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return staleClosed, nil
}

func (s *Impersonation) Close(ctx context.Context, adminID uint, endedAt time.Time) (int64, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).Model(&model.ImpersonationLog{}).
		Where("admin_id = ? AND ended_at IS NULL", adminID).
		Update("ended_at", endedAt)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Impersonation) ActiveByAdmin(ctx context.Context, adminID uint) (*model.ImpersonationLog, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var entry model.ImpersonationLog
	err := s.db.WithContext(ctx).
		Where("admin_id = ? AND ended_at IS NULL", adminID).First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (s *Impersonation) ActiveByTarget(ctx context.Context, targetUserID uint) (*model.ImpersonationLog, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var entry model.ImpersonationLog
	err := s.db.WithContext(ctx).
		Where("target_user_id = ? AND ended_at IS NULL", targetUserID).First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (s *Impersonation) List(ctx context.Context, filter LogFilter) ([]model.ImpersonationLog, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	query := s.db.WithContext(ctx).Model(&model.ImpersonationLog{}).Order("started_at DESC")
	if filter.AdminID != 0 {
		query = query.Where("admin_id = ?", filter.AdminID)
	}
	if filter.TargetUserID != 0 {
		query = query.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []model.ImpersonationLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
