package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/prometheus"
)

// Audit is the GORM-backed AuditStore
type Audit struct {
	db *gorm.DB
}

// NewAudit creates an audit log store over the given database handle
func NewAudit(db *gorm.DB) *Audit {
	return &Audit{db: db}
}

func (s *Audit) Append(ctx context.Context, entry *model.AuditLog) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}
