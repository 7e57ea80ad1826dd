package model

import (
	"time"

	"gorm.io/gorm"
)

// Organization is a tenant: the isolation boundary for membership and
// resource ownership. The slug is the sole external routing key and is
// globally unique.
type Organization struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Slug        string         `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:varchar(500)"`
	Plan        string         `json:"plan" gorm:"type:varchar(20);not null;default:'free'"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
