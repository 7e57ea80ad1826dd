package model

import (
	"time"
)

// OrganizationInvite is a pending invitation. The token is single use:
// acceptance consumes the row in the same transaction that creates the
// membership.
type OrganizationInvite struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID uint      `json:"organization_id" gorm:"index;not null"`
	Email          string    `json:"email" gorm:"type:varchar(100);not null"`
	Role           OrgRole   `json:"role" gorm:"type:varchar(20);not null;default:'MEMBER'"`
	Token          string    `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`

	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// Expired reports whether the invite is past its expiry
func (i *OrganizationInvite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
