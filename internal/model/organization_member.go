package model

import (
	"time"
)

// OrganizationMember associates a user with an organization. Exactly one
// membership row exists per (organization, user) pair. Removal deletes the
// row outright: a soft-deleted row would still occupy ux_org_member and
// block the member from ever being re-invited.
type OrganizationMember struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID uint      `json:"organization_id" gorm:"uniqueIndex:ux_org_member;not null"`
	UserID         uint      `json:"user_id" gorm:"uniqueIndex:ux_org_member;index;not null"`
	Role           OrgRole   `json:"role" gorm:"type:varchar(20);not null;default:'MEMBER'"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	User         User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}
