package model

import (
	"time"
)

// Session is a server-side session record bound to the cookie token.
// While impersonation is active, UserID is the impersonated (target) user and
// ImpersonatedBy holds the admin's ID; the admin's identity is recoverable
// only through that field or the impersonation log.
type Session struct {
	ID                    string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	UserID                uint      `json:"user_id" gorm:"index;not null"`
	ImpersonatedBy        *uint     `json:"impersonated_by,omitempty"`
	CurrentOrganizationID *uint     `json:"current_organization_id,omitempty"`
	IPAddress             string    `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	UserAgent             string    `json:"user_agent,omitempty" gorm:"type:varchar(255)"`
	ExpiresAt             time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
