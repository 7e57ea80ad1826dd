package model

import (
	"time"
)

// ImpersonationLog is the audit record of an admin acting as another user.
// EndedAt == nil means the impersonation is active; at most one active row
// may exist per admin (enforced by ux_impersonation_active).
type ImpersonationLog struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	AdminID      uint       `json:"admin_id" gorm:"index;not null"`
	TargetUserID uint       `json:"target_user_id" gorm:"index;not null"`
	StartedAt    time.Time  `json:"started_at" gorm:"not null"`
	EndedAt      *time.Time `json:"ended_at"`
	Reason       string     `json:"reason,omitempty" gorm:"type:varchar(500)"`
	IPAddress    string     `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	UserAgent    string     `json:"user_agent,omitempty" gorm:"type:varchar(255)"`

	Admin      User `json:"admin,omitempty" gorm:"foreignKey:AdminID"`
	TargetUser User `json:"target_user,omitempty" gorm:"foreignKey:TargetUserID"`
}

// Active reports whether the impersonation is still open
func (l *ImpersonationLog) Active() bool {
	return l.EndedAt == nil
}
