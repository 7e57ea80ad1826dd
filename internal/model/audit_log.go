package model

import (
	"time"
)

// AuditLog is a best-effort trail of sensitive mutations (role changes,
// organization deletion). Writes are fire-and-forget and never abort the
// primary operation.
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Action    string    `json:"action" gorm:"type:varchar(50);index;not null"`
	ActorID   uint      `json:"actor_id" gorm:"index;not null"`
	TargetID  *uint     `json:"target_id,omitempty"`
	Metadata  string    `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at"`
}
