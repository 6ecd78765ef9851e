package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog captures auditable writes performed by staff members.
type AuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorUID   string            `gorm:"size:128;not null;index" json:"actor_uid"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   string            `gorm:"size:64;index" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
