package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of a staff or system action. Writes are
// best effort and always happen after the financial transaction commits.
type AuditLog struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    uuid.UUID       `gorm:"column:actor_id;type:uuid;not null"`
	Action     string          `gorm:"column:action;not null"`
	TargetType string          `gorm:"column:target_type;not null"`
	TargetID   string          `gorm:"column:target_id;not null"`
	Metadata   json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
