package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// IdempotencyRecord tracks one (scope, key) pair. The unique index on the
// pair is the mutual-exclusion primitive: exactly one concurrent caller wins
// the insert, every other caller replays the stored result.
type IdempotencyRecord struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope       string                 `gorm:"column:scope;not null;uniqueIndex:uq_idempotency_scope_key"`
	Key         string                 `gorm:"column:key;not null;uniqueIndex:uq_idempotency_scope_key"`
	State       enums.IdempotencyState `gorm:"column:state;type:text;not null"`
	RequestHash string                 `gorm:"column:request_hash;not null"`
	Result      json.RawMessage        `gorm:"column:result;type:jsonb"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt   time.Time              `gorm:"column:expires_at;not null;index"`
}
