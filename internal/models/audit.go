package models

import (
	"github.com/google/uuid"
)

// Audit is an append-only event record keyed by action name, with free-form
// JSON metadata.
type Audit struct {
	Base
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Action string     `gorm:"type:varchar(100);index;not null" json:"action"`
	Meta   JSON       `gorm:"type:jsonb" json:"meta"`
}
