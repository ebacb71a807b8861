package models

import (
	"github.com/google/uuid"
)

// Order represents a document-service order placed by a user.
// ReferredByCode is the referral code captured at order-creation time; it may
// differ from the referred_by stored on the user profile.
type Order struct {
	Base
	UserID         uuid.UUID   `gorm:"type:uuid;index;not null" json:"user_id"`
	User           User        `gorm:"foreignKey:UserID" json:"-"`
	Title          string      `gorm:"type:varchar(255);not null" json:"title"`
	Details        string      `gorm:"type:text" json:"details"`
	ReferredByCode string      `gorm:"type:varchar(20)" json:"referred_by_code"`
	Status         OrderStatus `gorm:"type:varchar(30);not null;default:'PENDENTE_PAGAMENTO'" json:"status"`
}
