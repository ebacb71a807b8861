package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice represents the billing document attached to an order
type Invoice struct {
	Base
	OrderID   uuid.UUID     `gorm:"type:uuid;index;not null" json:"order_id"`
	Order     Order         `gorm:"foreignKey:OrderID" json:"-"`
	Number    string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"number"`
	Total     float64       `gorm:"type:decimal(12,2);not null" json:"total"`
	Status    InvoiceStatus `gorm:"type:varchar(30);not null;default:'EMITIDA'" json:"status"`
	DueDate   time.Time     `json:"due_date"`
	ProofPath string        `gorm:"type:text" json:"proof_path"`
}
