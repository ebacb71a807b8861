package models

import (
	"time"

	"github.com/google/uuid"
)

// AffiliateCommission is a monetary credit owed to a referrer for a referred
// order. At most one commission exists per order; the unique index on OrderID
// backs the duplicate check in the ledger.
type AffiliateCommission struct {
	Base
	OrderID          uuid.UUID        `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	ReferrerCode     string           `gorm:"type:varchar(20);index;not null" json:"referrer_code"`
	BeneficiaryEmail string           `gorm:"type:varchar(255)" json:"beneficiary_email"`
	Amount           float64          `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status           CommissionStatus `gorm:"type:varchar(20);not null;default:'PENDENTE'" json:"status"`
	PayoutID         *uuid.UUID       `gorm:"type:uuid;index" json:"payout_id"`
}

// AffiliatePayout is a withdrawal request against accumulated approved
// commissions. Valor is the available balance snapshot at request time.
type AffiliatePayout struct {
	Base
	UserID       uuid.UUID    `gorm:"type:uuid;index;not null" json:"user_id"`
	User         User         `gorm:"foreignKey:UserID" json:"-"`
	Valor        float64      `gorm:"type:decimal(12,2);not null" json:"valor"`
	Metodo       string       `gorm:"type:varchar(50);not null;default:'mpesa'" json:"metodo"`
	MpesaDestino string       `gorm:"type:varchar(50)" json:"mpesa_destino"`
	Status       PayoutStatus `gorm:"type:varchar(20);not null;default:'SOLICITADO'" json:"status"`
	Notes        string       `gorm:"type:text" json:"notes"`
	ProcessedBy  *uuid.UUID   `gorm:"type:uuid" json:"processed_by"`
	ProcessedAt  *time.Time   `json:"processed_at"`
}

// PayoutItem links a payout request to the commissions snapshotted when the
// request was created. Settlement on approval covers exactly these rows, so a
// commission approved after the request is not swept into an older payout.
type PayoutItem struct {
	Base
	PayoutID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_payout_items_payout_commission;not null" json:"payout_id"`
	CommissionID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_payout_items_payout_commission;not null" json:"commission_id"`
}

// ClickEvent is one tracked click on an affiliate link. Clicks get their own
// table with indexed columns so the burst and anomaly queries stay plain SQL.
type ClickEvent struct {
	Base
	Code      string `gorm:"type:varchar(20);index;not null" json:"code"`
	Visitor   string `gorm:"type:varchar(100);index" json:"visitor"`
	Source    string `gorm:"type:text" json:"source"`
	UserAgent string `gorm:"type:text" json:"user_agent"`
}
