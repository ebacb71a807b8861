package affiliate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
)

// CommissionLedger creates and reads affiliate commission records. Each
// commission is tied to exactly one order and one referrer code.
type CommissionLedger struct {
	db *gorm.DB
}

// NewCommissionLedger creates a new commission ledger
func NewCommissionLedger(db *gorm.DB) *CommissionLedger {
	return &CommissionLedger{db: db}
}

// CommissionTotals aggregates commission amounts by status
type CommissionTotals struct {
	Pending  float64 `json:"pending"`
	Approved float64 `json:"approved"`
	Paid     float64 `json:"paid"`
}

// ConversionRow is one line of the per-code conversion report
type ConversionRow struct {
	ReferrerCode    string  `json:"referrer_code"`
	TotalOrders     int64   `json:"total_orders"`
	ApprovedOrders  int64   `json:"approved_orders"`
	CommissionTotal float64 `json:"commission_total"`
}

// CreateForOrder records a commission for an order. The pre-check plus the
// unique index on order_id guarantee at most one commission per order even
// under concurrent approval calls.
func (l *CommissionLedger) CreateForOrder(orderID uuid.UUID, referrerCode, beneficiaryEmail string, amount float64, status models.CommissionStatus) (*models.AffiliateCommission, error) {
	var count int64
	if err := l.db.Model(&models.AffiliateCommission{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing commission: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateCommission
	}

	commission := models.AffiliateCommission{
		OrderID:          orderID,
		ReferrerCode:     referrerCode,
		BeneficiaryEmail: beneficiaryEmail,
		Amount:           amount,
		Status:           status,
	}
	if err := l.db.Create(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, ErrDuplicateCommission
		}
		return nil, fmt.Errorf("failed to create commission: %w", err)
	}
	return &commission, nil
}

// TotalsByStatus sums commission amounts per status for a code. Statuses with
// no rows report zero.
func (l *CommissionLedger) TotalsByStatus(code string) (CommissionTotals, error) {
	var rows []struct {
		Status models.CommissionStatus
		Total  float64
	}
	err := l.db.Model(&models.AffiliateCommission{}).
		Select("status, COALESCE(SUM(amount), 0) AS total").
		Where("referrer_code = ?", code).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return CommissionTotals{}, err
	}

	var totals CommissionTotals
	for _, row := range rows {
		switch row.Status {
		case models.CommissionPendente:
			totals.Pending = row.Total
		case models.CommissionAprovada:
			totals.Approved = row.Total
		case models.CommissionPago:
			totals.Paid = row.Total
		}
	}
	return totals, nil
}

// TotalAvailable sums all approved, not-yet-paid commission amounts for a code
func (l *CommissionLedger) TotalAvailable(code string) (float64, error) {
	var total float64
	err := l.db.Model(&models.AffiliateCommission{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("referrer_code = ? AND status = ?", code, models.CommissionAprovada).
		Scan(&total).Error
	return total, err
}

// ListForCode returns a code's commissions, newest first
func (l *CommissionLedger) ListForCode(code string) ([]models.AffiliateCommission, error) {
	var commissions []models.AffiliateCommission
	err := l.db.Where("referrer_code = ?", code).Order("created_at DESC").Find(&commissions).Error
	return commissions, err
}

// ApprovedIDsForCode returns the ids of a code's approved commissions,
// used to snapshot a payout request.
func (l *CommissionLedger) ApprovedIDsForCode(tx *gorm.DB, code string) ([]uuid.UUID, error) {
	if tx == nil {
		tx = l.db
	}
	var ids []uuid.UUID
	err := tx.Model(&models.AffiliateCommission{}).
		Where("referrer_code = ? AND status = ?", code, models.CommissionAprovada).
		Pluck("id", &ids).Error
	return ids, err
}

// AllocateToPayout bulk-transitions all of a code's approved commissions to
// PAGO, stamping the payout id. Used as a fallback for payouts without a
// commission snapshot.
func (l *CommissionLedger) AllocateToPayout(code string, payoutID uuid.UUID) error {
	return l.db.Model(&models.AffiliateCommission{}).
		Where("referrer_code = ? AND status = ?", code, models.CommissionAprovada).
		Updates(map[string]interface{}{
			"status":     models.CommissionPago,
			"payout_id":  payoutID,
			"updated_at": time.Now(),
		}).Error
}

// AllocateByIDs transitions exactly the given approved commissions to PAGO,
// stamping the payout id
func (l *CommissionLedger) AllocateByIDs(tx *gorm.DB, ids []uuid.UUID, payoutID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if tx == nil {
		tx = l.db
	}
	return tx.Model(&models.AffiliateCommission{}).
		Where("id IN ? AND status = ?", ids, models.CommissionAprovada).
		Updates(map[string]interface{}{
			"status":     models.CommissionPago,
			"payout_id":  payoutID,
			"updated_at": time.Now(),
		}).Error
}

// ListForAdmin returns all commissions, newest first
func (l *CommissionLedger) ListForAdmin() ([]models.AffiliateCommission, error) {
	var commissions []models.AffiliateCommission
	err := l.db.Order("created_at DESC").Find(&commissions).Error
	return commissions, err
}

// ConversionRows aggregates per-code order and commission counts for the
// admin CSV export, highest commission total first
func (l *CommissionLedger) ConversionRows() ([]ConversionRow, error) {
	var rows []ConversionRow
	err := l.db.Model(&models.AffiliateCommission{}).
		Select("referrer_code, COUNT(*) AS total_orders, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS approved_orders, COALESCE(SUM(amount), 0) AS commission_total", models.CommissionAprovada).
		Group("referrer_code").
		Order("commission_total DESC").
		Scan(&rows).Error
	return rows, err
}
