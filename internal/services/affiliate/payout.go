package affiliate

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/utils"
)

// Mailer is the outbound mail surface the payout manager needs. Delivery is
// best-effort; failures are logged and never abort a state transition.
type Mailer interface {
	SendPayoutRequested(toEmail, payoutID string, valor float64) error
	SendPayoutAlert(adminEmail, affiliateEmail string, valor float64, destination string) error
	SendPayoutStatusUpdate(toEmail, payoutID, status string) error
}

// PayoutManager tracks withdrawal requests, enforces the outstanding-balance
// limit and settles commissions when a payout is paid.
type PayoutManager struct {
	db               *gorm.DB
	ledger           *CommissionLedger
	audit            *utils.AuditLogger
	mailer           Mailer
	adminNotifyEmail string
}

// NewPayoutManager creates a new payout manager
func NewPayoutManager(db *gorm.DB, ledger *CommissionLedger, audit *utils.AuditLogger, mailer Mailer, adminNotifyEmail string) *PayoutManager {
	return &PayoutManager{
		db:               db,
		ledger:           ledger,
		audit:            audit,
		mailer:           mailer,
		adminNotifyEmail: adminNotifyEmail,
	}
}

// OutstandingForUser sums the user's payouts that are still open
func (m *PayoutManager) OutstandingForUser(userID uuid.UUID) (float64, error) {
	var total float64
	err := m.db.Model(&models.AffiliatePayout{}).
		Select("COALESCE(SUM(valor), 0)").
		Where("user_id = ? AND status IN ?", userID, []models.PayoutStatus{models.PayoutSolicitado, models.PayoutAprovado}).
		Scan(&total).Error
	return total, err
}

// ListForUser returns the user's payout requests, newest first
func (m *PayoutManager) ListForUser(userID uuid.UUID) ([]models.AffiliatePayout, error) {
	var payouts []models.AffiliatePayout
	err := m.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payouts).Error
	return payouts, err
}

// ListAll returns all payout requests with their owners, newest first
func (m *PayoutManager) ListAll() ([]models.AffiliatePayout, error) {
	var payouts []models.AffiliatePayout
	err := m.db.Preload("User").Order("created_at DESC").Find(&payouts).Error
	return payouts, err
}

// RequestPayout creates a withdrawal request for the user's full available
// balance. The approved commissions backing the request are snapshotted so a
// later settlement covers exactly those rows.
func (m *PayoutManager) RequestPayout(user *models.User, metodo, notes, mpesaDestination string) (*models.AffiliatePayout, error) {
	code := user.ReferralCode
	if code == "" {
		return nil, ErrNoReferralCode
	}
	if metodo == "" {
		metodo = "mpesa"
	}

	approved, err := m.ledger.TotalAvailable(code)
	if err != nil {
		return nil, fmt.Errorf("failed to compute approved balance: %w", err)
	}
	outstanding, err := m.OutstandingForUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute outstanding balance: %w", err)
	}
	available := approved - outstanding
	if available <= 0 {
		return nil, ErrInsufficientBalance
	}

	payout := models.AffiliatePayout{
		UserID:       user.ID,
		Valor:        available,
		Metodo:       metodo,
		MpesaDestino: mpesaDestination,
		Status:       models.PayoutSolicitado,
		Notes:        notes,
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payout).Error; err != nil {
			return fmt.Errorf("failed to create payout: %w", err)
		}
		ids, err := m.ledger.ApprovedIDsForCode(tx, code)
		if err != nil {
			return fmt.Errorf("failed to snapshot commissions: %w", err)
		}
		for _, id := range ids {
			item := models.PayoutItem{PayoutID: payout.ID, CommissionID: id}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create payout item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.audit.Log(&user.ID, utils.AuditPayoutRequested, models.JSON{
		"payout_id": payout.ID.String(),
		"valor":     available,
	}); err != nil {
		log.Printf("failed to audit payout request: %v", err)
	}

	if err := m.mailer.SendPayoutRequested(user.Email, payout.ID.String(), available); err != nil {
		log.Printf("failed to email payout confirmation: %v", err)
	}
	if m.adminNotifyEmail != "" {
		if err := m.mailer.SendPayoutAlert(m.adminNotifyEmail, user.Email, available, mpesaDestination); err != nil {
			log.Printf("failed to email payout alert: %v", err)
		}
	}

	return &payout, nil
}

// UpdateStatus transitions a payout. APROVADO is normalized to PAGO: approval
// means paid, there is no intermediate approved-but-unpaid state. When the
// payout reaches PAGO the snapshotted commissions are settled; payouts created
// before snapshotting existed fall back to settling every approved commission
// for the code.
func (m *PayoutManager) UpdateStatus(payoutID uuid.UUID, requested models.PayoutStatus, adminID uuid.UUID, notes string) (models.PayoutStatus, error) {
	var payout models.AffiliatePayout
	err := m.db.Preload("User").Where("id = ?", payoutID).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrPayoutNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load payout: %w", err)
	}

	finalStatus := models.NormalizePayoutStatus(requested)
	if err := payout.Status.ValidateTransition(finalStatus); err != nil {
		return "", err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       finalStatus,
		"notes":        notes,
		"processed_by": adminID,
		"processed_at": now,
		"updated_at":   now,
	}
	if err := m.db.Model(&payout).Updates(updates).Error; err != nil {
		return "", fmt.Errorf("failed to update payout: %w", err)
	}

	if finalStatus == models.PayoutPago {
		if err := m.settle(&payout); err != nil {
			// non-fatal for the payout transition itself, mirrors the
			// reconciliation-by-hand policy for affiliate bookkeeping
			log.Printf("failed to allocate commissions for payout %s: %v", payout.ID, err)
		}
	}

	if payout.User.Email != "" {
		if err := m.mailer.SendPayoutStatusUpdate(payout.User.Email, payout.ID.String(), string(finalStatus)); err != nil {
			log.Printf("failed to email payout status update: %v", err)
		}
	}

	if err := m.audit.Log(&adminID, utils.AuditPayoutUpdated, models.JSON{
		"payout_id": payout.ID.String(),
		"status":    string(finalStatus),
	}); err != nil {
		log.Printf("failed to audit payout update: %v", err)
	}

	return finalStatus, nil
}

func (m *PayoutManager) settle(payout *models.AffiliatePayout) error {
	var ids []uuid.UUID
	if err := m.db.Model(&models.PayoutItem{}).
		Where("payout_id = ?", payout.ID).
		Pluck("commission_id", &ids).Error; err != nil {
		return err
	}
	if len(ids) > 0 {
		return m.ledger.AllocateByIDs(nil, ids, payout.ID)
	}
	if payout.User.ReferralCode == "" {
		return nil
	}
	return m.ledger.AllocateToPayout(payout.User.ReferralCode, payout.ID)
}
