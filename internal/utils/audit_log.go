package utils

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
)

// Audit action names. The audits table is append-only; rows are keyed by these
// action strings and carry free-form JSON metadata.
const (
	AuditSelfReferralAttempt = "affiliate:fraud:self_referral"
	AuditFraudAnomaly        = "affiliate:fraud:anomaly"
	AuditCommissionAllocated = "affiliate:allocated"
	AuditPayoutRequested     = "affiliate:payout"
	AuditPayoutUpdated       = "affiliate:payout:update"
	AuditInvoicePaid         = "invoice:aprovada"
	AuditInvoiceApproved     = "invoice:approve"
	AuditInvoiceRejected     = "invoice:reject"
	AuditOrderCreated        = "order:create"
	AuditUserSignup          = "user:signup"
	AuditUserLogin           = "user:login"
)

// AuditLogger writes append-only audit events
type AuditLogger struct {
	db *gorm.DB
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// Log records an audit event. userID may be nil for anonymous events.
func (a *AuditLogger) Log(userID *uuid.UUID, action string, meta models.JSON) error {
	entry := models.Audit{
		UserID: userID,
		Action: action,
		Meta:   meta,
	}
	if err := a.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// CountByAction counts all audit events with the given action
func (a *AuditLogger) CountByAction(action string) (int64, error) {
	var count int64
	err := a.db.Model(&models.Audit{}).Where("action = ?", action).Count(&count).Error
	return count, err
}

// ListRecent returns the most recent audit events
func (a *AuditLogger) ListRecent(limit int) ([]models.Audit, error) {
	var logs []models.Audit
	err := a.db.Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// ListForUser returns the most recent audit events for one user
func (a *AuditLogger) ListForUser(userID uuid.UUID, limit int) ([]models.Audit, error) {
	var logs []models.Audit
	err := a.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
