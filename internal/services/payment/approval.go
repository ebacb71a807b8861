package payment

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/services/affiliate"
	"github.com/meritodocs/backend/internal/utils"
)

// CommissionRate is the fixed affiliate share of an approved invoice total
const CommissionRate = 0.18

var (
	// ErrInvoiceNotFound is returned when the invoice id matches no row.
	// No mutation happens in that case.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrReasonRequired is returned when a rejection carries no reason
	ErrReasonRequired = errors.New("rejection reason is required")
)

// Mailer is the outbound mail surface the approval workflow needs
type Mailer interface {
	SendPaymentApproved(toEmail, invoiceNumber string) error
	SendPaymentRejected(toEmail, invoiceNumber, reason string) error
}

// CommissionOutcome reports what happened to the affiliate branch of an
// approval. The branch is deliberately non-critical: its failure is captured
// here and logged, never propagated, so payment approval cannot be rolled
// back by affiliate bookkeeping.
type CommissionOutcome struct {
	Created      bool       `json:"created"`
	CommissionID *uuid.UUID `json:"commission_id,omitempty"`
	Amount       float64    `json:"amount,omitempty"`
	SkippedWhy   string     `json:"skipped_why,omitempty"`
	Err          error      `json:"-"`
}

// ApprovalResult is the full outcome of an invoice approval
type ApprovalResult struct {
	Invoice    *models.Invoice
	Commission CommissionOutcome
}

// ApprovalService orchestrates invoice approval: invoice and order state
// transitions, commission creation and notifications.
type ApprovalService struct {
	db       *gorm.DB
	ledger   *affiliate.CommissionLedger
	registry *affiliate.ReferralRegistry
	audit    *utils.AuditLogger
	mailer   Mailer
}

// NewApprovalService creates a new approval service
func NewApprovalService(db *gorm.DB, ledger *affiliate.CommissionLedger, registry *affiliate.ReferralRegistry, audit *utils.AuditLogger, mailer Mailer) *ApprovalService {
	return &ApprovalService{
		db:       db,
		ledger:   ledger,
		registry: registry,
		audit:    audit,
		mailer:   mailer,
	}
}

// CommissionAmount computes the fixed-rate commission for an invoice total,
// rounded to cents. Computed once at approval time, never recomputed.
func CommissionAmount(invoiceTotal float64) float64 {
	return math.Round(invoiceTotal*CommissionRate*100) / 100
}

// Approve marks the invoice PAGA, moves the order into execution and, when
// the order carries a valid referral, credits the referrer with 18% of the
// invoice total.
func (s *ApprovalService) Approve(invoiceID uuid.UUID, adminID uuid.UUID) (*ApprovalResult, error) {
	var invoice models.Invoice
	err := s.db.Where("id = ?", invoiceID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}

	if err := invoice.Status.ValidateTransition(models.InvoicePaga); err != nil {
		return nil, err
	}
	if err := s.db.Model(&invoice).Update("status", models.InvoicePaga).Error; err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	invoice.Status = models.InvoicePaga

	result := &ApprovalResult{Invoice: &invoice}

	var order models.Order
	err = s.db.Preload("User").Where("id = ?", invoice.OrderID).First(&order).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("failed to load order for invoice %s: %v", invoice.ID, err)
		}
		s.auditAdminApproval(adminID, invoice.ID)
		return result, nil
	}

	if order.Status.CanTransitionTo(models.OrderEmExecucao) {
		if err := s.db.Model(&order).Update("status", models.OrderEmExecucao).Error; err != nil {
			log.Printf("failed to move order %s into execution: %v", order.ID, err)
		}
	}

	// prefer the code captured on the order, fall back to the profile field
	refCode := order.ReferredByCode
	if refCode == "" {
		refCode = strings.TrimSpace(order.User.ReferredBy)
	}
	if refCode != "" {
		result.Commission = s.allocateCommission(&order, &invoice, refCode)
		if result.Commission.Err != nil {
			log.Printf("affiliate allocation error for order %s: %v", order.ID, result.Commission.Err)
		}
	}

	if err := s.mailer.SendPaymentApproved(order.User.Email, invoice.Number); err != nil {
		log.Printf("failed to email payment approval: %v", err)
	}
	if err := s.audit.Log(&order.UserID, utils.AuditInvoicePaid, models.JSON{
		"invoice_id": invoice.ID.String(),
		"order_id":   order.ID.String(),
	}); err != nil {
		log.Printf("failed to audit invoice payment: %v", err)
	}
	s.auditAdminApproval(adminID, invoice.ID)

	return result, nil
}

// allocateCommission runs the non-critical affiliate branch of an approval.
// Every failure is captured in the returned outcome instead of an error.
func (s *ApprovalService) allocateCommission(order *models.Order, invoice *models.Invoice, refCode string) CommissionOutcome {
	refUser, err := s.registry.Resolve(refCode)
	if err != nil {
		return CommissionOutcome{Err: fmt.Errorf("referrer lookup failed: %w", err)}
	}
	if refUser == nil {
		return CommissionOutcome{SkippedWhy: "referrer not found"}
	}
	if refUser.ID == order.UserID {
		return CommissionOutcome{SkippedWhy: "self referral"}
	}

	amount := CommissionAmount(invoice.Total)
	commission, err := s.ledger.CreateForOrder(order.ID, refUser.ReferralCode, order.User.Email, amount, models.CommissionAprovada)
	if errors.Is(err, affiliate.ErrDuplicateCommission) {
		return CommissionOutcome{SkippedWhy: "commission already exists"}
	}
	if err != nil {
		return CommissionOutcome{Err: err}
	}

	if err := s.audit.Log(&refUser.ID, utils.AuditCommissionAllocated, models.JSON{
		"order_id": order.ID.String(),
		"referrer": refUser.Email,
		"amount":   amount,
	}); err != nil {
		log.Printf("failed to audit commission allocation: %v", err)
	}

	return CommissionOutcome{Created: true, CommissionID: &commission.ID, Amount: amount}
}

func (s *ApprovalService) auditAdminApproval(adminID uuid.UUID, invoiceID uuid.UUID) {
	if err := s.audit.Log(&adminID, utils.AuditInvoiceApproved, models.JSON{
		"invoice_id": invoiceID.String(),
	}); err != nil {
		log.Printf("failed to audit approval: %v", err)
	}
}

// Reject marks the invoice REJEITADA and returns the order to
// PENDENTE_PAGAMENTO. A non-empty reason is mandatory. Commissions are never
// reversed here; rejection applies to the next proof cycle.
func (s *ApprovalService) Reject(invoiceID uuid.UUID, orderID *uuid.UUID, reason string, adminID uuid.UUID) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}

	var invoice models.Invoice
	err := s.db.Where("id = ?", invoiceID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvoiceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	if err := invoice.Status.ValidateTransition(models.InvoiceRejeitada); err != nil {
		return err
	}
	if err := s.db.Model(&invoice).Update("status", models.InvoiceRejeitada).Error; err != nil {
		return fmt.Errorf("failed to mark invoice rejected: %w", err)
	}

	if orderID != nil {
		var order models.Order
		if err := s.db.Preload("User").Where("id = ?", *orderID).First(&order).Error; err == nil {
			if order.Status.CanTransitionTo(models.OrderPendentePagamento) {
				if err := s.db.Model(&order).Update("status", models.OrderPendentePagamento).Error; err != nil {
					log.Printf("failed to return order %s to pending payment: %v", order.ID, err)
				}
			}
			if err := s.mailer.SendPaymentRejected(order.User.Email, invoice.Number, reason); err != nil {
				log.Printf("failed to email payment rejection: %v", err)
			}
			if err := s.audit.Log(&order.UserID, utils.AuditInvoiceRejected, models.JSON{
				"invoice_id": invoice.ID.String(),
				"order_id":   order.ID.String(),
				"reason":     reason,
			}); err != nil {
				log.Printf("failed to audit invoice rejection: %v", err)
			}
		}
	}

	if err := s.audit.Log(&adminID, utils.AuditInvoiceRejected, models.JSON{
		"invoice_id": invoice.ID.String(),
		"reason":     reason,
	}); err != nil {
		log.Printf("failed to audit rejection: %v", err)
	}

	return nil
}
