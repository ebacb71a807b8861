package order

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/services/affiliate"
	"github.com/meritodocs/backend/internal/utils"
)

// invoiceDueDays is how long a client has to pay a freshly emitted invoice
const invoiceDueDays = 7

var (
	// ErrInvoiceNotFound is returned for an unknown invoice id
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrNotOwner is returned when a user touches someone else's invoice
	ErrNotOwner = errors.New("invoice does not belong to user")
)

// CreateOrderInput carries the fields a client submits when placing an order
type CreateOrderInput struct {
	Title        string  `json:"title" binding:"required"`
	Details      string  `json:"details"`
	Total        float64 `json:"total" binding:"required,gt=0"`
	ReferralCode string  `json:"referral_code"`
}

// OrderService creates orders with their invoices and handles the payment
// proof cycle.
type OrderService struct {
	db       *gorm.DB
	registry *affiliate.ReferralRegistry
	audit    *utils.AuditLogger
}

// NewOrderService creates a new order service
func NewOrderService(db *gorm.DB, registry *affiliate.ReferralRegistry, audit *utils.AuditLogger) *OrderService {
	return &OrderService{db: db, registry: registry, audit: audit}
}

// Create places an order for the user and emits its invoice. The referral
// code supplied with the order is validated softly: an invalid or
// self-referring code is dropped, never an error. When no code is supplied
// the referrer stored on the user's profile is validated and used instead.
func (s *OrderService) Create(user *models.User, input CreateOrderInput) (*models.Order, *models.Invoice, error) {
	refCode := s.registry.ValidateForOrder(strings.TrimSpace(input.ReferralCode), user.ID)
	if refCode == "" && user.ReferredBy != "" {
		if profileRef, err := s.registry.Resolve(user.ReferredBy); err == nil && profileRef != nil && profileRef.ID != user.ID {
			refCode = profileRef.ReferralCode
		}
	}

	order := models.Order{
		UserID:         user.ID,
		Title:          input.Title,
		Details:        input.Details,
		ReferredByCode: refCode,
		Status:         models.OrderPendentePagamento,
	}
	invoice := models.Invoice{
		Number:  utils.GenerateReference("INV"),
		Total:   input.Total,
		Status:  models.InvoiceEmitida,
		DueDate: time.Now().AddDate(0, 0, invoiceDueDays),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		invoice.OrderID = order.ID
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.audit.Log(&user.ID, utils.AuditOrderCreated, models.JSON{
		"order_id":   order.ID.String(),
		"invoice_id": invoice.ID.String(),
		"referred":   refCode != "",
	}); err != nil {
		log.Printf("failed to audit order creation: %v", err)
	}

	return &order, &invoice, nil
}

// SubmitPaymentProof attaches a proof file to the invoice and moves it to
// PENDENTE_VALIDACAO for admin review.
func (s *OrderService) SubmitPaymentProof(userID uuid.UUID, invoiceID uuid.UUID, proofPath string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Preload("Order").Where("id = ?", invoiceID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice.Order.UserID != userID {
		return nil, ErrNotOwner
	}

	if err := invoice.Status.ValidateTransition(models.InvoicePendenteValidacao); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"status":     models.InvoicePendenteValidacao,
		"proof_path": proofPath,
	}
	if err := s.db.Model(&invoice).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	invoice.Status = models.InvoicePendenteValidacao
	invoice.ProofPath = proofPath
	return &invoice, nil
}

// ListForUser returns the user's orders, newest first
func (s *OrderService) ListForUser(userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// MarkOverdue flags every emitted invoice past its due date as VENCIDA and
// returns how many rows changed. Invoices already under validation are left
// alone.
func (s *OrderService) MarkOverdue(now time.Time) (int64, error) {
	result := s.db.Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceEmitida, now).
		Update("status", models.InvoiceVencida)
	return result.RowsAffected, result.Error
}
