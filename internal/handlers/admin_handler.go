package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/services/affiliate"
	"github.com/meritodocs/backend/internal/services/payment"
)

// AdminHandler serves the back-office endpoints: payment approval, affiliate
// oversight and the fraud panel.
type AdminHandler struct {
	db       *gorm.DB
	approval *payment.ApprovalService
	ledger   *affiliate.CommissionLedger
	payout   *affiliate.PayoutManager
	fraud    *affiliate.FraudSignalEngine
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, approval *payment.ApprovalService, ledger *affiliate.CommissionLedger, payout *affiliate.PayoutManager, fraud *affiliate.FraudSignalEngine) *AdminHandler {
	return &AdminHandler{db: db, approval: approval, ledger: ledger, payout: payout, fraud: fraud}
}

// ApprovePayment validates an invoice payment and triggers the commission flow
func (h *AdminHandler) ApprovePayment(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		InvoiceID string `json:"invoice_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invoice_id é obrigatório"})
		return
	}
	invoiceID, err := uuid.Parse(input.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invoice_id inválido"})
		return
	}

	_, err = h.approval.Approve(invoiceID, adminID)
	switch {
	case errors.Is(err, payment.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Fatura não encontrada"})
		return
	case err != nil:
		var transition *models.ErrInvalidTransition
		if errors.As(err, &transition) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Transição de estado inválida"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao validar pagamento"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pagamento validado"})
}

// RejectPayment rejects a payment proof with a mandatory reason
func (h *AdminHandler) RejectPayment(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		InvoiceID string `json:"invoice_id" binding:"required"`
		OrderID   string `json:"order_id"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invoice_id é obrigatório"})
		return
	}
	invoiceID, err := uuid.Parse(input.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invoice_id inválido"})
		return
	}
	var orderID *uuid.UUID
	if input.OrderID != "" {
		id, err := uuid.Parse(input.OrderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "order_id inválido"})
			return
		}
		orderID = &id
	}

	err = h.approval.Reject(invoiceID, orderID, input.Reason, adminID)
	switch {
	case errors.Is(err, payment.ErrReasonRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Motivo da rejeição é obrigatório"})
		return
	case errors.Is(err, payment.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Fatura não encontrada"})
		return
	case err != nil:
		var transition *models.ErrInvalidTransition
		if errors.As(err, &transition) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Transição de estado inválida"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao rejeitar pagamento"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pagamento rejeitado"})
}

// adminCommissionRow is a commission joined with its referrer's identity
type adminCommissionRow struct {
	ID               uuid.UUID               `json:"id"`
	OrderID          uuid.UUID               `json:"order_id"`
	ReferrerCode     string                  `json:"referrer_code"`
	ReferrerName     string                  `json:"referrer_name"`
	ReferrerEmail    string                  `json:"referrer_email"`
	BeneficiaryEmail string                  `json:"beneficiary_email"`
	Amount           float64                 `json:"amount"`
	Status           models.CommissionStatus `json:"status"`
	PayoutID         *uuid.UUID              `json:"payout_id"`
}

// ListCommissions returns every commission with referrer details
func (h *AdminHandler) ListCommissions(c *gin.Context) {
	var rows []adminCommissionRow
	err := h.db.Model(&models.AffiliateCommission{}).
		Select("affiliate_commissions.id, affiliate_commissions.order_id, affiliate_commissions.referrer_code, affiliate_commissions.beneficiary_email, affiliate_commissions.amount, affiliate_commissions.status, affiliate_commissions.payout_id, users.name AS referrer_name, users.email AS referrer_email").
		Joins("LEFT JOIN users ON users.referral_code = affiliate_commissions.referrer_code").
		Order("affiliate_commissions.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao listar comissões"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"commissions": rows})
}

// ListPayouts returns every payout request with its owner
func (h *AdminHandler) ListPayouts(c *gin.Context) {
	payouts, err := h.payout.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao listar levantamentos"})
		return
	}

	rows := make([]gin.H, 0, len(payouts))
	for _, p := range payouts {
		rows = append(rows, gin.H{
			"id":            p.ID,
			"user_id":       p.UserID,
			"name":          p.User.Name,
			"email":         p.User.Email,
			"referral_code": p.User.ReferralCode,
			"valor":         p.Valor,
			"metodo":        p.Metodo,
			"mpesa_destino": p.MpesaDestino,
			"status":        p.Status,
			"notes":         p.Notes,
			"processed_at":  p.ProcessedAt,
			"created_at":    p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payouts": rows})
}

// UpdatePayout transitions a payout request and settles commissions on PAGO
func (h *AdminHandler) UpdatePayout(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		PayoutID string `json:"payout_id" binding:"required"`
		Status   string `json:"status" binding:"required"`
		Notes    string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "payout_id e status são obrigatórios"})
		return
	}
	payoutID, err := uuid.Parse(input.PayoutID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "payout_id inválido"})
		return
	}

	finalStatus, err := h.payout.UpdateStatus(payoutID, models.PayoutStatus(input.Status), adminID, input.Notes)
	switch {
	case errors.Is(err, affiliate.ErrPayoutNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Solicitação não encontrada"})
		return
	case err != nil:
		var transition *models.ErrInvalidTransition
		if errors.As(err, &transition) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Transição de estado inválida"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar levantamento"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pagamento de afiliado atualizado", "status": finalStatus})
}

// FraudPanel returns the advisory fraud signals
func (h *AdminHandler) FraudPanel(c *gin.Context) {
	selfReferrals, err := h.fraud.SelfReferralAttemptCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar sinais"})
		return
	}
	bursts, err := h.fraud.SuspiciousClickBursts(affiliate.DefaultBurstWindow, affiliate.DefaultBurstThreshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar sinais"})
		return
	}
	highConversion, err := h.fraud.HighConversionCodes(5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar sinais"})
		return
	}
	recommendations, err := h.fraud.AutoBlockRecommendations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar sinais"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"fraud": gin.H{
		"self_referral_attempts":     selfReferrals,
		"suspicious_click_bursts":    bursts,
		"high_conversion_codes":      highConversion,
		"auto_block_recommendations": recommendations,
	}})
}

// ConversionCSV streams the per-code conversion report as CSV
func (h *AdminHandler) ConversionCSV(c *gin.Context) {
	rows, err := h.ledger.ConversionRows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao exportar relatório"})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename=affiliate-conversion.csv")

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{"referrer_code", "total_orders", "approved_orders", "commission_total"})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.ReferrerCode,
			strconv.FormatInt(row.TotalOrders, 10),
			strconv.FormatInt(row.ApprovedOrders, 10),
			fmt.Sprintf("%.2f", row.CommissionTotal),
		})
	}
	writer.Flush()
}
