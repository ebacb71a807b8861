package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/services/affiliate"
)

// AffiliateHandler serves the affiliate-facing endpoints: summary, payout
// requests and anonymous click tracking.
type AffiliateHandler struct {
	db     *gorm.DB
	ledger *affiliate.CommissionLedger
	payout *affiliate.PayoutManager
	fraud  *affiliate.FraudSignalEngine
}

// NewAffiliateHandler creates a new affiliate handler
func NewAffiliateHandler(db *gorm.DB, ledger *affiliate.CommissionLedger, payout *affiliate.PayoutManager, fraud *affiliate.FraudSignalEngine) *AffiliateHandler {
	return &AffiliateHandler{db: db, ledger: ledger, payout: payout, fraud: fraud}
}

// Summary returns the authenticated affiliate's commissions, totals, payouts,
// balances and click stats
func (h *AffiliateHandler) Summary(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	code := user.ReferralCode
	if code == "" {
		c.JSON(http.StatusOK, gin.H{
			"commissions": []models.AffiliateCommission{},
			"totals":      affiliate.CommissionTotals{},
			"payouts":     []models.AffiliatePayout{},
		})
		return
	}

	commissions, err := h.ledger.ListForCode(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar comissões"})
		return
	}
	totals, err := h.ledger.TotalsByStatus(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar totais"})
		return
	}
	payouts, err := h.payout.ListForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar levantamentos"})
		return
	}
	outstanding, err := h.payout.OutstandingForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao calcular pendentes"})
		return
	}
	approved, err := h.ledger.TotalAvailable(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao calcular saldo"})
		return
	}
	available := approved - outstanding
	if available < 0 {
		available = 0
	}

	var referredCount int64
	if err := h.db.Model(&models.User{}).Where("referred_by = ?", code).Count(&referredCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao contar indicados"})
		return
	}
	clicks, err := h.fraud.Stats(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao carregar cliques"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commissions": commissions,
		"totals":      totals,
		"payouts":     payouts,
		"code":        code,
		"available":   available,
		"outstanding": outstanding,
		"stats": gin.H{
			"referred_count": referredCount,
			"clicks_total":   clicks.Total,
			"clicks_unique":  clicks.Unique,
			"clicks_today":   clicks.Today,
		},
	})
}

// RequestPayout opens a withdrawal request for the full available balance
func (h *AffiliateHandler) RequestPayout(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	var input struct {
		Metodo string `json:"metodo"`
		Notes  string `json:"notes"`
		Mpesa  string `json:"mpesa"`
	}
	// body is optional; every field has a default
	_ = c.ShouldBindJSON(&input)

	payout, err := h.payout.RequestPayout(user, input.Metodo, input.Notes, input.Mpesa)
	switch {
	case errors.Is(err, affiliate.ErrNoReferralCode):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Não existe código de afiliado"})
		return
	case errors.Is(err, affiliate.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Sem saldo disponível para levantamento"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao registar pedido"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pedido registado", "payout_id": payout.ID})
}

// TrackClick records an anonymous click on an affiliate link
func (h *AffiliateHandler) TrackClick(c *gin.Context) {
	var input struct {
		Code    string `json:"code"`
		Visitor string `json:"visitor"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Código de afiliado obrigatório"})
		return
	}

	err := h.fraud.RecordClick(c.Request.Context(), input.Code, input.Visitor, c.GetHeader("Referer"), c.GetHeader("User-Agent"))
	if errors.Is(err, affiliate.ErrUnknownCode) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Código inválido"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao registar clique"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "click tracked"})
}
