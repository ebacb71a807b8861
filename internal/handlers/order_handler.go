package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/models"
	"github.com/meritodocs/backend/internal/services/order"
)

// OrderHandler serves order creation and the payment proof cycle
type OrderHandler struct {
	db     *gorm.DB
	orders *order.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, orders *order.OrderService) *OrderHandler {
	return &OrderHandler{db: db, orders: orders}
}

// Create places an order and emits its invoice
func (h *OrderHandler) Create(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	var input order.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	createdOrder, invoice, err := h.orders.Create(user, input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao criar pedido"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Pedido criado",
		"order":   createdOrder,
		"invoice": invoice,
	})
}

// List returns the authenticated user's orders
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao listar pedidos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// SubmitProof attaches a payment proof to an invoice
func (h *OrderHandler) SubmitProof(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		InvoiceID string `json:"invoice_id" binding:"required"`
		ProofPath string `json:"proof_path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invoice_id e proof_path são obrigatórios"})
		return
	}
	invoiceID, err := uuid.Parse(input.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invoice_id inválido"})
		return
	}

	invoice, err := h.orders.SubmitPaymentProof(userID, invoiceID, input.ProofPath)
	switch {
	case errors.Is(err, order.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Fatura não encontrada"})
		return
	case errors.Is(err, order.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"message": "Acesso negado"})
		return
	case err != nil:
		var transition *models.ErrInvalidTransition
		if errors.As(err, &transition) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Transição de estado inválida"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao submeter comprovativo"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comprovativo submetido", "invoice": invoice})
}
