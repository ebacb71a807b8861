package models

import "fmt"

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceEmitida           InvoiceStatus = "EMITIDA"
	InvoicePendenteValidacao InvoiceStatus = "PENDENTE_VALIDACAO"
	InvoicePaga              InvoiceStatus = "PAGA"
	InvoiceRejeitada         InvoiceStatus = "REJEITADA"
	InvoiceVencida           InvoiceStatus = "VENCIDA"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPendentePagamento OrderStatus = "PENDENTE_PAGAMENTO"
	OrderEmExecucao        OrderStatus = "EM_EXECUCAO"
	OrderConcluido         OrderStatus = "CONCLUIDO"
	OrderCancelado         OrderStatus = "CANCELADO"
)

// CommissionStatus is the lifecycle state of an affiliate commission
type CommissionStatus string

const (
	CommissionPendente CommissionStatus = "PENDENTE"
	CommissionAprovada CommissionStatus = "APROVADA"
	CommissionPago     CommissionStatus = "PAGO"
)

// PayoutStatus is the lifecycle state of an affiliate payout request
type PayoutStatus string

const (
	PayoutSolicitado PayoutStatus = "SOLICITADO"
	PayoutAprovado   PayoutStatus = "APROVADO"
	PayoutPendente   PayoutStatus = "PENDENTE"
	PayoutPago       PayoutStatus = "PAGO"
	PayoutRejeitado  PayoutStatus = "REJEITADO"
)

// invoiceTransitions lists the allowed invoice state changes. PAGA is terminal.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceEmitida:           {InvoicePendenteValidacao, InvoicePaga, InvoiceVencida},
	InvoicePendenteValidacao: {InvoicePaga, InvoiceRejeitada},
	InvoiceRejeitada:         {InvoicePendenteValidacao},
	InvoiceVencida:           {InvoicePendenteValidacao, InvoicePaga},
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPendentePagamento: {OrderEmExecucao, OrderCancelado},
	OrderEmExecucao:        {OrderConcluido, OrderPendentePagamento, OrderCancelado},
	OrderConcluido:         {},
	OrderCancelado:         {},
}

var commissionTransitions = map[CommissionStatus][]CommissionStatus{
	CommissionPendente: {CommissionAprovada},
	CommissionAprovada: {CommissionPago},
	CommissionPago:     {},
}

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutSolicitado: {PayoutPago, PayoutRejeitado, PayoutPendente},
	PayoutPendente:   {PayoutPago, PayoutRejeitado},
	PayoutAprovado:   {PayoutPago, PayoutRejeitado},
	PayoutPago:       {},
	PayoutRejeitado:  {},
}

// ErrInvalidTransition reports an illegal state change
type ErrInvalidTransition struct {
	Entity string
	From   string
	To     string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the invoice may move to the target status.
// A same-status update is always allowed (idempotent writes).
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	return s == target || contains(invoiceTransitions[s], target)
}

// ValidateTransition returns an ErrInvalidTransition when the change is not allowed
func (s InvoiceStatus) ValidateTransition(target InvoiceStatus) error {
	if !s.CanTransitionTo(target) {
		return &ErrInvalidTransition{Entity: "invoice", From: string(s), To: string(target)}
	}
	return nil
}

// CanTransitionTo reports whether the order may move to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return s == target || contains(orderTransitions[s], target)
}

// ValidateTransition returns an ErrInvalidTransition when the change is not allowed
func (s OrderStatus) ValidateTransition(target OrderStatus) error {
	if !s.CanTransitionTo(target) {
		return &ErrInvalidTransition{Entity: "order", From: string(s), To: string(target)}
	}
	return nil
}

// CanTransitionTo reports whether the commission may move to the target status
func (s CommissionStatus) CanTransitionTo(target CommissionStatus) bool {
	return s == target || contains(commissionTransitions[s], target)
}

// ValidateTransition returns an ErrInvalidTransition when the change is not allowed
func (s CommissionStatus) ValidateTransition(target CommissionStatus) error {
	if !s.CanTransitionTo(target) {
		return &ErrInvalidTransition{Entity: "commission", From: string(s), To: string(target)}
	}
	return nil
}

// CanTransitionTo reports whether the payout may move to the target status
func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	return s == target || contains(payoutTransitions[s], target)
}

// ValidateTransition returns an ErrInvalidTransition when the change is not allowed
func (s PayoutStatus) ValidateTransition(target PayoutStatus) error {
	if !s.CanTransitionTo(target) {
		return &ErrInvalidTransition{Entity: "payout", From: string(s), To: string(target)}
	}
	return nil
}

// NormalizePayoutStatus applies the approval business rule: an admin choosing
// APROVADO immediately settles the payout, so it is stored as PAGO.
func NormalizePayoutStatus(s PayoutStatus) PayoutStatus {
	if s == PayoutAprovado {
		return PayoutPago
	}
	return s
}
