package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/meritodocs/backend/internal/services/order"
)

// OverdueInvoiceJob flags emitted invoices past their due date as VENCIDA
type OverdueInvoiceJob struct {
	orders *order.OrderService
}

// NewOverdueInvoiceJob creates a new overdue invoice job
func NewOverdueInvoiceJob(orders *order.OrderService) *OverdueInvoiceJob {
	return &OverdueInvoiceJob{orders: orders}
}

// Run executes one sweep
func (j *OverdueInvoiceJob) Run() {
	count, err := j.orders.MarkOverdue(time.Now())
	if err != nil {
		log.Printf("overdue invoice sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("marked %d invoices as overdue", count)
	}
}

// Schedule registers the nightly sweep
func (j *OverdueInvoiceJob) Schedule(s *gocron.Scheduler) error {
	_, err := s.Every(1).Day().At("02:00").Do(j.Run)
	return err
}
