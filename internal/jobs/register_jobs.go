package jobs

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/meritodocs/backend/internal/services/affiliate"
	"github.com/meritodocs/backend/internal/services/order"
)

// ScheduleRecurringJobs wires every recurring job into one scheduler and
// starts it in the background
func ScheduleRecurringJobs(orders *order.OrderService, fraud *affiliate.FraudSignalEngine, mailer DigestMailer, adminEmail string) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)

	overdueJob := NewOverdueInvoiceJob(orders)
	if err := overdueJob.Schedule(scheduler); err != nil {
		return nil, err
	}

	digestJob := NewFraudDigestJob(fraud, mailer, adminEmail)
	if err := digestJob.Schedule(scheduler); err != nil {
		return nil, err
	}

	scheduler.StartAsync()
	return scheduler, nil
}
