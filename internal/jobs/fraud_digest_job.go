package jobs

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-co-op/gocron"

	"github.com/meritodocs/backend/internal/services/affiliate"
)

// DigestMailer sends the daily fraud summary
type DigestMailer interface {
	SendFraudDigest(adminEmail, digestHTML string) error
}

// FraudDigestJob emails the back-office a daily summary of fraud signals
type FraudDigestJob struct {
	fraud      *affiliate.FraudSignalEngine
	mailer     DigestMailer
	adminEmail string
}

// NewFraudDigestJob creates a new fraud digest job
func NewFraudDigestJob(fraud *affiliate.FraudSignalEngine, mailer DigestMailer, adminEmail string) *FraudDigestJob {
	return &FraudDigestJob{fraud: fraud, mailer: mailer, adminEmail: adminEmail}
}

// Run builds and sends one digest
func (j *FraudDigestJob) Run() {
	if j.adminEmail == "" {
		return
	}

	selfReferrals, err := j.fraud.SelfReferralAttemptCount()
	if err != nil {
		log.Printf("fraud digest: failed to count self referrals: %v", err)
		return
	}
	recommendations, err := j.fraud.AutoBlockRecommendations()
	if err != nil {
		log.Printf("fraud digest: failed to load recommendations: %v", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Tentativas de auto-indicação registadas: %d</p>", selfReferrals)
	if len(recommendations) == 0 {
		b.WriteString("<p>Sem recomendações de bloqueio.</p>")
	} else {
		b.WriteString("<p>Recomendações de bloqueio:</p><ul>")
		for _, rec := range recommendations {
			fmt.Fprintf(&b, "<li>%s: %s (%s)</li>", rec.Code, rec.Reason, rec.Severity)
		}
		b.WriteString("</ul>")
	}

	if err := j.mailer.SendFraudDigest(j.adminEmail, b.String()); err != nil {
		log.Printf("fraud digest: failed to send: %v", err)
	}
}

// Schedule registers the daily digest
func (j *FraudDigestJob) Schedule(s *gocron.Scheduler) error {
	_, err := s.Every(1).Day().At("07:00").Do(j.Run)
	return err
}
