package email

import (
	"fmt"
	"net/smtp"

	"github.com/meritodocs/backend/internal/config"
)

// EmailService handles sending transactional emails over SMTP. Sends are
// synchronous and best-effort: callers log failures and move on, the primary
// state transition never depends on delivery.
type EmailService struct {
	cfg config.SMTPConfig
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Send sends an email with HTML content
func (s *EmailService) Send(toEmail, subject, htmlBody string) error {
	if s.cfg.Host == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("email service not configured")
	}

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	from := fmt.Sprintf("From: MeritoDocs <%s>\n", s.cfg.FromEmail)
	to := fmt.Sprintf("To: %s\n", toEmail)
	subjectLine := fmt.Sprintf("Subject: %s\n", subject)

	message := []byte(from + to + subjectLine + mime + wrapBody(htmlBody))

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := s.cfg.Host + ":" + s.cfg.Port

	return smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{toEmail}, message)
}

// SendPaymentApproved notifies the order owner that the payment was confirmed
func (s *EmailService) SendPaymentApproved(toEmail, invoiceNumber string) error {
	body := fmt.Sprintf("<p>Pagamento confirmado para a fatura %s. O seu trabalho segue para execução.</p>", invoiceNumber)
	return s.Send(toEmail, "Pagamento aprovado", body)
}

// SendPaymentRejected notifies the order owner that the proof was rejected
func (s *EmailService) SendPaymentRejected(toEmail, invoiceNumber, reason string) error {
	body := fmt.Sprintf("<p>O comprovativo da fatura %s foi rejeitado.</p><p>Motivo: %s.</p><p>Envie um novo ficheiro ou contacte o suporte.</p>", invoiceNumber, reason)
	return s.Send(toEmail, "Pagamento rejeitado", body)
}

// SendPayoutRequested confirms a withdrawal request to the affiliate
func (s *EmailService) SendPayoutRequested(toEmail, payoutID string, valor float64) error {
	body := fmt.Sprintf("<p>Solicitação %s no valor de %.2f MZN.</p>", payoutID, valor)
	return s.Send(toEmail, "Pedido de levantamento recebido", body)
}

// SendPayoutAlert notifies the back-office address of a new withdrawal request
func (s *EmailService) SendPayoutAlert(adminEmail, affiliateEmail string, valor float64, destination string) error {
	if destination == "" {
		destination = "conta não informada"
	}
	body := fmt.Sprintf("<p>O afiliado %s solicitou %.2f MZN para %s.</p>", affiliateEmail, valor, destination)
	return s.Send(adminEmail, "Novo levantamento de afiliado", body)
}

// SendPayoutStatusUpdate notifies the affiliate of a payout status change
func (s *EmailService) SendPayoutStatusUpdate(toEmail, payoutID, status string) error {
	body := fmt.Sprintf("<p>Estado da sua solicitação %s: %s.</p>", payoutID, status)
	return s.Send(toEmail, "Atualização do pagamento de afiliado", body)
}

// SendFraudDigest sends the daily fraud summary to the back-office address
func (s *EmailService) SendFraudDigest(adminEmail, digestHTML string) error {
	return s.Send(adminEmail, "Resumo diário de sinais de fraude", digestHTML)
}

func wrapBody(inner string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #1D4ED8; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>MeritoDocs</h1>
			</div>
			<div class="content">
				%s
				<p>Cumprimentos,<br>A equipa MeritoDocs</p>
			</div>
		</div>
	</body>
	</html>
	`, inner)
}
