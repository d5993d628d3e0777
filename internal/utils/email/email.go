package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Dan9191/fintrack/internal/config"
	"github.com/Dan9191/fintrack/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendDigest sends a summary of the user's income and expenses over the last days
func (s *Sender) SendDigest(to, name string, days int, summary models.Summary) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Your finances for the last %d days", days)
	e.Text = []byte(digestBody(name, days, summary))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send digest to %s: %v", to, err)
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func digestBody(name string, days int, summary models.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "Here is what happened in the last %d days (%d transactions):\n\n", days, summary.Count)
	fmt.Fprintf(&b, "  Income:      %s\n", summary.Income.StringFixed(2))
	fmt.Fprintf(&b, "  Expenses:    %s\n", summary.Expense.StringFixed(2))
	fmt.Fprintf(&b, "  Net balance: %s\n", summary.NetBalance.StringFixed(2))

	if len(summary.ByCategory) > 0 {
		b.WriteString("\nBy category:\n")
		for _, c := range summary.ByCategory {
			fmt.Fprintf(&b, "  %-8s %-20s %s\n", c.TransactionType, c.Category, c.Total.StringFixed(2))
		}
	}
	b.WriteString("\nBest regards,\nFinance Tracker")
	return b.String()
}
