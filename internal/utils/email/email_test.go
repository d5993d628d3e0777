package email

import (
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"

	"github.com/Dan9191/fintrack/internal/config"
	"github.com/Dan9191/fintrack/internal/models"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func newTestSender(send func(e *email.Email, addr string, auth smtp.Auth) error) *Sender {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := NewSender(&config.Config{SMTPHost: "smtp.test", SMTPPort: "2525", SenderEmail: "bot@test"}, log)
	s.send = send
	return s
}

func TestSendDigest(t *testing.T) {
	var got *email.Email
	var gotAddr string
	s := newTestSender(func(e *email.Email, addr string, auth smtp.Auth) error {
		got, gotAddr = e, addr
		if auth != nil {
			t.Error("no credentials configured, auth should be nil")
		}
		return nil
	})

	summary := models.Summarize([]models.Transaction{
		{TransactionType: models.Income, Category: "salary", Amount: decimal.NewFromInt(1000)},
		{TransactionType: models.Expense, Category: "rent", Amount: decimal.NewFromInt(400)},
	})
	if err := s.SendDigest("ann@example.com", "Ann", 7, summary); err != nil {
		t.Fatalf("SendDigest: %v", err)
	}

	if gotAddr != "smtp.test:2525" {
		t.Errorf("addr = %s", gotAddr)
	}
	if got.From != "bot@test" || len(got.To) != 1 || got.To[0] != "ann@example.com" {
		t.Errorf("envelope = %s -> %v", got.From, got.To)
	}
	body := string(got.Text)
	for _, want := range []string{"Dear Ann", "last 7 days", "Net balance: 600.00", "rent"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSendDigestError(t *testing.T) {
	s := newTestSender(func(*email.Email, string, smtp.Auth) error { return errors.New("refused") })
	if err := s.SendDigest("a@b", "A", 7, models.Summary{}); err == nil {
		t.Fatal("expected error")
	}
}
