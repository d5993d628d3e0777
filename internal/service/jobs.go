package service

import (
	"context"

	"github.com/Dan9191/fintrack/internal/models"
	"github.com/sirupsen/logrus"
)

// DigestMailer delivers a periodic summary to one user.
type DigestMailer interface {
	SendDigest(to, name string, days int, summary models.Summary) error
}

// Reconcile repairs user/transaction linkage drift and logs what it fixed
func (s *Service) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	report, err := s.repo.Reconcile(ctx)
	if err != nil {
		return report, storageError(err)
	}
	entry := s.log.WithFields(logrus.Fields{
		"relinked": report.Relinked,
		"unlinked": report.Unlinked,
	})
	if report.Relinked > 0 || report.Unlinked > 0 {
		entry.Warn("Reconciliation repaired linkage drift")
	} else {
		entry.Debug("Reconciliation found no drift")
	}
	return report, nil
}

// SendDigests mails every user with activity in the last days a summary of it.
// A failure for one user is logged and does not stop the others.
func (s *Service) SendDigests(ctx context.Context, mailer DigestMailer, days int) (int, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return 0, storageError(err)
	}

	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		f := models.TransactionFilter{
			UserID: user.ID,
			Date:   models.DateFilter{Kind: models.RollingWindow, Days: days},
		}
		transactions, err := s.repo.FindTransactions(ctx, f.Resolve(s.now()))
		if err != nil {
			s.log.WithField("user_id", user.ID).Warnf("Failed to load digest transactions: %v", err)
			continue
		}
		if len(transactions) == 0 {
			continue
		}
		if err := mailer.SendDigest(user.Email, user.Name, days, models.Summarize(transactions)); err != nil {
			s.log.WithField("user_id", user.ID).Warnf("Failed to send digest: %v", err)
			continue
		}
		sent++
	}

	s.log.Infof("Sent %d digests for the last %d days", sent, days)
	return sent, nil
}
