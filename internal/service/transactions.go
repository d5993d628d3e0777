package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Dan9191/fintrack/internal/models"
	"github.com/Dan9191/fintrack/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AddTransaction validates in, stores a new transaction and links it to its owner
func (s *Service) AddTransaction(ctx context.Context, in models.NewTransaction) (*models.Transaction, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Date.IsZero() || in.Title == "" || in.Amount == nil || in.TransactionType == "" ||
		in.Category == "" || in.UserID == "" {
		return nil, validationError("All fields are required.")
	}
	if !in.TransactionType.Valid() {
		return nil, validationError("Transaction type must be income or expense.")
	}

	user, err := s.findUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	t := &models.Transaction{
		ID:              uuid.NewString(),
		Date:            models.CalendarDay(in.Date),
		Title:           in.Title,
		Amount:          *in.Amount,
		TransactionType: in.TransactionType,
		Category:        in.Category,
		UserID:          user.ID,
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError(err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        user.ID,
		"transaction_id": t.ID,
		"type":           t.TransactionType,
	}).Infof("Transaction added: %s %s", t.Title, t.Amount)
	s.publish(ctx, models.TransactionCreated, t.ID, t.UserID, t)
	return t, nil
}

// GetTransactions lists the user's transactions matching f
func (s *Service) GetTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	user, err := s.findUser(ctx, f.UserID)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, validationError(err.Error())
	}

	transactions, err := s.repo.FindTransactions(ctx, f.Resolve(s.now()))
	if err != nil {
		return nil, storageError(err)
	}
	s.log.WithField("user_id", user.ID).Debugf("Listed %d transactions", len(transactions))
	return transactions, nil
}

// Summary totals the user's transactions matching f
func (s *Service) Summary(ctx context.Context, f models.TransactionFilter) (*models.Summary, error) {
	transactions, err := s.GetTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	summary := models.Summarize(transactions)
	return &summary, nil
}

// DeleteTransaction removes a transaction owned by userID and unlinks it.
// A transaction owned by someone else is reported as not found.
func (s *Service) DeleteTransaction(ctx context.Context, transactionID, userID string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(transactionID); err != nil {
		return ErrTransactionNotFound
	}

	if err := s.repo.DeleteTransaction(ctx, transactionID, user.ID); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		return storageError(err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        user.ID,
		"transaction_id": transactionID,
	}).Info("Transaction deleted")
	s.publish(ctx, models.TransactionDeleted, transactionID, user.ID, nil)
	return nil
}

// UpdateTransaction applies the present fields of patch. When callerID is set the
// transaction must belong to that user.
func (s *Service) UpdateTransaction(ctx context.Context, transactionID, callerID string, patch models.TransactionPatch) (*models.Transaction, error) {
	t, err := s.findTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if callerID != "" && t.UserID != callerID {
		return nil, ErrTransactionNotFound
	}
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return t, nil
	}

	patch.Apply(t)
	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, storageError(err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        t.UserID,
		"transaction_id": t.ID,
	}).Info("Transaction updated")
	s.publish(ctx, models.TransactionUpdated, t.ID, t.UserID, t)
	return t, nil
}

func (s *Service) findTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTransactionNotFound
	}
	t, err := s.repo.FindTransactionByID(ctx, id)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return t, nil
}

// validatePatch trims text fields in place and rejects present-but-invalid values.
func validatePatch(p *models.TransactionPatch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return validationError("Title cannot be empty.")
		}
		p.Title = &title
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		if category == "" {
			return validationError("Category cannot be empty.")
		}
		p.Category = &category
	}
	if p.TransactionType != nil && !p.TransactionType.Valid() {
		return validationError("Transaction type must be income or expense.")
	}
	if p.Date != nil {
		if p.Date.IsZero() {
			return validationError("Date cannot be empty.")
		}
		day := models.CalendarDay(*p.Date)
		p.Date = &day
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ models.EventType, transactionID, userID string, t *models.Transaction) {
	if s.publisher == nil {
		return
	}
	event := models.TransactionEvent{
		Type:          typ,
		TransactionID: transactionID,
		UserID:        userID,
		Transaction:   t,
		OccurredAt:    s.now(),
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		s.log.WithFields(logrus.Fields{
			"event":          typ,
			"transaction_id": transactionID,
		}).Warnf("Failed to publish event: %v", err)
	}
}
