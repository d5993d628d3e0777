package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Dan9191/fintrack/internal/config"
	"github.com/Dan9191/fintrack/internal/models"
	"github.com/Dan9191/fintrack/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Store is the persistence contract. Both the Postgres and the in-memory
// repositories satisfy it.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateTransaction(ctx context.Context, t *models.Transaction) error
	FindTransactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error)
	FindTransactionByID(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, id, ownerID string) error

	Reconcile(ctx context.Context) (models.ReconcileReport, error)
}

// EventPublisher receives transaction change events after they commit.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event models.TransactionEvent) error
}

// Service handles business logic
type Service struct {
	repo      Store
	log       *logrus.Logger
	config    *config.Config
	publisher EventPublisher
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sends transaction events to p.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces time.Now, which rolling windows are measured from.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService initializes a new service
func NewService(repo Store, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{repo: repo, log: log, config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the store is reachable
func (s *Service) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Register creates a new user with hashed password and returns a session token
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, "", validationError("Name, email and password are required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", validationError("Email address is invalid.")
	}
	if len(password) < minPasswordLength {
		return nil, "", validationError(fmt.Sprintf("Password must be at least %d characters.", minPasswordLength))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", storageError(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", storageError(err)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.WithField("user_id", user.ID).Infof("User registered: %s", user.Email)
	return user, token, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", storageError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.WithField("user_id", user.ID).Infof("User logged in: %s", user.Email)
	return user, token, nil
}

func (s *Service) issueToken(userID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", storageError(fmt.Errorf("failed to generate token: %w", err))
	}
	return tokenString, nil
}

// GetUser returns the user with the given id
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, id)
}

func (s *Service) findUser(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.repo.FindUserByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return user, nil
}
