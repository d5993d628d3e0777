package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/fintrack/internal/models"
)

// MemoryRepository keeps users and transactions in process memory.
// It honours the same contract as Repository and backs tests and DB_CONN=memory.
type MemoryRepository struct {
	mu           sync.Mutex
	users        map[string]*models.User
	userOrder    []string
	transactions map[string]*models.Transaction
	txOrder      []string
	now          func() time.Time
}

// NewMemoryRepository returns an empty in-memory store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[string]*models.User),
		transactions: make(map[string]*models.Transaction),
		now:          time.Now,
	}
}

// Ping fails only once ctx is done
func (m *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Transactions = append([]string{}, u.Transactions...)
	return &c
}

// CreateUser stores a new user
func (m *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	now := m.now()
	user.CreatedAt, user.UpdatedAt = now, now
	user.Transactions = []string{}
	m.users[user.ID] = copyUser(user)
	m.userOrder = append(m.userOrder, user.ID)
	return nil
}

// FindUserByID retrieves a user by id
func (m *MemoryRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

// FindUserByEmail retrieves a user by email
func (m *MemoryRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

// ListUsers returns every user in creation order
func (m *MemoryRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]models.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		users = append(users, *copyUser(m.users[id]))
	}
	return users, nil
}

// CreateTransaction stores t and links it to its owner
func (m *MemoryRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.users[t.UserID]
	if !ok {
		return ErrUserNotFound
	}
	now := m.now()
	t.CreatedAt, t.UpdatedAt = now, now
	stored := *t
	m.transactions[t.ID] = &stored
	m.txOrder = append(m.txOrder, t.ID)
	owner.Transactions = append(owner.Transactions, t.ID)
	owner.UpdatedAt = now
	return nil
}

// FindTransactions returns the transactions matching q ordered by date then insertion
func (m *MemoryRepository) FindTransactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Transaction{}
	for _, id := range m.txOrder {
		if t := m.transactions[id]; q.Matches(*t) {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// FindTransactionByID retrieves a transaction by id
func (m *MemoryRepository) FindTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	c := *t
	return &c, nil
}

// UpdateTransaction stores every mutable field of t
func (m *MemoryRepository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.transactions[t.ID]
	if !ok {
		return ErrTransactionNotFound
	}
	stored.Date = t.Date
	stored.Title = t.Title
	stored.Amount = t.Amount
	stored.TransactionType = t.TransactionType
	stored.Category = t.Category
	stored.UpdatedAt = m.now()
	t.UpdatedAt = stored.UpdatedAt
	return nil
}

// DeleteTransaction removes a transaction owned by ownerID and unlinks it
func (m *MemoryRepository) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[id]
	if !ok || t.UserID != ownerID {
		return ErrTransactionNotFound
	}
	delete(m.transactions, id)
	m.txOrder = removeID(m.txOrder, id)
	if owner, ok := m.users[ownerID]; ok {
		owner.Transactions = removeID(owner.Transactions, id)
		owner.UpdatedAt = m.now()
	}
	return nil
}

// Reconcile repairs linkage drift the same way Repository.Reconcile does
func (m *MemoryRepository) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report models.ReconcileReport
	for _, u := range m.users {
		kept := u.Transactions[:0:0]
		for _, id := range u.Transactions {
			if t, ok := m.transactions[id]; ok && t.UserID == u.ID {
				kept = append(kept, id)
			} else {
				report.Unlinked++
			}
		}
		u.Transactions = kept
	}

	for _, id := range m.txOrder {
		t := m.transactions[id]
		if owner, ok := m.users[t.UserID]; ok && !owner.HasTransaction(id) {
			owner.Transactions = append(owner.Transactions, id)
			report.Relinked++
		}
	}
	return report, nil
}

// UnlinkForTest drops id from the user's list without touching the transaction,
// simulating drift left by an interrupted writer.
func (m *MemoryRepository) UnlinkForTest(userID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.Transactions = removeID(u.Transactions, id)
	}
}

// LinkForTest appends id to the user's list without creating a transaction.
func (m *MemoryRepository) LinkForTest(userID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.Transactions = append(u.Transactions, id)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
