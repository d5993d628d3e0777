package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/fintrack/internal/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrEmailTaken          = errors.New("email already registered")
)

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks that the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Transactions = []string{}
	return nil
}

const userColumns = `id, name, email, password_hash, transaction_ids, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var ids []string
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		pq.Array(&ids), &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	user.Transactions = ids
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by creation
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateTransaction inserts the transaction and appends its id to the owner's
// linkage list in one database transaction.
func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET transaction_ids = array_append(transaction_ids, $1), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("failed to link transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to link transaction: %w", err)
	} else if n == 0 {
		return ErrUserNotFound
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, owner_id, date, title, amount, transaction_type, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.Date, t.Title, t.Amount, string(t.TransactionType), t.Category).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, owner_id, date, title, amount, transaction_type, category, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	t := &models.Transaction{}
	var typ string
	if err := row.Scan(&t.ID, &t.UserID, &t.Date, &t.Title, &t.Amount, &typ,
		&t.Category, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.TransactionType = models.TransactionType(typ)
	t.Date = models.CalendarDay(t.Date)
	return t, nil
}

// buildTransactionQuery renders q as a SELECT with positional arguments.
func buildTransactionQuery(q models.TransactionQuery) (string, []any) {
	conds := []string{"owner_id = $1"}
	args := []any{q.OwnerID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Type != "" {
		add("transaction_type = $%d", string(q.Type))
	}
	if q.After != nil {
		add("date > $%d", *q.After)
	}
	if q.From != nil {
		add("date >= $%d", *q.From)
	}
	if q.To != nil {
		add("date <= $%d", *q.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date, created_at, id`
	return query, args
}

// FindTransactions returns the transactions matching q
func (r *Repository) FindTransactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error) {
	query, args := buildTransactionQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return transactions, nil
}

// FindTransactionByID retrieves a transaction by id
func (r *Repository) FindTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction stores every mutable field of t
func (r *Repository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET date = $2, title = $3, amount = $4, transaction_type = $5, category = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.Date, t.Title, t.Amount, string(t.TransactionType), t.Category).
		Scan(&t.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a transaction owned by ownerID and drops its id from
// the owner's linkage list in one database transaction.
func (r *Repository) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	} else if n == 0 {
		return ErrTransactionNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET transaction_ids = array_remove(transaction_ids, $1), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`, id, ownerID); err != nil {
		return fmt.Errorf("failed to unlink transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const relinkQuery = `
	UPDATE users u
	SET transaction_ids = u.transaction_ids || missing.ids, updated_at = CURRENT_TIMESTAMP
	FROM (
		SELECT t.owner_id, array_agg(t.id ORDER BY t.created_at, t.id) AS ids
		FROM transactions t
		JOIN users o ON o.id = t.owner_id
		WHERE NOT (t.id = ANY (o.transaction_ids))
		GROUP BY t.owner_id
	) AS missing
	WHERE u.id = missing.owner_id
	RETURNING cardinality(missing.ids)`

const unlinkQuery = `
	UPDATE users u
	SET transaction_ids = kept.ids, updated_at = CURRENT_TIMESTAMP
	FROM (
		SELECT o.id,
			COALESCE(array_agg(x.tid ORDER BY x.ord) FILTER (WHERE t.id IS NOT NULL), '{}') AS ids,
			count(*) FILTER (WHERE t.id IS NULL) AS dropped
		FROM users o
		CROSS JOIN LATERAL unnest(o.transaction_ids) WITH ORDINALITY AS x(tid, ord)
		LEFT JOIN transactions t ON t.id = x.tid AND t.owner_id = o.id
		GROUP BY o.id
	) AS kept
	WHERE u.id = kept.id AND kept.dropped > 0
	RETURNING kept.dropped`

// Reconcile repairs linkage drift: transactions missing from their owner's list
// are appended, and list entries without a matching owned transaction are dropped.
func (r *Repository) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	var report models.ReconcileReport

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if report.Unlinked, err = sumReturned(ctx, tx, unlinkQuery); err != nil {
		return models.ReconcileReport{}, fmt.Errorf("failed to drop stale links: %w", err)
	}
	if report.Relinked, err = sumReturned(ctx, tx, relinkQuery); err != nil {
		return models.ReconcileReport{}, fmt.Errorf("failed to relink transactions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.ReconcileReport{}, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	return report, nil
}

func sumReturned(ctx context.Context, tx *sql.Tx, query string) (int, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
		total += n
	}
	return total, rows.Err()
}
