package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/fintrack/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestBuildTransactionQuery(t *testing.T) {
	after := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		q         models.TransactionQuery
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "owner only",
			q:         models.TransactionQuery{OwnerID: "u1"},
			wantWhere: "WHERE owner_id = $1 ORDER BY",
			wantArgs:  1,
		},
		{
			name:      "type and rolling window",
			q:         models.TransactionQuery{OwnerID: "u1", Type: models.Income, After: &after},
			wantWhere: "WHERE owner_id = $1 AND transaction_type = $2 AND date > $3 ORDER BY",
			wantArgs:  3,
		},
		{
			name:      "inclusive range",
			q:         models.TransactionQuery{OwnerID: "u1", From: &from, To: &to},
			wantWhere: "WHERE owner_id = $1 AND date >= $2 AND date <= $3 ORDER BY",
			wantArgs:  3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildTransactionQuery(tt.q)
			if !strings.Contains(query, tt.wantWhere) {
				t.Errorf("query %q does not contain %q", query, tt.wantWhere)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("got %d args, want %d", len(args), tt.wantArgs)
			}
			if args[0] != "u1" {
				t.Errorf("first arg = %v, want owner id", args[0])
			}
		})
	}
}

func TestCreateTransactionLinksInSameTransaction(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	tx := &models.Transaction{
		ID: "t1", UserID: "u1", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Title: "salary", Amount: decimal.NewFromInt(100), TransactionType: models.Income, Category: "work",
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET transaction_ids = array_append(transaction_ids, $1)")).
		WithArgs("t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transactions")).
		WithArgs("t1", "u1", tx.Date, "salary", sqlmock.AnyArg(), "income", "work").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if !tx.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt not populated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateTransactionUnknownUserRollsBack(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("array_append")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateTransaction(context.Background(), &models.Transaction{ID: "t1", UserID: "missing"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("unlinks owner", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions WHERE id = $1 AND owner_id = $2")).
			WithArgs("t1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("array_remove(transaction_ids, $1)")).
			WithArgs("t1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := repo.DeleteTransaction(context.Background(), "t1", "u1"); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("missing transaction", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.DeleteTransaction(context.Background(), "t1", "u1")
		if !errors.Is(err, ErrTransactionNotFound) {
			t.Fatalf("err = %v, want ErrTransactionNotFound", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestFindUserByID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "transaction_ids", "created_at", "updated_at"}).
			AddRow("u1", "Ann", "ann@example.com", "hash", "{t1,t2}", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("u2").
		WillReturnError(sql.ErrNoRows)

	user, err := repo.FindUserByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindUserByID: %v", err)
	}
	if len(user.Transactions) != 2 || user.Transactions[1] != "t2" {
		t.Errorf("Transactions = %v", user.Transactions)
	}

	if _, err := repo.FindUserByID(context.Background(), "u2"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateUser(context.Background(), &models.User{ID: "u1", Email: "ann@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestFindTransactionsScansRows(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE owner_id = $1 AND transaction_type = $2")).
		WithArgs("u1", "expense").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "date", "title", "amount", "transaction_type", "category", "created_at", "updated_at"}).
			AddRow("t1", "u1", date, "coffee", "3.50", "expense", "food", now, now))

	got, err := repo.FindTransactions(context.Background(), models.TransactionQuery{OwnerID: "u1", Type: models.Expense})
	if err != nil {
		t.Fatalf("FindTransactions: %v", err)
	}
	if len(got) != 1 || !got[0].Amount.Equal(decimal.RequireFromString("3.5")) || got[0].TransactionType != models.Expense {
		t.Fatalf("got %+v", got)
	}
}

func TestReconcileSumsRepairs(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WITH ORDINALITY")).
		WillReturnRows(sqlmock.NewRows([]string{"dropped"}).AddRow(2).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("cardinality(missing.ids)")).
		WillReturnRows(sqlmock.NewRows([]string{"cardinality"}).AddRow(4))
	mock.ExpectCommit()

	report, err := repo.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Unlinked != 3 || report.Relinked != 4 {
		t.Fatalf("report = %+v", report)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
