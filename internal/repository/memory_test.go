package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/fintrack/internal/models"
	"github.com/shopspring/decimal"
)

func seedUser(t *testing.T, m *MemoryRepository, id, email string) {
	t.Helper()
	if err := m.CreateUser(context.Background(), &models.User{ID: id, Name: id, Email: email}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

func seedTx(t *testing.T, m *MemoryRepository, id, owner, date string) {
	t.Helper()
	d, _ := models.ParseDate(date)
	tx := &models.Transaction{ID: id, UserID: owner, Date: d, Title: id, Amount: decimal.NewFromInt(1),
		TransactionType: models.Expense, Category: "misc"}
	if err := m.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
}

func TestMemoryCreateUserRejectsDuplicateEmail(t *testing.T) {
	m := NewMemoryRepository()
	seedUser(t, m, "u1", "ann@example.com")
	err := m.CreateUser(context.Background(), &models.User{ID: "u2", Email: "ANN@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestMemoryCreateAndDeleteMaintainLinkage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepository()
	seedUser(t, m, "u1", "a@x")
	seedUser(t, m, "u2", "b@x")
	seedTx(t, m, "t1", "u1", "2025-01-02")
	seedTx(t, m, "t2", "u1", "2025-01-01")

	if err := m.CreateTransaction(ctx, &models.Transaction{ID: "t3", UserID: "ghost"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}

	u, _ := m.FindUserByID(ctx, "u1")
	if len(u.Transactions) != 2 || u.Transactions[0] != "t1" || u.Transactions[1] != "t2" {
		t.Fatalf("linkage = %v, want insertion order [t1 t2]", u.Transactions)
	}

	got, _ := m.FindTransactions(ctx, models.TransactionQuery{OwnerID: "u1"})
	if len(got) != 2 || got[0].ID != "t2" {
		t.Fatalf("FindTransactions order = %v", got)
	}

	if err := m.DeleteTransaction(ctx, "t1", "u2"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("delete by non-owner: err = %v", err)
	}
	if err := m.DeleteTransaction(ctx, "t1", "u1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := m.DeleteTransaction(ctx, "t1", "u1"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
	u, _ = m.FindUserByID(ctx, "u1")
	if u.HasTransaction("t1") || !u.HasTransaction("t2") {
		t.Fatalf("linkage after delete = %v", u.Transactions)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepository()
	seedUser(t, m, "u1", "a@x")
	seedTx(t, m, "t1", "u1", "2025-01-01")

	u, _ := m.FindUserByID(ctx, "u1")
	u.Transactions[0] = "tampered"
	tx, _ := m.FindTransactionByID(ctx, "t1")
	tx.Title = "tampered"

	u, _ = m.FindUserByID(ctx, "u1")
	tx, _ = m.FindTransactionByID(ctx, "t1")
	if u.Transactions[0] != "t1" || tx.Title != "t1" {
		t.Fatal("store state leaked through returned values")
	}
}

func TestMemoryUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepository()
	m.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	seedUser(t, m, "u1", "a@x")
	seedTx(t, m, "t1", "u1", "2025-01-01")

	tx, _ := m.FindTransactionByID(ctx, "t1")
	tx.Amount = decimal.Zero
	if err := m.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	stored, _ := m.FindTransactionByID(ctx, "t1")
	if !stored.Amount.IsZero() || stored.UpdatedAt.Year() != 2030 {
		t.Fatalf("stored = %+v", stored)
	}
	if err := m.UpdateTransaction(ctx, &models.Transaction{ID: "nope"}); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestMemoryReconcile(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepository()
	seedUser(t, m, "u1", "a@x")
	seedTx(t, m, "t1", "u1", "2025-01-01")
	seedTx(t, m, "t2", "u1", "2025-01-02")

	m.UnlinkForTest("u1", "t1")
	m.LinkForTest("u1", "ghost")

	report, err := m.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Relinked != 1 || report.Unlinked != 1 {
		t.Fatalf("report = %+v", report)
	}
	u, _ := m.FindUserByID(ctx, "u1")
	if len(u.Transactions) != 2 || u.HasTransaction("ghost") || !u.HasTransaction("t1") {
		t.Fatalf("linkage = %v", u.Transactions)
	}

	report, _ = m.Reconcile(ctx)
	if report != (models.ReconcileReport{}) {
		t.Fatalf("second pass should be a no-op, got %+v", report)
	}
}
