package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, matching what clients post.
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// TransactionType distinguishes money coming in from money going out
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Transaction represents a single income or expense record owned by one user
type Transaction struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	Title           string          `json:"title"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType TransactionType `json:"transactionType"`
	Category        string          `json:"category"`
	UserID          string          `json:"user"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewTransaction carries the caller-supplied fields of a transaction to create.
// A nil Amount means the field was not sent.
type NewTransaction struct {
	Date            time.Time
	Title           string
	Amount          *decimal.Decimal
	TransactionType TransactionType
	Category        string
	UserID          string
}

// TransactionPatch holds a partial update. Nil fields are left unchanged.
type TransactionPatch struct {
	Title           *string
	Amount          *decimal.Decimal
	Date            *time.Time
	Category        *string
	TransactionType *TransactionType
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Title == nil && p.Amount == nil && p.Date == nil && p.Category == nil && p.TransactionType == nil
}

// Apply copies every present field onto t.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.TransactionType != nil {
		t.TransactionType = *p.TransactionType
	}
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and truncates to the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return CalendarDay(t), nil
}

// CalendarDay returns midnight UTC of the day t falls on.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
