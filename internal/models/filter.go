package models

import (
	"errors"
	"time"
)

// DateFilterKind selects which date restriction a TransactionFilter applies.
type DateFilterKind int

const (
	// NoDateFilter matches every date.
	NoDateFilter DateFilterKind = iota
	// RollingWindow matches dates strictly after now minus Days.
	RollingWindow
	// ExplicitRange matches Start <= date <= End.
	ExplicitRange
)

// DateFilter is one of: no restriction, a rolling window of Days, or an
// inclusive [Start, End] range. Only the fields of the selected Kind are read.
type DateFilter struct {
	Kind  DateFilterKind
	Days  int
	Start time.Time
	End   time.Time
}

// TransactionFilter describes a transaction listing request after validation.
// An empty Type matches both income and expense.
type TransactionFilter struct {
	UserID string
	Type   TransactionType
	Date   DateFilter
}

// MaxFrequencyDays bounds a rolling window to a century.
const MaxFrequencyDays = 36500

// Validate rejects filters no store could answer meaningfully.
func (f TransactionFilter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return errors.New("type must be income, expense or all")
	}
	switch f.Date.Kind {
	case NoDateFilter:
	case RollingWindow:
		if f.Date.Days < 0 {
			return errors.New("frequency must be a non-negative number of days")
		}
		if f.Date.Days > MaxFrequencyDays {
			return errors.New("frequency is too large")
		}
	case ExplicitRange:
		if f.Date.Start.IsZero() || f.Date.End.IsZero() {
			return errors.New("startDate and endDate are both required for a custom range")
		}
		if f.Date.Start.After(f.Date.End) {
			return errors.New("startDate must not be after endDate")
		}
	default:
		return errors.New("unknown date filter")
	}
	return nil
}

// TransactionQuery is a TransactionFilter resolved against a clock, ready for a store.
// Nil bounds are open.
type TransactionQuery struct {
	OwnerID string
	Type    TransactionType
	After   *time.Time // exclusive
	From    *time.Time // inclusive
	To      *time.Time // inclusive
}

// Resolve turns the filter into concrete bounds relative to now, taken in UTC
// so the bound lands on the same calendar day as the stored dates.
func (f TransactionFilter) Resolve(now time.Time) TransactionQuery {
	q := TransactionQuery{OwnerID: f.UserID, Type: f.Type}
	switch f.Date.Kind {
	case RollingWindow:
		after := now.UTC().AddDate(0, 0, -f.Date.Days)
		q.After = &after
	case ExplicitRange:
		from, to := f.Date.Start, f.Date.End
		q.From, q.To = &from, &to
	}
	return q
}

// Matches reports whether t satisfies the query. Stores that filter in memory use it.
func (q TransactionQuery) Matches(t Transaction) bool {
	if t.UserID != q.OwnerID {
		return false
	}
	if q.Type != "" && t.TransactionType != q.Type {
		return false
	}
	if q.After != nil && !t.Date.After(*q.After) {
		return false
	}
	if q.From != nil && t.Date.Before(*q.From) {
		return false
	}
	if q.To != nil && t.Date.After(*q.To) {
		return false
	}
	return true
}
