package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// IncomeExpenseStats represents income and expense totals over a period
type IncomeExpenseStats struct {
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	NetBalance decimal.Decimal `json:"netBalance"`
	Count      int             `json:"count"`
}

// CategoryTotal represents the sum of one category within one transaction type
type CategoryTotal struct {
	Category        string          `json:"category"`
	TransactionType TransactionType `json:"transactionType"`
	Total           decimal.Decimal `json:"total"`
	Count           int             `json:"count"`
}

// Summary is what the dashboard charts are drawn from
type Summary struct {
	IncomeExpenseStats
	ByCategory []CategoryTotal `json:"byCategory"`
}

// Summarize totals transactions by type and by category. Categories are ordered
// by type, then descending total, then name.
func Summarize(transactions []Transaction) Summary {
	s := Summary{ByCategory: []CategoryTotal{}}
	index := make(map[TransactionType]map[string]int)

	for _, t := range transactions {
		switch t.TransactionType {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expense = s.Expense.Add(t.Amount)
		}
		s.Count++

		if index[t.TransactionType] == nil {
			index[t.TransactionType] = make(map[string]int)
		}
		i, ok := index[t.TransactionType][t.Category]
		if !ok {
			i = len(s.ByCategory)
			index[t.TransactionType][t.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryTotal{Category: t.Category, TransactionType: t.TransactionType})
		}
		s.ByCategory[i].Total = s.ByCategory[i].Total.Add(t.Amount)
		s.ByCategory[i].Count++
	}
	s.NetBalance = s.Income.Sub(s.Expense)

	sort.SliceStable(s.ByCategory, func(a, b int) bool {
		x, y := s.ByCategory[a], s.ByCategory[b]
		if x.TransactionType != y.TransactionType {
			return x.TransactionType < y.TransactionType
		}
		if c := x.Total.Cmp(y.Total); c != 0 {
			return c > 0
		}
		return x.Category < y.Category
	})
	return s
}
