package model

import "github.com/shopspring/decimal"

// KindTotal is the sum of amounts for one transaction kind.
type KindTotal struct {
	Kind  Kind
	Total decimal.Decimal
}

// CategoryTotal is the sum of amounts for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Summary is the balance of a ledger over an optional date range.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// NewSummary folds per-kind totals into a Summary. Missing kinds count as zero.
func NewSummary(totals []KindTotal) *Summary {
	s := &Summary{
		Income:  decimal.Zero,
		Expense: decimal.Zero,
	}
	for _, t := range totals {
		switch t.Kind {
		case KindIncome:
			s.Income = s.Income.Add(t.Total)
		case KindExpense:
			s.Expense = s.Expense.Add(t.Total)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}
