package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		totals  []KindTotal
		income  string
		expense string
		balance string
	}{
		{"empty", nil, "0", "0", "0"},
		{"income only", []KindTotal{{KindIncome, decimal.RequireFromString("100")}}, "100", "0", "100"},
		{"expense only", []KindTotal{{KindExpense, decimal.RequireFromString("42.50")}}, "0", "42.5", "-42.5"},
		{
			"both",
			[]KindTotal{
				{KindIncome, decimal.RequireFromString("100")},
				{KindExpense, decimal.RequireFromString("30")},
			},
			"100", "30", "70",
		},
		{"unknown kind ignored", []KindTotal{{Kind("transfer"), decimal.RequireFromString("5")}}, "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewSummary(tt.totals)
			if !s.Income.Equal(decimal.RequireFromString(tt.income)) {
				t.Errorf("income = %s, want %s", s.Income, tt.income)
			}
			if !s.Expense.Equal(decimal.RequireFromString(tt.expense)) {
				t.Errorf("expense = %s, want %s", s.Expense, tt.expense)
			}
			if !s.Balance.Equal(decimal.RequireFromString(tt.balance)) {
				t.Errorf("balance = %s, want %s", s.Balance, tt.balance)
			}
			if !s.Balance.Equal(s.Income.Sub(s.Expense)) {
				t.Errorf("balance %s != income - expense", s.Balance)
			}
		})
	}
}

func TestKind_IsValid(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{KindIncome, KindExpense} {
		if !k.IsValid() {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []Kind{"", "Income", "transfer"} {
		if k.IsValid() {
			t.Errorf("%q should be invalid", k)
		}
	}
}
