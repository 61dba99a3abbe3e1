package budget

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	TypeIncome  = "Income"
	TypeExpense = "Expense"
)

// Categories is the fixed category set, in display order.
var Categories = []string{"Food", "Travel", "Rent", "Fees", "Shopping", "Entertainment", "Health", "Others"}

var Types = []string{TypeIncome, TypeExpense}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

func IsValidType(tType string) bool {
	return tType == TypeIncome || tType == TypeExpense
}

// REQUESTS:

// TransactionRequest carries raw form values; the service parses and
// validates them.
type TransactionRequest struct {
	Amount      string
	Category    string
	Type        string
	Date        string
	Description string
}

type TransactionFilter struct {
	Month    string
	Type     string
	Category string
}

func (f TransactionFilter) IsEmpty() bool {
	return f.Month == "" && f.Type == "" && f.Category == ""
}

// MODELS:

type Transaction struct {
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	Category    string
	Type        string
	Date        string
	Description string
}

// Month returns the YYYY-MM prefix of the transaction date.
func (t Transaction) Month() string {
	if len(t.Date) < 7 {
		return t.Date
	}
	return t.Date[:7]
}

// RESPONSES:

type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

type MonthlyPoint struct {
	Month   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

type Dashboard struct {
	Month       string
	Totals      Totals
	MonthTotals Totals
	Recent      []Transaction
	Series      []MonthlyPoint
	Breakdown   []CategoryTotal
	BudgetAlert bool
}

// ChartLabels returns the months of the series, oldest first.
func (d Dashboard) ChartLabels() []string {
	labels := make([]string, 0, len(d.Series))
	for _, p := range d.Series {
		labels = append(labels, p.Month)
	}
	return labels
}

func (d Dashboard) IncomeSeries() []float64 {
	values := make([]float64, 0, len(d.Series))
	for _, p := range d.Series {
		values = append(values, p.Income.InexactFloat64())
	}
	return values
}

func (d Dashboard) ExpenseSeries() []float64 {
	values := make([]float64, 0, len(d.Series))
	for _, p := range d.Series {
		values = append(values, p.Expense.InexactFloat64())
	}
	return values
}

func (d Dashboard) PieLabels() []string {
	labels := make([]string, 0, len(d.Breakdown))
	for _, c := range d.Breakdown {
		labels = append(labels, c.Category)
	}
	return labels
}

func (d Dashboard) PieValues() []float64 {
	values := make([]float64, 0, len(d.Breakdown))
	for _, c := range d.Breakdown {
		values = append(values, c.Total.InexactFloat64())
	}
	return values
}

// NOTIFICATIONS:

type BudgetAlertEvent struct {
	UserID  int64           `json:"user_id"`
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Notifier receives budget alerts raised after a transaction write.
type Notifier interface {
	NotifyBudgetAlert(ctx context.Context, event BudgetAlertEvent) error
}
