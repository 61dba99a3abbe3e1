package budget

import (
	"context"
	"fmt"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/shopspring/decimal"
)

var budgetAlertRatio = decimal.RequireFromString("0.8")

func (bt *BudgetTracker) CurrentMonth() string {
	return bt.now().Format(MONTH_LAYOUT)
}

// Today is the default date offered by the transaction form.
func (bt *BudgetTracker) Today() string {
	return bt.now().Format(DATE_LAYOUT)
}

func (bt *BudgetTracker) Totals(ctx context.Context, userID int64) (Totals, error) {
	totals, err := bt.storage.GetTotals(ctx, userID, "")
	if err != nil {
		return Totals{}, fmt.Errorf("failed to get totals: %w", err)
	}
	return finishTotals(totals), nil
}

func (bt *BudgetTracker) MonthTotals(ctx context.Context, userID int64, month string) (Totals, error) {
	if !IsValidMonth(month) {
		return Totals{}, appErrors.New(appErrors.ErrInvalidInput, "Month must be in YYYY-MM format.")
	}
	totals, err := bt.storage.GetTotals(ctx, userID, month)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to get month totals: %w", err)
	}
	return finishTotals(totals), nil
}

// MonthlySeries returns the income and expense sums of the limit most recent
// months, oldest first.
func (bt *BudgetTracker) MonthlySeries(ctx context.Context, userID int64, limit int) ([]MonthlyPoint, error) {
	if limit <= 0 {
		limit = MONTHLY_SERIES_LIMIT
	}
	points, err := bt.storage.GetMonthlyTotals(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly series: %w", err)
	}

	series := make([]MonthlyPoint, len(points))
	for i, p := range points {
		series[len(points)-1-i] = MonthlyPoint{
			Month:   p.Month,
			Income:  p.Income.Round(2),
			Expense: p.Expense.Round(2),
		}
	}
	return series, nil
}

// CategoryBreakdown sums the month's expenses per category. Categories
// without expenses are omitted.
func (bt *BudgetTracker) CategoryBreakdown(ctx context.Context, userID int64, month string) ([]CategoryTotal, error) {
	if !IsValidMonth(month) {
		return nil, appErrors.New(appErrors.ErrInvalidInput, "Month must be in YYYY-MM format.")
	}
	rows, err := bt.storage.GetCategoryTotals(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get category breakdown: %w", err)
	}

	byCategory := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		byCategory[row.Category] = byCategory[row.Category].Add(row.Total)
	}

	breakdown := make([]CategoryTotal, 0, len(byCategory))
	for _, category := range Categories {
		total, ok := byCategory[category]
		if !ok {
			continue
		}
		breakdown = append(breakdown, CategoryTotal{Category: category, Total: total.Round(2)})
	}
	return breakdown, nil
}

// BudgetAlert reports whether the month's expenses reached 80% of its
// income. A month without income or without expenses never alerts.
func (bt *BudgetTracker) BudgetAlert(ctx context.Context, userID int64, month string) (bool, error) {
	totals, err := bt.MonthTotals(ctx, userID, month)
	if err != nil {
		return false, err
	}
	return isOverBudget(totals), nil
}

func (bt *BudgetTracker) Dashboard(ctx context.Context, userID int64, month string) (Dashboard, error) {
	if month == "" {
		month = bt.CurrentMonth()
	}

	totals, err := bt.Totals(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	monthTotals, err := bt.MonthTotals(ctx, userID, month)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := bt.RecentTransactions(ctx, userID, RECENT_TRANSACTIONS_LIMIT)
	if err != nil {
		return Dashboard{}, err
	}
	series, err := bt.MonthlySeries(ctx, userID, MONTHLY_SERIES_LIMIT)
	if err != nil {
		return Dashboard{}, err
	}
	breakdown, err := bt.CategoryBreakdown(ctx, userID, month)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Month:       month,
		Totals:      totals,
		MonthTotals: monthTotals,
		Recent:      recent,
		Series:      series,
		Breakdown:   breakdown,
		BudgetAlert: isOverBudget(monthTotals),
	}, nil
}

func finishTotals(t Totals) Totals {
	income := t.Income.Round(2)
	expense := t.Expense.Round(2)
	return Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

func isOverBudget(t Totals) bool {
	if t.Income.IsZero() || t.Expense.IsZero() {
		return false
	}
	return t.Expense.GreaterThanOrEqual(t.Income.Mul(budgetAlertRatio))
}
