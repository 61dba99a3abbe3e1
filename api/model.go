package api

import (
	"net/url"
	"strconv"
	"time"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
)

//RESPONSES:

type ErrorResponse struct {
	Error string `json:"error"`
}

type SessionResponse struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	ExpireAt string `json:"expire_at"`
}

type TransactionItem struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type ListTransactionResponse struct {
	Transactions []TransactionItem `json:"transactions"`
}

type TotalsItem struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

type CategoryTotalItem struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

// SummaryResponse carries the chart series in the shape the dashboard
// script consumes.
type SummaryResponse struct {
	Month       string              `json:"month"`
	Totals      TotalsItem          `json:"totals"`
	MonthTotals TotalsItem          `json:"month_totals"`
	BudgetAlert bool                `json:"budget_alert"`
	Recent      []TransactionItem   `json:"recent"`
	Breakdown   []CategoryTotalItem `json:"breakdown"`
	BarLabels   []string            `json:"barLabels"`
	BarIncome   []float64           `json:"barIncome"`
	BarExpense  []float64           `json:"barExpense"`
	PieLabels   []string            `json:"pieLabels"`
	PieValues   []float64           `json:"pieValues"`
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrConflict:
		return 409 // conflict
	default:
		return 500 //internal error
	}
}

func TransactionToHttp(t budget.Transaction) TransactionItem {
	return TransactionItem{
		ID:          t.ID,
		Amount:      t.Amount.StringFixed(2),
		Category:    t.Category,
		Type:        t.Type,
		Date:        t.Date,
		Description: t.Description,
	}
}

func TotalsToHttp(t budget.Totals) TotalsItem {
	return TotalsItem{
		Income:  t.Income.StringFixed(2),
		Expense: t.Expense.StringFixed(2),
		Balance: t.Balance.StringFixed(2),
	}
}

func SessionToHttp(s auth.Session) SessionResponse {
	return SessionResponse{
		UserID:   s.UserID,
		UserName: s.UserName,
		ExpireAt: s.ExpireAt.UTC().Format(time.RFC3339),
	}
}

func DashboardToHttp(d budget.Dashboard) SummaryResponse {
	resp := SummaryResponse{
		Month:       d.Month,
		Totals:      TotalsToHttp(d.Totals),
		MonthTotals: TotalsToHttp(d.MonthTotals),
		BudgetAlert: d.BudgetAlert,
		Recent:      make([]TransactionItem, 0, len(d.Recent)),
		Breakdown:   make([]CategoryTotalItem, 0, len(d.Breakdown)),
		BarLabels:   d.ChartLabels(),
		BarIncome:   d.IncomeSeries(),
		BarExpense:  d.ExpenseSeries(),
		PieLabels:   d.PieLabels(),
		PieValues:   d.PieValues(),
	}
	for _, t := range d.Recent {
		resp.Recent = append(resp.Recent, TransactionToHttp(t))
	}
	for _, c := range d.Breakdown {
		resp.Breakdown = append(resp.Breakdown, CategoryTotalItem{Category: c.Category, Total: c.Total.StringFixed(2)})
	}
	return resp
}

// TransactionFilterFromQuery reads month, type and category; validation is
// left to the service.
func TransactionFilterFromQuery(params url.Values) budget.TransactionFilter {
	return budget.TransactionFilter{
		Month:    params.Get("month"),
		Type:     params.Get("type"),
		Category: params.Get("category"),
	}
}

func parseTransactionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Newf(appErrors.ErrInvalidInput, "invalid transaction id: %s", raw)
	}
	return id, nil
}
