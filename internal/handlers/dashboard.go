package handlers

import (
	"net/http"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
)

// chartData is serialized into the dashboard script for Chart.js.
type chartData struct {
	BarLabels  []string  `json:"barLabels"`
	BarIncome  []float64 `json:"barIncome"`
	BarExpense []float64 `json:"barExpense"`
	PieLabels  []string  `json:"pieLabels"`
	PieValues  []float64 `json:"pieValues"`
}

type dashboardView struct {
	Dashboard budget.Dashboard
	Chart     chartData
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := currentSession(r)

	dashboard, err := h.service.Dashboard(r.Context(), session.UserID, r.URL.Query().Get("month"))
	if err != nil {
		if appErrors.IsInvalidInput(err) {
			h.setFlash(w, Flash{Category: FlashDanger, Message: appErrors.MessageOf(err)})
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", dashboardView{
		Dashboard: dashboard,
		Chart: chartData{
			BarLabels:  dashboard.ChartLabels(),
			BarIncome:  dashboard.IncomeSeries(),
			BarExpense: dashboard.ExpenseSeries(),
			PieLabels:  dashboard.PieLabels(),
			PieValues:  dashboard.PieValues(),
		},
	})
}
