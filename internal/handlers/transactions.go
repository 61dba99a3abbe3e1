package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
)

type transactionsView struct {
	Filter       budget.TransactionFilter
	Transactions []budget.Transaction
}

type transactionFormView struct {
	ID     int64
	Action string
	Form   budget.TransactionRequest
}

func (h *Handlers) Transactions(w http.ResponseWriter, r *http.Request) {
	session := currentSession(r)
	query := r.URL.Query()
	filter := budget.TransactionFilter{
		Month:    query.Get("month"),
		Type:     query.Get("type"),
		Category: query.Get("category"),
	}

	transactions, err := h.service.ListTransactions(r.Context(), session.UserID, filter)
	if err != nil {
		if !appErrors.IsInvalidInput(err) {
			h.renderError(w, r, err)
			return
		}
		h.render(w, r, http.StatusBadRequest, "transactions.html", "Transactions", transactionsView{Filter: filter},
			Flash{Category: FlashDanger, Message: appErrors.MessageOf(err)})
		return
	}

	h.render(w, r, http.StatusOK, "transactions.html", "Transactions", transactionsView{
		Filter:       filter,
		Transactions: transactions,
	})
}

func (h *Handlers) AddTransactionPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "transaction_form.html", "Add transaction", transactionFormView{
		Action: "/add",
		Form: budget.TransactionRequest{
			Type:     budget.TypeExpense,
			Category: budget.Categories[0],
			Date:     h.service.Today(),
		},
	})
}

func (h *Handlers) AddTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseTransactionForm(w, r, transactionFormView{Action: "/add"}, "Add transaction")
	if !ok {
		return
	}

	if _, err := h.service.CreateTransaction(r.Context(), currentSession(r).UserID, req); err != nil {
		h.transactionFormError(w, r, err, transactionFormView{Action: "/add", Form: req}, "Add transaction")
		return
	}

	h.setFlash(w, Flash{Category: FlashSuccess, Message: "Transaction added successfully!"})
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

func (h *Handlers) EditTransactionPage(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(r)
	if !ok {
		h.transactionNotFound(w, r)
		return
	}

	t, err := h.service.GetTransaction(r.Context(), currentSession(r).UserID, id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			h.transactionNotFound(w, r)
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "transaction_form.html", "Edit transaction", transactionFormView{
		ID:     t.ID,
		Action: fmt.Sprintf("/edit/%d", t.ID),
		Form: budget.TransactionRequest{
			Amount:      t.Amount.StringFixed(2),
			Category:    t.Category,
			Type:        t.Type,
			Date:        t.Date,
			Description: t.Description,
		},
	})
}

func (h *Handlers) EditTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(r)
	if !ok {
		h.transactionNotFound(w, r)
		return
	}

	view := transactionFormView{ID: id, Action: fmt.Sprintf("/edit/%d", id)}
	req, ok := h.parseTransactionForm(w, r, view, "Edit transaction")
	if !ok {
		return
	}

	if _, err := h.service.UpdateTransaction(r.Context(), currentSession(r).UserID, id, req); err != nil {
		if appErrors.IsNotFound(err) {
			h.transactionNotFound(w, r)
			return
		}
		view.Form = req
		h.transactionFormError(w, r, err, view, "Edit transaction")
		return
	}

	h.setFlash(w, Flash{Category: FlashSuccess, Message: "Transaction updated!"})
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(r)
	if !ok {
		h.transactionNotFound(w, r)
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), currentSession(r).UserID, id); err != nil {
		if appErrors.IsNotFound(err) {
			h.transactionNotFound(w, r)
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.setFlash(w, Flash{Category: FlashInfo, Message: "Transaction deleted."})
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

// Export streams every transaction of the user as a CSV attachment.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.service.ExportCSV(r.Context(), currentSession(r).UserID, &buf); err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=transactions.csv")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handlers) parseTransactionForm(w http.ResponseWriter, r *http.Request, view transactionFormView, title string) (budget.TransactionRequest, bool) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "transaction_form.html", title, view,
			Flash{Category: FlashDanger, Message: "Invalid form submission."})
		return budget.TransactionRequest{}, false
	}
	return budget.TransactionRequest{
		Amount:      r.PostFormValue("amount"),
		Category:    r.PostFormValue("category"),
		Type:        r.PostFormValue("type"),
		Date:        r.PostFormValue("date"),
		Description: r.PostFormValue("description"),
	}, true
}

func (h *Handlers) transactionFormError(w http.ResponseWriter, r *http.Request, err error, view transactionFormView, title string) {
	if !isUserError(err) {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, statusFromError(err), "transaction_form.html", title, view,
		Flash{Category: FlashDanger, Message: appErrors.MessageOf(err)})
}

func (h *Handlers) transactionNotFound(w http.ResponseWriter, r *http.Request) {
	h.setFlash(w, Flash{Category: FlashDanger, Message: "Transaction not found."})
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}
