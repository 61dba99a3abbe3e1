package handlers

import (
	"bytes"
	"net/http"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
)

type pageData struct {
	Title      string
	UserName   string
	Flashes    []Flash
	Categories []string
	Types      []string
	Data       any
}

type errorView struct {
	Message string
}

// render executes the page into a buffer first so a template failure never
// leaves a half-written response.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any, flashes ...Flash) {
	tmpl, ok := h.templates[page]
	if !ok {
		logging.WithTrace(contextutil.TraceIDFromContext(r.Context())).Errorf("template %s not found", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	view := pageData{
		Title:      title,
		UserName:   currentSession(r).UserName,
		Flashes:    append(h.popFlashes(w, r), flashes...),
		Categories: budget.Categories,
		Types:      budget.Types,
		Data:       data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", view); err != nil {
		logging.WithTrace(contextutil.TraceIDFromContext(r.Context())).Errorf("failed to render %s: %v", page, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	logging.WithTrace(contextutil.TraceIDFromContext(r.Context())).Errorf("request failed: %v", err)
	h.render(w, r, http.StatusInternalServerError, "error.html", "Error", errorView{
		Message: "Something went wrong, please try again later.",
	})
}

func statusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrInvalidInput:
		return http.StatusBadRequest
	case appErrors.ErrConflict:
		return http.StatusConflict
	case appErrors.ErrAuth:
		return http.StatusUnauthorized
	case appErrors.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// isUserError reports whether the error carries a message meant for the form.
func isUserError(err error) bool {
	return statusFromError(err) != http.StatusInternalServerError
}
