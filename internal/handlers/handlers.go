package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

var pages = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"transactions.html",
	"transaction_form.html",
	"error.html",
}

type Handlers struct {
	service      *budget.BudgetTracker
	templates    map[string]*template.Template
	secureCookie bool
}

func New(service *budget.BudgetTracker, secureCookie bool) (*Handlers, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handlers{
		service:      service,
		templates:    templates,
		secureCookie: secureCookie,
	}, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(web.TemplatesFS,
			"templates/base.html", "templates/partials.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return templates, nil
}

// NewRouter mounts the HTML pages, static assets and, when api is not nil,
// the JSON API under /api.
func NewRouter(h *Handlers, api http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(TraceMiddleware)
	r.Use(LoggingMiddleware)

	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	if api != nil {
		r.Mount("/api", api)
	}

	r.Get("/", h.Index)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.Register)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/transactions", h.Transactions)
		r.Get("/add", h.AddTransactionPage)
		r.Post("/add", h.AddTransaction)
		r.Get("/edit/{id}", h.EditTransactionPage)
		r.Post("/edit/{id}", h.EditTransaction)
		r.Post("/delete/{id}", h.DeleteTransaction)
		r.Get("/export", h.Export)
	})

	return r
}

func transactionIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
