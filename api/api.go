package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/0xcafe-io/iz"
	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

const sessionCookieName = "session"

type Api struct {
	Service *budget.BudgetTracker
}

func NewApi(service *budget.BudgetTracker) *Api {
	return &Api{
		Service: service,
	}
}

// Routes returns the JSON API, relative to its mount point, with CORS applied.
func (api *Api) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Get("/check-token", iz.Bind(api.CheckToken))                      // Check session token
	r.Get("/summary", iz.Bind(api.SummaryHandler))                      // Dashboard data
	r.Get("/transactions", iz.Bind(api.GetFilteredTransactionsHandler)) // Transactions with filters
	r.Get("/transactions/{id}", iz.Bind(api.GetTransactionByIdHandler)) // Transaction by ID
	r.Get("/download-user-data", api.DownloadUserData)                  // CSV export

	corsConf := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return corsConf.Handler(r)
}

// sessionToken prefers the Authorization header and falls back to the
// browser session cookie.
func sessionToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (api *Api) authenticate(r *http.Request) (auth.Session, error) {
	token := sessionToken(r)
	if token == "" {
		return auth.Session{}, appErrors.New(appErrors.ErrAuth, "Authorization header is required.")
	}
	return api.Service.CheckSession(r.Context(), token)
}

func (api *Api) CheckToken(r *iz.Request) iz.Responder {
	session, err := api.authenticate(r.Request)
	if err != nil {
		return errorResponse(r.Request, "authorization failed", err)
	}
	return iz.Respond().Status(200).JSON(SessionToHttp(session))
}

func (api *Api) SummaryHandler(r *iz.Request) iz.Responder {
	session, err := api.authenticate(r.Request)
	if err != nil {
		return errorResponse(r.Request, "authorization failed", err)
	}

	dashboard, err := api.Service.Dashboard(r.Context(), session.UserID, r.URL.Query().Get("month"))
	if err != nil {
		return errorResponse(r.Request, "failed to get summary", err)
	}
	return iz.Respond().Status(200).JSON(DashboardToHttp(dashboard))
}

func (api *Api) GetFilteredTransactionsHandler(r *iz.Request) iz.Responder {
	session, err := api.authenticate(r.Request)
	if err != nil {
		return errorResponse(r.Request, "authorization failed", err)
	}

	filter := TransactionFilterFromQuery(r.URL.Query())
	transactions, err := api.Service.ListTransactions(r.Context(), session.UserID, filter)
	if err != nil {
		return errorResponse(r.Request, "failed to get transactions", err)
	}

	resp := ListTransactionResponse{Transactions: make([]TransactionItem, 0, len(transactions))}
	for _, t := range transactions {
		resp.Transactions = append(resp.Transactions, TransactionToHttp(t))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetTransactionByIdHandler(r *iz.Request) iz.Responder {
	session, err := api.authenticate(r.Request)
	if err != nil {
		return errorResponse(r.Request, "authorization failed", err)
	}

	id, err := parseTransactionID(chi.URLParam(r.Request, "id"))
	if err != nil {
		return errorResponse(r.Request, "invalid transaction id", err)
	}

	t, err := api.Service.GetTransaction(r.Context(), session.UserID, id)
	if err != nil {
		return errorResponse(r.Request, "failed to get transaction", err)
	}
	return iz.Respond().Status(200).JSON(TransactionToHttp(t))
}

// DownloadUserData writes the CSV export directly, it is not a JSON response.
func (api *Api) DownloadUserData(w http.ResponseWriter, r *http.Request) {
	session, err := api.authenticate(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("authorization failed: %s", appErrors.MessageOf(err)), httpStatusFromError(err))
		return
	}

	var buf bytes.Buffer
	if _, err := api.Service.ExportCSV(r.Context(), session.UserID, &buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to export transactions: %s", appErrors.MessageOf(err)), httpStatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=transactions.csv")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func errorResponse(r *http.Request, prefix string, err error) iz.Responder {
	status := httpStatusFromError(err)
	if status == 500 {
		logging.WithTrace(contextutil.TraceIDFromContext(r.Context())).Errorf("%s: %v", prefix, err)
	}
	msg := fmt.Sprintf("%s: %s", prefix, appErrors.MessageOf(err))
	return iz.Respond().Status(status).JSON(ErrorResponse{Error: msg})
}
