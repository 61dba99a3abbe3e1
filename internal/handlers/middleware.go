package handlers

import (
	"net/http"
	"time"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const TraceHeader = "X-Trace-ID"

// TraceMiddleware attaches a trace id to the request context, reusing the
// one sent by the client when present.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(contextutil.WithTraceID(r.Context(), traceID)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logging.WithTrace(contextutil.TraceIDFromContext(r.Context())).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}

// AuthMiddleware lets the request through only with a valid session cookie.
// The cookie is renewed on every authenticated request.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r, "Please log in to access this page.")
			return
		}

		session, err := h.service.CheckSession(r.Context(), cookie.Value)
		if err != nil {
			if appErrors.IsAuth(err) {
				h.clearSessionCookie(w)
				h.redirectToLogin(w, r, appErrors.MessageOf(err))
				return
			}
			h.renderError(w, r, err)
			return
		}

		h.setSessionCookie(w, session.Token)
		ctx := contextutil.WithSession(r.Context(), contextutil.Session{
			Token:    session.Token,
			UserID:   session.UserID,
			UserName: session.UserName,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) redirectToLogin(w http.ResponseWriter, r *http.Request, message string) {
	h.setFlash(w, Flash{Category: FlashWarning, Message: message})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func currentSession(r *http.Request) contextutil.Session {
	s, _ := contextutil.SessionFromContext(r.Context())
	return s
}
