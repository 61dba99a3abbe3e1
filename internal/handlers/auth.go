package handlers

import (
	"fmt"
	"net/http"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
)

type loginView struct {
	Email string
}

type registerView struct {
	Name  string
	Email string
}

// Index sends logged in users to the dashboard and everyone else to login.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if _, err := h.service.CheckSession(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", "Register", registerView{})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "register.html", "Register", registerView{},
			Flash{Category: FlashDanger, Message: "Invalid form submission."})
		return
	}

	newUser := auth.NewUser{
		Name:          r.PostFormValue("name"),
		Email:         r.PostFormValue("email"),
		PasswordPlain: r.PostFormValue("password"),
	}
	if _, err := h.service.Register(r.Context(), newUser); err != nil {
		if !isUserError(err) {
			h.renderError(w, r, err)
			return
		}
		view := registerView{Name: newUser.Name, Email: newUser.Email}
		h.render(w, r, statusFromError(err), "register.html", "Register", view,
			Flash{Category: FlashDanger, Message: appErrors.MessageOf(err)})
		return
	}

	h.setFlash(w, Flash{Category: FlashSuccess, Message: "Account created! Please log in."})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", "Log in", loginView{})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login.html", "Log in", loginView{},
			Flash{Category: FlashDanger, Message: "Invalid form submission."})
		return
	}

	credentials := auth.UserCredentialsPure{
		Email:         r.PostFormValue("email"),
		PasswordPlain: r.PostFormValue("password"),
	}
	session, err := h.service.Login(r.Context(), credentials)
	if err != nil {
		if !isUserError(err) {
			h.renderError(w, r, err)
			return
		}
		h.render(w, r, statusFromError(err), "login.html", "Log in", loginView{Email: credentials.Email},
			Flash{Category: FlashDanger, Message: appErrors.MessageOf(err)})
		return
	}

	h.setSessionCookie(w, session.Token)
	h.setFlash(w, Flash{Category: FlashSuccess, Message: fmt.Sprintf("Welcome back, %s!", session.UserName)})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			logging.WithTrace(contextutil.TraceIDFromContext(r.Context())).Warnf("failed to delete session on logout: %v", err)
		}
	}
	h.clearSessionCookie(w)
	h.setFlash(w, Flash{Category: FlashInfo, Message: "You have been logged out."})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
