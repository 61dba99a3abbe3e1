package auth

import (
	"strings"
	"time"
	"unicode/utf8"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
)

const (
	MAX_LENGTH_NAME     = 255
	MAX_LENGTH_EMAIL    = 255
	MIN_PASSWORD_LENGTH = 6
	MAX_PASSWORD_LENGTH = 72 // bcrypt ignores anything past 72 bytes.
)

type User struct {
	ID             int64
	Name           string
	Email          string
	PasswordHashed string
}

type NewUser struct {
	Name          string
	Email         string
	PasswordPlain string
}

// Normalize trims the name and email and lowercases the email. The password
// is kept verbatim.
func (newUser NewUser) Normalize() NewUser {
	return NewUser{
		Name:          strings.TrimSpace(newUser.Name),
		Email:         NormalizeEmail(newUser.Email),
		PasswordPlain: newUser.PasswordPlain,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (newUser NewUser) ValidateUserFields() error {
	if newUser.Name == "" || newUser.Email == "" || newUser.PasswordPlain == "" {
		return appErrors.New(appErrors.ErrInvalidInput, "All fields are required.")
	}
	if utf8.RuneCountInString(newUser.PasswordPlain) < MIN_PASSWORD_LENGTH {
		return appErrors.Newf(appErrors.ErrInvalidInput, "Password must be at least %d characters.", MIN_PASSWORD_LENGTH)
	}
	if len(newUser.Name) > MAX_LENGTH_NAME {
		return appErrors.Newf(appErrors.ErrInvalidInput, "Name so long, maximum length is %d", MAX_LENGTH_NAME)
	}
	if len(newUser.Email) > MAX_LENGTH_EMAIL {
		return appErrors.Newf(appErrors.ErrInvalidInput, "Email so long, maximum length is %d", MAX_LENGTH_EMAIL)
	}
	if len(newUser.PasswordPlain) > MAX_PASSWORD_LENGTH {
		return appErrors.Newf(appErrors.ErrInvalidInput, "Password so long, maximum length is %d", MAX_PASSWORD_LENGTH)
	}
	return nil
}

type Session struct {
	Token     string
	UserID    int64
	UserName  string
	CreatedAt time.Time
	ExpireAt  time.Time
}

func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpireAt)
}

type UserCredentialsPure struct {
	Email         string
	PasswordPlain string
}
