package storage

import (
	"time"

	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/shopspring/decimal"
)

type dbSession struct {
	Token     string
	UserID    int64
	UserName  string
	CreatedAt time.Time
	ExpireAt  time.Time
}

func (s dbSession) toSession() auth.Session {
	return auth.Session{
		Token:     s.Token,
		UserID:    s.UserID,
		UserName:  s.UserName,
		CreatedAt: s.CreatedAt.UTC(),
		ExpireAt:  s.ExpireAt.UTC(),
	}
}

type dbTransaction struct {
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	Category    string
	Type        string
	Date        string
	Description string
}

func (t dbTransaction) toTransaction() budget.Transaction {
	return budget.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Amount:      t.Amount.Round(2),
		Category:    t.Category,
		Type:        t.Type,
		Date:        t.Date,
		Description: t.Description,
	}
}

// whereClause collects AND-ed conditions with their bound arguments.
type whereClause struct {
	conditions []string
	args       []any
}

func (w *whereClause) add(condition string, arg any) {
	w.conditions = append(w.conditions, condition)
	w.args = append(w.args, arg)
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	result := " WHERE " + w.conditions[0]
	for _, c := range w.conditions[1:] {
		result += " AND " + c
	}
	return result
}
