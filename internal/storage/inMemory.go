package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fatali-fataliyev/student_expense_tracker/config"
	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/shopspring/decimal"
)

// InMemoryStorage keeps everything in process memory. Used for local runs
// (DB_DRIVER=inmemory) and service tests.
type InMemoryStorage struct {
	mu           sync.RWMutex
	users        []auth.User
	sessions     map[string]auth.Session
	transactions []budget.Transaction
	lastUserID   int64
	lastTxID     int64
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		sessions: make(map[string]auth.Session),
	}
}

func (inMem *InMemoryStorage) GetStorageType() string {
	return config.DriverInMemory
}

func (inMem *InMemoryStorage) SaveUser(ctx context.Context, user auth.User) (int64, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, u := range inMem.users {
		if u.Email == user.Email {
			return 0, emailTakenError()
		}
	}
	inMem.lastUserID++
	user.ID = inMem.lastUserID
	inMem.users = append(inMem.users, user)
	return user.ID, nil
}

func (inMem *InMemoryStorage) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, u := range inMem.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, appErrors.New(appErrors.ErrNotFound, "User not found.")
}

func (inMem *InMemoryStorage) SaveSession(ctx context.Context, session auth.Session) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	inMem.sessions[session.Token] = session
	return nil
}

func (inMem *InMemoryStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	session, ok := inMem.sessions[token]
	if !ok {
		return auth.Session{}, appErrors.New(appErrors.ErrNotFound, "Session not found.")
	}
	return session, nil
}

func (inMem *InMemoryStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	session, ok := inMem.sessions[token]
	if !ok {
		return appErrors.New(appErrors.ErrNotFound, "Session not found.")
	}
	session.ExpireAt = expireAt
	inMem.sessions[token] = session
	return nil
}

func (inMem *InMemoryStorage) DeleteSession(ctx context.Context, token string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	delete(inMem.sessions, token)
	return nil
}

func (inMem *InMemoryStorage) SaveTransaction(ctx context.Context, t budget.Transaction) (int64, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	if !inMem.userExists(t.UserID) {
		return 0, appErrors.New(appErrors.ErrInvalidInput, "Unknown user.")
	}
	inMem.lastTxID++
	t.ID = inMem.lastTxID
	inMem.transactions = append(inMem.transactions, t)
	return t.ID, nil
}

func (inMem *InMemoryStorage) UpdateTransaction(ctx context.Context, t budget.Transaction) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, existing := range inMem.transactions {
		if existing.ID == t.ID && existing.UserID == t.UserID {
			inMem.transactions[i] = t
			return nil
		}
	}
	return appErrors.New(appErrors.ErrNotFound, "Transaction not found.")
}

func (inMem *InMemoryStorage) DeleteTransaction(ctx context.Context, userID int64, transactionID int64) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, t := range inMem.transactions {
		if t.ID == transactionID && t.UserID == userID {
			inMem.transactions = append(inMem.transactions[:i], inMem.transactions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (inMem *InMemoryStorage) GetTransactionById(ctx context.Context, userID int64, transactionID int64) (budget.Transaction, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, t := range inMem.transactions {
		if t.ID == transactionID && t.UserID == userID {
			return t, nil
		}
	}
	return budget.Transaction{}, appErrors.New(appErrors.ErrNotFound, "Transaction not found.")
}

func (inMem *InMemoryStorage) GetFilteredTransactions(ctx context.Context, userID int64, filter budget.TransactionFilter, limit int) ([]budget.Transaction, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	result := []budget.Transaction{}
	for _, t := range inMem.transactions {
		if t.UserID != userID {
			continue
		}
		if filter.Month != "" && t.Month() != filter.Month {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		result = append(result, t)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (inMem *InMemoryStorage) GetTotals(ctx context.Context, userID int64, month string) (budget.Totals, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	var totals budget.Totals
	for _, t := range inMem.transactions {
		if t.UserID != userID || (month != "" && t.Month() != month) {
			continue
		}
		switch t.Type {
		case budget.TypeIncome:
			totals.Income = totals.Income.Add(t.Amount)
		case budget.TypeExpense:
			totals.Expense = totals.Expense.Add(t.Amount)
		}
	}
	totals.Balance = totals.Income.Sub(totals.Expense)
	return totals, nil
}

// GetMonthlyTotals returns the limit most recent months, newest first.
func (inMem *InMemoryStorage) GetMonthlyTotals(ctx context.Context, userID int64, limit int) ([]budget.MonthlyPoint, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	byMonth := map[string]*budget.MonthlyPoint{}
	for _, t := range inMem.transactions {
		if t.UserID != userID {
			continue
		}
		point, ok := byMonth[t.Month()]
		if !ok {
			point = &budget.MonthlyPoint{Month: t.Month()}
			byMonth[t.Month()] = point
		}
		switch t.Type {
		case budget.TypeIncome:
			point.Income = point.Income.Add(t.Amount)
		case budget.TypeExpense:
			point.Expense = point.Expense.Add(t.Amount)
		}
	}

	points := make([]budget.MonthlyPoint, 0, len(byMonth))
	for _, p := range byMonth {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Month > points[j].Month
	})
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

func (inMem *InMemoryStorage) GetCategoryTotals(ctx context.Context, userID int64, month string) ([]budget.CategoryTotal, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	byCategory := map[string]decimal.Decimal{}
	for _, t := range inMem.transactions {
		if t.UserID != userID || t.Type != budget.TypeExpense || t.Month() != month {
			continue
		}
		byCategory[t.Category] = byCategory[t.Category].Add(t.Amount)
	}

	result := make([]budget.CategoryTotal, 0, len(byCategory))
	for category, total := range byCategory {
		result = append(result, budget.CategoryTotal{Category: category, Total: total})
	}
	return result, nil
}

func (inMem *InMemoryStorage) userExists(userID int64) bool {
	for _, u := range inMem.users {
		if u.ID == userID {
			return true
		}
	}
	return false
}
