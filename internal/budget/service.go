package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
	"github.com/shopspring/decimal"
)

const (
	MAX_TRANSACTION_DESCRIPTION_LENGTH = 1000
	DATE_LAYOUT                        = "2006-01-02"
	MONTH_LAYOUT                       = "2006-01"
	SESSION_LIFETIME                   = 30 * 24 * time.Hour
	SESSION_RENEW_THRESHOLD            = 15 * 24 * time.Hour
	RECENT_TRANSACTIONS_LIMIT          = 5
	MONTHLY_SERIES_LIMIT               = 6
)

// MAX_TRANSACTION_AMOUNT fits a DECIMAL(12,2) column.
var MAX_TRANSACTION_AMOUNT = decimal.RequireFromString("9999999999.99")

type BudgetTracker struct {
	storage     Storage
	notifier    Notifier
	StorageType string
	now         func() time.Time
}

type Option func(*BudgetTracker)

// WithClock replaces time.Now for session expiry and the default month.
func WithClock(now func() time.Time) Option {
	return func(bt *BudgetTracker) {
		bt.now = now
	}
}

func NewBudgetTracker(s Storage, n Notifier, opts ...Option) BudgetTracker {
	bt := BudgetTracker{
		storage:     s,
		notifier:    n,
		StorageType: s.GetStorageType(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&bt)
	}
	return bt
}

type Storage interface {
	SaveUser(ctx context.Context, user auth.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (auth.User, error)
	SaveSession(ctx context.Context, session auth.Session) error
	GetSessionByToken(ctx context.Context, token string) (auth.Session, error)
	UpdateSession(ctx context.Context, token string, expireAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	SaveTransaction(ctx context.Context, t Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, t Transaction) error
	DeleteTransaction(ctx context.Context, userID int64, transactionID int64) error
	GetTransactionById(ctx context.Context, userID int64, transactionID int64) (Transaction, error)
	GetFilteredTransactions(ctx context.Context, userID int64, filter TransactionFilter, limit int) ([]Transaction, error)
	GetTotals(ctx context.Context, userID int64, month string) (Totals, error)
	GetMonthlyTotals(ctx context.Context, userID int64, limit int) ([]MonthlyPoint, error)
	GetCategoryTotals(ctx context.Context, userID int64, month string) ([]CategoryTotal, error)
	GetStorageType() string
}

// --- AUTH --- //

// Register creates an account. It does not open a session.
func (bt *BudgetTracker) Register(ctx context.Context, newUser auth.NewUser) (auth.User, error) {
	newUser = newUser.Normalize()
	if err := newUser.ValidateUserFields(); err != nil {
		return auth.User{}, err
	}

	hashedPassword, err := auth.HashPassword(newUser.PasswordPlain)
	if err != nil {
		logging.WithTrace(contextutil.TraceIDFromContext(ctx)).Errorf("failed to hash password: %v", err)
		return auth.User{}, appErrors.New(appErrors.ErrInternal, "Failed to create account, try again later.")
	}

	user := auth.User{
		Name:           newUser.Name,
		Email:          newUser.Email,
		PasswordHashed: hashedPassword,
	}

	id, err := bt.storage.SaveUser(ctx, user)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to register user: %w", err)
	}
	user.ID = id
	return user, nil
}

func (bt *BudgetTracker) Login(ctx context.Context, credentials auth.UserCredentialsPure) (auth.Session, error) {
	invalid := appErrors.New(appErrors.ErrAuth, "Invalid email or password.")

	email := auth.NormalizeEmail(credentials.Email)
	if email == "" || credentials.PasswordPlain == "" {
		return auth.Session{}, invalid
	}

	user, err := bt.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return auth.Session{}, invalid
		}
		return auth.Session{}, fmt.Errorf("failed to find user: %w", err)
	}

	if !auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
		return auth.Session{}, invalid
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		logging.WithTrace(contextutil.TraceIDFromContext(ctx)).Errorf("failed to generate session token: %v", err)
		return auth.Session{}, appErrors.New(appErrors.ErrInternal, "Failed to log in, try again later.")
	}

	now := bt.now().UTC()
	session := auth.Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		CreatedAt: now,
		ExpireAt:  now.Add(SESSION_LIFETIME),
	}

	if err := bt.storage.SaveSession(ctx, session); err != nil {
		return auth.Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

func (bt *BudgetTracker) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := bt.storage.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CheckSession resolves a session token. Sessions with less than
// SESSION_RENEW_THRESHOLD left are extended by a full lifetime.
func (bt *BudgetTracker) CheckSession(ctx context.Context, token string) (auth.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Session{}, appErrors.New(appErrors.ErrAuth, "Please log in to access this page.")
	}

	session, err := bt.storage.GetSessionByToken(ctx, token)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return auth.Session{}, appErrors.New(appErrors.ErrAuth, "Please log in to access this page.")
		}
		return auth.Session{}, fmt.Errorf("failed to get session by token: %w", err)
	}

	now := bt.now().UTC()
	if session.IsExpired(now) {
		if err := bt.storage.DeleteSession(ctx, token); err != nil {
			logging.WithTrace(contextutil.TraceIDFromContext(ctx)).Warnf("failed to remove expired session: %v", err)
		}
		return auth.Session{}, appErrors.New(appErrors.ErrAuth, "Session expired, please log in again.")
	}

	if session.ExpireAt.Sub(now) < SESSION_RENEW_THRESHOLD {
		newExpireAt := now.Add(SESSION_LIFETIME)
		if err := bt.storage.UpdateSession(ctx, token, newExpireAt); err != nil {
			return auth.Session{}, fmt.Errorf("failed to update session: %w", err)
		}
		session.ExpireAt = newExpireAt
	}

	return session, nil
}

// --- TRANSACTIONS --- //

func (bt *BudgetTracker) CreateTransaction(ctx context.Context, userID int64, req TransactionRequest) (Transaction, error) {
	t, err := parseTransactionRequest(req)
	if err != nil {
		return Transaction{}, err
	}
	t.UserID = userID

	id, err := bt.storage.SaveTransaction(ctx, t)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to save transaction: %w", err)
	}
	t.ID = id

	bt.checkBudgetAlert(ctx, userID, t.Month())
	return t, nil
}

func (bt *BudgetTracker) UpdateTransaction(ctx context.Context, userID int64, transactionID int64, req TransactionRequest) (Transaction, error) {
	if _, err := bt.GetTransaction(ctx, userID, transactionID); err != nil {
		return Transaction{}, err
	}

	t, err := parseTransactionRequest(req)
	if err != nil {
		return Transaction{}, err
	}
	t.ID = transactionID
	t.UserID = userID

	if err := bt.storage.UpdateTransaction(ctx, t); err != nil {
		return Transaction{}, fmt.Errorf("failed to update transaction: %w", err)
	}

	bt.checkBudgetAlert(ctx, userID, t.Month())
	return t, nil
}

// DeleteTransaction removes the caller's transaction. Unknown or foreign
// ids are a no-op.
func (bt *BudgetTracker) DeleteTransaction(ctx context.Context, userID int64, transactionID int64) error {
	if err := bt.storage.DeleteTransaction(ctx, userID, transactionID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (bt *BudgetTracker) GetTransaction(ctx context.Context, userID int64, transactionID int64) (Transaction, error) {
	t, err := bt.storage.GetTransactionById(ctx, userID, transactionID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return Transaction{}, appErrors.New(appErrors.ErrNotFound, "Transaction not found.")
		}
		return Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (bt *BudgetTracker) ListTransactions(ctx context.Context, userID int64, filter TransactionFilter) ([]Transaction, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	transactions, err := bt.storage.GetFilteredTransactions(ctx, userID, filter, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (bt *BudgetTracker) RecentTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = RECENT_TRANSACTIONS_LIMIT
	}
	transactions, err := bt.storage.GetFilteredTransactions(ctx, userID, TransactionFilter{}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent transactions: %w", err)
	}
	return transactions, nil
}

func (bt *BudgetTracker) checkBudgetAlert(ctx context.Context, userID int64, month string) {
	if bt.notifier == nil {
		return
	}
	logger := logging.WithTrace(contextutil.TraceIDFromContext(ctx))

	totals, err := bt.MonthTotals(ctx, userID, month)
	if err != nil {
		logger.Warnf("failed to evaluate budget alert: %v", err)
		return
	}
	if !isOverBudget(totals) {
		return
	}

	event := BudgetAlertEvent{
		UserID:  userID,
		Month:   month,
		Income:  totals.Income,
		Expense: totals.Expense,
	}
	if err := bt.notifier.NotifyBudgetAlert(ctx, event); err != nil {
		logger.Warnf("failed to send budget alert for user %d: %v", userID, err)
	}
}

func parseTransactionRequest(req TransactionRequest) (Transaction, error) {
	amountStr := strings.TrimSpace(req.Amount)
	category := strings.TrimSpace(req.Category)
	tType := strings.TrimSpace(req.Type)
	date := strings.TrimSpace(req.Date)
	description := strings.TrimSpace(req.Description)

	if amountStr == "" || category == "" || tType == "" || date == "" {
		return Transaction{}, appErrors.New(appErrors.ErrInvalidInput, "All required fields must be filled.")
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Transaction{}, appErrors.New(appErrors.ErrInvalidInput, "Amount must be a positive number.")
	}
	if !amount.IsPositive() {
		return Transaction{}, appErrors.New(appErrors.ErrInvalidInput, "Amount must be a positive number.")
	}
	if !amount.Equal(amount.Round(2)) {
		return Transaction{}, appErrors.New(appErrors.ErrInvalidInput, "Amount can have at most 2 decimal places.")
	}
	if amount.GreaterThan(MAX_TRANSACTION_AMOUNT) {
		return Transaction{}, appErrors.Newf(appErrors.ErrInvalidInput, "Amount is too large, maximum is %s.", MAX_TRANSACTION_AMOUNT.StringFixed(2))
	}

	if !IsValidCategory(category) {
		return Transaction{}, appErrors.Newf(appErrors.ErrInvalidInput, "Unknown category '%s'.", category)
	}
	if !IsValidType(tType) {
		return Transaction{}, appErrors.New(appErrors.ErrInvalidInput, "Type must be Income or Expense.")
	}
	if !isValidDate(date) {
		return Transaction{}, appErrors.New(appErrors.ErrInvalidInput, "Date must be in YYYY-MM-DD format.")
	}
	if len(description) > MAX_TRANSACTION_DESCRIPTION_LENGTH {
		return Transaction{}, appErrors.Newf(appErrors.ErrInvalidInput, "Description so long, maximum length is %d", MAX_TRANSACTION_DESCRIPTION_LENGTH)
	}

	return Transaction{
		Amount:      amount,
		Category:    category,
		Type:        tType,
		Date:        date,
		Description: description,
	}, nil
}

func normalizeFilter(filter TransactionFilter) (TransactionFilter, error) {
	filter = TransactionFilter{
		Month:    strings.TrimSpace(filter.Month),
		Type:     strings.TrimSpace(filter.Type),
		Category: strings.TrimSpace(filter.Category),
	}
	if filter.Month != "" && !IsValidMonth(filter.Month) {
		return TransactionFilter{}, appErrors.New(appErrors.ErrInvalidInput, "Month must be in YYYY-MM format.")
	}
	if filter.Type != "" && !IsValidType(filter.Type) {
		return TransactionFilter{}, appErrors.New(appErrors.ErrInvalidInput, "Type must be Income or Expense.")
	}
	if filter.Category != "" && !IsValidCategory(filter.Category) {
		return TransactionFilter{}, appErrors.Newf(appErrors.ErrInvalidInput, "Unknown category '%s'.", filter.Category)
	}
	return filter, nil
}

func isValidDate(date string) bool {
	if len(date) != len(DATE_LAYOUT) {
		return false
	}
	_, err := time.Parse(DATE_LAYOUT, date)
	return err == nil
}

func IsValidMonth(month string) bool {
	if len(month) != len(MONTH_LAYOUT) {
		return false
	}
	_, err := time.Parse(MONTH_LAYOUT, month)
	return err == nil
}
