package budget_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []budget.BudgetAlertEvent
	err    error
}

func (n *recordingNotifier) NotifyBudgetAlert(ctx context.Context, event budget.BudgetAlertEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	bt       budget.BudgetTracker
	notifier *recordingNotifier
	clock    *fixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	notifier := &recordingNotifier{}
	clock := &fixedClock{now: time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC)}
	bt := budget.NewBudgetTracker(storage.NewInMemoryStorage(), notifier, budget.WithClock(clock.Now))
	return &fixture{bt: bt, notifier: notifier, clock: clock}
}

func (f *fixture) register(t *testing.T, name, email string) auth.User {
	t.Helper()
	user, err := f.bt.Register(context.Background(), auth.NewUser{Name: name, Email: email, PasswordPlain: "password123"})
	require.NoError(t, err)
	return user
}

func (f *fixture) add(t *testing.T, userID int64, amount, category, tType, date, description string) budget.Transaction {
	t.Helper()
	tx, err := f.bt.CreateTransaction(context.Background(), userID, budget.TransactionRequest{
		Amount:      amount,
		Category:    category,
		Type:        tType,
		Date:        date,
		Description: description,
	})
	require.NoError(t, err)
	return tx
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- AUTH --- //

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.bt.Register(ctx, auth.NewUser{Name: " Alice Student ", Email: "Alice@Example.com", PasswordPlain: "password123"})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "Alice Student", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHashed)
}

func TestRegisterDuplicateEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Alice", "alice@example.com")

	_, err := f.bt.Register(context.Background(), auth.NewUser{Name: "Other", Email: "ALICE@example.com", PasswordPlain: "secret99"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict, appErrors.CodeOf(err))
	assert.Equal(t, "Email already registered.", appErrors.MessageOf(err))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    auth.NewUser
		message string
	}{
		{"missing name", auth.NewUser{Name: "  ", Email: "a@b.com", PasswordPlain: "secret"}, "All fields are required."},
		{"missing email", auth.NewUser{Name: "A", PasswordPlain: "secret"}, "All fields are required."},
		{"short password", auth.NewUser{Name: "A", Email: "a@b.com", PasswordPlain: "12345"}, "Password must be at least 6 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bt.Register(ctx, tt.user)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
			assert.Equal(t, tt.message, appErrors.MessageOf(err))
		})
	}

	_, err := f.bt.Login(ctx, auth.UserCredentialsPure{Email: "a@b.com", PasswordPlain: "12345"})
	assert.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err), "rejected registration must not persist a user")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Alice Student", "alice@example.com")

	session, err := f.bt.Login(ctx, auth.UserCredentialsPure{Email: " ALICE@example.com", PasswordPlain: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "Alice Student", session.UserName)
	assert.Len(t, session.Token, 64)
	assert.Equal(t, f.clock.Now().Add(budget.SESSION_LIFETIME), session.ExpireAt)

	for _, creds := range []auth.UserCredentialsPure{
		{Email: "alice@example.com", PasswordPlain: "wrong-password"},
		{Email: "nobody@example.com", PasswordPlain: "password123"},
		{Email: "", PasswordPlain: ""},
	} {
		_, err := f.bt.Login(ctx, creds)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))
		assert.Equal(t, "Invalid email or password.", appErrors.MessageOf(err))
	}
}

func TestCheckSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Alice", "alice@example.com")

	session, err := f.bt.Login(ctx, auth.UserCredentialsPure{Email: "alice@example.com", PasswordPlain: "password123"})
	require.NoError(t, err)

	got, err := f.bt.CheckSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "Alice", got.UserName)

	for _, token := range []string{"", "   ", "unknown-token"} {
		_, err := f.bt.CheckSession(ctx, token)
		assert.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err), "token %q", token)
	}
}

func TestCheckSessionRenewsNearExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Alice", "alice@example.com")

	session, err := f.bt.Login(ctx, auth.UserCredentialsPure{Email: "alice@example.com", PasswordPlain: "password123"})
	require.NoError(t, err)

	f.clock.Advance(10 * 24 * time.Hour)
	got, err := f.bt.CheckSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ExpireAt, got.ExpireAt, "session with 20 days left is not renewed")

	f.clock.Advance(10 * 24 * time.Hour)
	got, err = f.bt.CheckSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(budget.SESSION_LIFETIME), got.ExpireAt)
}

func TestCheckSessionExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Alice", "alice@example.com")

	session, err := f.bt.Login(ctx, auth.UserCredentialsPure{Email: "alice@example.com", PasswordPlain: "password123"})
	require.NoError(t, err)

	f.clock.Advance(budget.SESSION_LIFETIME + time.Minute)
	_, err = f.bt.CheckSession(ctx, session.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Alice", "alice@example.com")

	session, err := f.bt.Login(ctx, auth.UserCredentialsPure{Email: "alice@example.com", PasswordPlain: "password123"})
	require.NoError(t, err)

	require.NoError(t, f.bt.Logout(ctx, session.Token))
	_, err = f.bt.CheckSession(ctx, session.Token)
	assert.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))

	assert.NoError(t, f.bt.Logout(ctx, session.Token))
	assert.NoError(t, f.bt.Logout(ctx, ""))
}

// --- TRANSACTIONS --- //

func TestCreateTransactionRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	created := f.add(t, alice.ID, "12.5", "Food", "Expense", "2025-12-10", "  Lunch  ")
	assert.NotZero(t, created.ID)
	assert.True(t, dec("12.50").Equal(created.Amount))
	assert.Equal(t, "Lunch", created.Description)

	list, err := f.bt.ListTransactions(ctx, alice.ID, budget.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	valid := budget.TransactionRequest{Amount: "10", Category: "Food", Type: "Expense", Date: "2025-12-01"}

	tests := []struct {
		name   string
		mutate func(r *budget.TransactionRequest)
	}{
		{"missing amount", func(r *budget.TransactionRequest) { r.Amount = "" }},
		{"missing category", func(r *budget.TransactionRequest) { r.Category = "" }},
		{"missing type", func(r *budget.TransactionRequest) { r.Type = "" }},
		{"missing date", func(r *budget.TransactionRequest) { r.Date = "" }},
		{"non numeric amount", func(r *budget.TransactionRequest) { r.Amount = "abc" }},
		{"negative amount", func(r *budget.TransactionRequest) { r.Amount = "-5" }},
		{"zero amount", func(r *budget.TransactionRequest) { r.Amount = "0" }},
		{"below one cent", func(r *budget.TransactionRequest) { r.Amount = "0.001" }},
		{"three decimals", func(r *budget.TransactionRequest) { r.Amount = "12.345" }},
		{"too large", func(r *budget.TransactionRequest) { r.Amount = "10000000000" }},
		{"unknown category", func(r *budget.TransactionRequest) { r.Category = "Books" }},
		{"unknown type", func(r *budget.TransactionRequest) { r.Type = "Transfer" }},
		{"bad month", func(r *budget.TransactionRequest) { r.Date = "2025-13-01" }},
		{"bad format", func(r *budget.TransactionRequest) { r.Date = "2025/12/01" }},
		{"short date", func(r *budget.TransactionRequest) { r.Date = "2025-1-01" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.bt.CreateTransaction(ctx, alice.ID, req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
		})
	}

	list, err := f.bt.ListTransactions(ctx, alice.ID, budget.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "invalid input must not persist rows")
}

func TestCreateTransactionAmountPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	for _, amount := range []string{"0.001", "12.345", "0.009"} {
		_, err := f.bt.CreateTransaction(ctx, alice.ID, budget.TransactionRequest{
			Amount: amount, Category: "Food", Type: "Expense", Date: "2025-12-01",
		})
		require.Error(t, err, amount)
		assert.Equal(t, "Amount can have at most 2 decimal places.", appErrors.MessageOf(err), amount)
	}

	for _, amount := range []string{"0.01", "12.5", "12.50"} {
		tx, err := f.bt.CreateTransaction(ctx, alice.ID, budget.TransactionRequest{
			Amount: amount, Category: "Food", Type: "Expense", Date: "2025-12-01",
		})
		require.NoError(t, err, amount)
		assert.True(t, dec(amount).Equal(tx.Amount), amount)
	}
}

func TestUpdateTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	tx := f.add(t, alice.ID, "100", "Food", "Expense", "2025-12-10", "Groceries")

	updated, err := f.bt.UpdateTransaction(ctx, alice.ID, tx.ID, budget.TransactionRequest{
		Amount: "80.25", Category: "Health", Type: "Expense", Date: "2025-12-11", Description: "Pharmacy",
	})
	require.NoError(t, err)
	assert.Equal(t, tx.ID, updated.ID)

	got, err := f.bt.GetTransaction(ctx, alice.ID, tx.ID)
	require.NoError(t, err)
	assert.True(t, dec("80.25").Equal(got.Amount))
	assert.Equal(t, "Health", got.Category)
	assert.Equal(t, "2025-12-11", got.Date)

	_, err = f.bt.UpdateTransaction(ctx, bob.ID, tx.ID, budget.TransactionRequest{
		Amount: "1", Category: "Food", Type: "Expense", Date: "2025-12-11",
	})
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))

	_, err = f.bt.UpdateTransaction(ctx, alice.ID, 9999, budget.TransactionRequest{
		Amount: "1", Category: "Food", Type: "Expense", Date: "2025-12-11",
	})
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))

	_, err = f.bt.UpdateTransaction(ctx, alice.ID, tx.ID, budget.TransactionRequest{
		Amount: "-1", Category: "Food", Type: "Expense", Date: "2025-12-11",
	})
	assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
}

func TestDeleteTransactionIsIdempotentAndScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	tx := f.add(t, alice.ID, "100", "Food", "Expense", "2025-12-10", "")

	require.NoError(t, f.bt.DeleteTransaction(ctx, bob.ID, tx.ID))
	_, err := f.bt.GetTransaction(ctx, alice.ID, tx.ID)
	require.NoError(t, err, "another user's delete is a no-op")

	require.NoError(t, f.bt.DeleteTransaction(ctx, alice.ID, tx.ID))
	require.NoError(t, f.bt.DeleteTransaction(ctx, alice.ID, tx.ID))
	require.NoError(t, f.bt.DeleteTransaction(ctx, alice.ID, 424242))

	_, err = f.bt.GetTransaction(ctx, alice.ID, tx.ID)
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func TestListTransactionsFiltersAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	first := f.add(t, alice.ID, "10", "Food", "Expense", "2025-12-10", "first")
	second := f.add(t, alice.ID, "20", "Food", "Expense", "2025-12-10", "second")
	income := f.add(t, alice.ID, "1000", "Others", "Income", "2025-12-01", "")
	jan := f.add(t, alice.ID, "30", "Travel", "Expense", "2026-01-05", "")
	f.add(t, bob.ID, "99", "Food", "Expense", "2025-12-10", "bob")

	all, err := f.bt.ListTransactions(ctx, alice.ID, budget.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{jan.ID, first.ID, second.ID, income.ID}, ids(all))

	dec2025, err := f.bt.ListTransactions(ctx, alice.ID, budget.TransactionFilter{Month: "2025-12"})
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID, income.ID}, ids(dec2025))

	food, err := f.bt.ListTransactions(ctx, alice.ID, budget.TransactionFilter{Month: "2025-12", Type: "Expense", Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, ids(food))

	incomes, err := f.bt.ListTransactions(ctx, alice.ID, budget.TransactionFilter{Type: "Income"})
	require.NoError(t, err)
	assert.Equal(t, []int64{income.ID}, ids(incomes))

	none, err := f.bt.ListTransactions(ctx, alice.ID, budget.TransactionFilter{Month: "2024-01"})
	require.NoError(t, err)
	assert.Empty(t, none)

	for _, filter := range []budget.TransactionFilter{{Month: "2025-12-01"}, {Type: "income"}, {Category: "Books"}} {
		_, err := f.bt.ListTransactions(ctx, alice.ID, filter)
		assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err), "filter %+v", filter)
	}
}

func TestRecentTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	for _, date := range []string{"2025-12-01", "2025-12-02", "2025-12-03", "2025-12-04", "2025-12-05", "2025-12-06"} {
		f.add(t, alice.ID, "1", "Food", "Expense", date, "")
	}

	recent, err := f.bt.RecentTransactions(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, recent, budget.RECENT_TRANSACTIONS_LIMIT)
	assert.Equal(t, "2025-12-06", recent[0].Date)
	assert.Equal(t, "2025-12-02", recent[4].Date)
}

func ids(transactions []budget.Transaction) []int64 {
	result := make([]int64, 0, len(transactions))
	for _, t := range transactions {
		result = append(result, t.ID)
	}
	return result
}

// --- REPORTS --- //

func TestTotalsWithoutTransactions(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")

	totals, err := f.bt.Totals(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.True(t, totals.Income.IsZero())
	assert.True(t, totals.Expense.IsZero())
	assert.True(t, totals.Balance.IsZero())
}

func TestTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	f.add(t, alice.ID, "100.10", "Others", "Income", "2025-12-01", "")
	f.add(t, alice.ID, "0.20", "Food", "Expense", "2025-12-02", "")
	f.add(t, alice.ID, "0.10", "Food", "Expense", "2026-01-02", "")

	totals, err := f.bt.Totals(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, dec("100.10").Equal(totals.Income))
	assert.True(t, dec("0.30").Equal(totals.Expense))
	assert.True(t, totals.Income.Sub(totals.Expense).Equal(totals.Balance))

	month, err := f.bt.MonthTotals(ctx, alice.ID, "2026-01")
	require.NoError(t, err)
	assert.True(t, month.Income.IsZero())
	assert.True(t, dec("-0.10").Equal(month.Balance))

	_, err = f.bt.MonthTotals(ctx, alice.ID, "January")
	assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
}

func TestBudgetAlertDecemberScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice Student", "alice@example.com")

	f.add(t, alice.ID, "15000", "Others", "Income", "2025-12-01", "Monthly allowance")
	f.add(t, alice.ID, "3500", "Rent", "Expense", "2025-12-02", "Hostel rent Dec")
	f.add(t, alice.ID, "1800", "Food", "Expense", "2025-12-10", "Groceries & canteen")
	f.add(t, alice.ID, "450", "Travel", "Expense", "2025-12-12", "Bus pass")
	f.add(t, alice.ID, "2000", "Fees", "Expense", "2025-12-20", "Library fee")
	f.add(t, alice.ID, "800", "Shopping", "Expense", "2025-12-24", "Christmas gifts")

	totals, err := f.bt.MonthTotals(ctx, alice.ID, "2025-12")
	require.NoError(t, err)
	assert.True(t, dec("15000").Equal(totals.Income))
	assert.True(t, dec("8550").Equal(totals.Expense))
	assert.True(t, dec("6450").Equal(totals.Balance))

	alert, err := f.bt.BudgetAlert(ctx, alice.ID, "2025-12")
	require.NoError(t, err)
	assert.False(t, alert)
	assert.Empty(t, f.notifier.events)

	f.add(t, alice.ID, "4000", "Fees", "Expense", "2025-12-27", "Exam fee")

	alert, err = f.bt.BudgetAlert(ctx, alice.ID, "2025-12")
	require.NoError(t, err)
	assert.True(t, alert)

	require.Len(t, f.notifier.events, 1)
	event := f.notifier.events[0]
	assert.Equal(t, alice.ID, event.UserID)
	assert.Equal(t, "2025-12", event.Month)
	assert.True(t, dec("12550").Equal(event.Expense))
}

func TestBudgetAlertEdgeCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	f.add(t, alice.ID, "500", "Food", "Expense", "2025-11-05", "")
	alert, err := f.bt.BudgetAlert(ctx, alice.ID, "2025-11")
	require.NoError(t, err)
	assert.False(t, alert, "no income never alerts")

	f.add(t, alice.ID, "500", "Others", "Income", "2025-10-01", "")
	alert, err = f.bt.BudgetAlert(ctx, alice.ID, "2025-10")
	require.NoError(t, err)
	assert.False(t, alert, "no expense never alerts")

	f.add(t, alice.ID, "1000", "Others", "Income", "2025-09-01", "")
	f.add(t, alice.ID, "800", "Food", "Expense", "2025-09-02", "")
	alert, err = f.bt.BudgetAlert(ctx, alice.ID, "2025-09")
	require.NoError(t, err)
	assert.True(t, alert, "exactly 80% alerts")
}

func TestNotifierFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	alice := f.register(t, "Alice", "alice@example.com")

	f.add(t, alice.ID, "100", "Others", "Income", "2025-12-01", "")
	tx := f.add(t, alice.ID, "90", "Food", "Expense", "2025-12-02", "")

	assert.NotZero(t, tx.ID)
	assert.Len(t, f.notifier.events, 1)
}

func TestMonthlySeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	months := []string{"2025-05", "2025-06", "2025-07", "2025-08", "2025-09", "2025-10", "2025-11"}
	for _, m := range months {
		f.add(t, alice.ID, "100", "Others", "Income", m+"-01", "")
		f.add(t, alice.ID, "40", "Food", "Expense", m+"-15", "")
	}

	series, err := f.bt.MonthlySeries(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, series, budget.MONTHLY_SERIES_LIMIT)
	assert.Equal(t, "2025-06", series[0].Month)
	assert.Equal(t, "2025-11", series[5].Month)
	assert.True(t, dec("100").Equal(series[0].Income))
	assert.True(t, dec("40").Equal(series[0].Expense))

	short, err := f.bt.MonthlySeries(ctx, alice.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "2025-10", short[0].Month)
	assert.Equal(t, "2025-11", short[1].Month)
}

func TestCategoryBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	f.add(t, alice.ID, "10", "Shopping", "Expense", "2025-12-01", "")
	f.add(t, alice.ID, "20", "Food", "Expense", "2025-12-02", "")
	f.add(t, alice.ID, "5.5", "Food", "Expense", "2025-12-03", "")
	f.add(t, alice.ID, "999", "Others", "Income", "2025-12-01", "")
	f.add(t, alice.ID, "70", "Rent", "Expense", "2026-01-02", "")

	breakdown, err := f.bt.CategoryBreakdown(ctx, alice.ID, "2025-12")
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Food", breakdown[0].Category)
	assert.True(t, dec("25.5").Equal(breakdown[0].Total))
	assert.Equal(t, "Shopping", breakdown[1].Category)

	empty, err := f.bt.CategoryBreakdown(ctx, alice.ID, "2024-01")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDashboardDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	f.add(t, alice.ID, "1000", "Others", "Income", "2025-12-01", "")
	f.add(t, alice.ID, "900", "Rent", "Expense", "2025-12-02", "")
	f.add(t, alice.ID, "50", "Food", "Expense", "2025-11-20", "")

	d, err := f.bt.Dashboard(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-12", d.Month)
	assert.True(t, d.BudgetAlert)
	assert.True(t, dec("50").Equal(d.Totals.Balance))
	assert.True(t, dec("100").Equal(d.MonthTotals.Balance))
	assert.Len(t, d.Recent, 3)
	assert.Equal(t, []string{"2025-11", "2025-12"}, d.ChartLabels())
	assert.Equal(t, []float64{0, 1000}, d.IncomeSeries())
	assert.Equal(t, []float64{50, 900}, d.ExpenseSeries())
	assert.Equal(t, []string{"Rent"}, d.PieLabels())
	assert.Equal(t, []float64{900}, d.PieValues())

	nov, err := f.bt.Dashboard(ctx, alice.ID, "2025-11")
	require.NoError(t, err)
	assert.False(t, nov.BudgetAlert)
	assert.Equal(t, []string{"Food"}, nov.PieLabels())

	_, err = f.bt.Dashboard(ctx, alice.ID, "11-2025")
	assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
}

// --- EXPORT --- //

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	f.add(t, alice.ID, "15000", "Others", "Income", "2025-12-01", "Monthly allowance")
	f.add(t, alice.ID, "1800", "Food", "Expense", "2025-12-10", "Groceries, canteen")
	f.add(t, bob.ID, "1", "Food", "Expense", "2025-12-10", "bob secret")

	var buf bytes.Buffer
	n, err := f.bt.ExportCSV(ctx, alice.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Amount", "Category", "Type", "Date", "Description"}, records[0])
	assert.Equal(t, []string{"1800", "Food", "Expense", "2025-12-10", "Groceries, canteen"}, records[1])
	assert.Equal(t, []string{"15000", "Others", "Income", "2025-12-01", "Monthly allowance"}, records[2])
	assert.NotContains(t, buf.String(), "bob secret")
}

func TestExportCSVWithoutTransactions(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")

	var buf bytes.Buffer
	n, err := f.bt.ExportCSV(context.Background(), alice.ID, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "Amount,Category,Type,Date,Description\n", buf.String())
}
