package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fatali-fataliyev/student_expense_tracker/config"
	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	pingAttempts = 15
	pingInterval = 3 * time.Second
)

// --- INIT START --- //

// Init connects to the configured SQL database, creating the MySQL schema
// when it is missing, and applies migrations.
func Init(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN()
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	if cfg.Driver == config.DriverMySQL && cfg.FullDSN == "" {
		if err := ensureMySQLDatabase(ctx, cfg); err != nil {
			return nil, err
		}
	}

	logging.Logger.Infof("Connecting to %s database...", cfg.Driver)
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := waitForDatabase(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logging.Logger.Info("Connected to database successfully")

	logging.Logger.Info("Running migrations...")
	if err := RunMigrations(cfg.Driver, dsn); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func waitForDatabase(ctx context.Context, db *sql.DB) error {
	for i := 0; i < pingAttempts; i++ {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/%d)", i+1, pingAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pingInterval):
		}
	}
	return fmt.Errorf("database unreachable after multiple attempts")
}

func ensureMySQLDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	adminCfg := mysql.NewConfig()
	adminCfg.User = cfg.User
	adminCfg.Passwd = cfg.Pass
	adminCfg.Net = "tcp"
	adminCfg.Addr = cfg.Host + ":" + port
	adminCfg.ParseTime = true

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", adminCfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("failed to open admin mysql handle: %w", err)
	}
	defer adminDb.Close()

	if err := waitForDatabase(ctx, adminDb); err != nil {
		return err
	}

	var existing string
	err = adminDb.QueryRowContext(ctx, "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?", cfg.Name).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		logging.Logger.Infof("Database '%s' does not exist, creating...", cfg.Name)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci", cfg.Name)
		if _, err := adminDb.ExecContext(ctx, createDbSql); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	return nil
}

// --- INIT END --- //

type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

func NewSQLStorage(db *sql.DB, driver string) (*SQLStorage, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLStorage{db: db, dialect: d}, nil
}

func (s *SQLStorage) GetStorageType() string {
	return s.dialect.name
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStorage) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStorage) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// insert runs an INSERT and returns the generated id.
func (s *SQLStorage) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.dialect.returningID() {
		var id int64
		err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func internalError(message string) error {
	return appErrors.New(appErrors.ErrInternal, message)
}

// --- USERS --- //

func (s *SQLStorage) SaveUser(ctx context.Context, user auth.User) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO users (name, email, password) VALUES (?, ?, ?)"
	id, err := s.insert(ctx, query, user.Name, user.Email, user.PasswordHashed)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return 0, emailTakenError()
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to insert user in Storage.SaveUser() function | Error : %v", traceID, err)
		return 0, internalError("Failed to create account, try again later.")
	}
	return id, nil
}

func (s *SQLStorage) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, name, email, password FROM users WHERE email = ?"
	var user auth.User
	err := s.queryRow(ctx, query, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHashed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, appErrors.New(appErrors.ErrNotFound, "User not found.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to scan user row in Storage.GetUserByEmail() function | Error : %v", traceID, err)
		return auth.User{}, internalError("Failed to find user, try again later.")
	}
	return user, nil
}

// --- SESSIONS --- //

func (s *SQLStorage) SaveSession(ctx context.Context, session auth.Session) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO sessions (token, user_id, user_name, created_at, expire_at) VALUES (?, ?, ?, ?, ?)"
	_, err := s.exec(ctx, query, session.Token, session.UserID, session.UserName, session.CreatedAt.UTC(), session.ExpireAt.UTC())
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to insert session in Storage.SaveSession() function | Error : %v", traceID, err)
		return internalError("Failed to create session, try again later.")
	}
	return nil
}

func (s *SQLStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT token, user_id, user_name, created_at, expire_at FROM sessions WHERE token = ?"
	var row dbSession
	err := s.queryRow(ctx, query, token).Scan(&row.Token, &row.UserID, &row.UserName, &row.CreatedAt, &row.ExpireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Session{}, appErrors.New(appErrors.ErrNotFound, "Session not found.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to scan session row in Storage.GetSessionByToken() function | Error : %v", traceID, err)
		return auth.Session{}, internalError("Failed to check session, try again later.")
	}
	return row.toSession(), nil
}

func (s *SQLStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "UPDATE sessions SET expire_at = ? WHERE token = ?"
	if _, err := s.exec(ctx, query, expireAt.UTC(), token); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update session in Storage.UpdateSession() function | Error : %v", traceID, err)
		return internalError("Failed to renew session, try again later.")
	}
	return nil
}

func (s *SQLStorage) DeleteSession(ctx context.Context, token string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	if _, err := s.exec(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete session in Storage.DeleteSession() function | Error : %v", traceID, err)
		return internalError("Failed to logout, try again later.")
	}
	return nil
}

// --- TRANSACTIONS --- //

func (s *SQLStorage) SaveTransaction(ctx context.Context, t budget.Transaction) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO transactions (user_id, amount, category, type, date, description) VALUES (?, ?, ?, ?, ?, ?)"
	id, err := s.insert(ctx, query, t.UserID, t.Amount, t.Category, t.Type, t.Date, t.Description)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to insert transaction in Storage.SaveTransaction() function | Error : %v", traceID, err)
		return 0, internalError("Failed to save transaction, try again later.")
	}
	return id, nil
}

func (s *SQLStorage) UpdateTransaction(ctx context.Context, t budget.Transaction) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "UPDATE transactions SET amount = ?, category = ?, type = ?, date = ?, description = ? WHERE id = ? AND user_id = ?"
	if _, err := s.exec(ctx, query, t.Amount, t.Category, t.Type, t.Date, t.Description, t.ID, t.UserID); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update transaction in Storage.UpdateTransaction() function | Error : %v", traceID, err)
		return internalError("Failed to update transaction, try again later.")
	}
	return nil
}

func (s *SQLStorage) DeleteTransaction(ctx context.Context, userID int64, transactionID int64) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "DELETE FROM transactions WHERE id = ? AND user_id = ?"
	if _, err := s.exec(ctx, query, transactionID, userID); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete transaction in Storage.DeleteTransaction() function | Error : %v", traceID, err)
		return internalError("Failed to delete transaction, try again later.")
	}
	return nil
}

func (s *SQLStorage) GetTransactionById(ctx context.Context, userID int64, transactionID int64) (budget.Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, user_id, amount, category, type, date, description FROM transactions WHERE id = ? AND user_id = ?"
	var row dbTransaction
	err := s.queryRow(ctx, query, transactionID, userID).Scan(&row.ID, &row.UserID, &row.Amount, &row.Category, &row.Type, &row.Date, &row.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return budget.Transaction{}, appErrors.New(appErrors.ErrNotFound, "Transaction not found.")
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.GetTransactionById() function | Error : %v", traceID, err)
		return budget.Transaction{}, internalError("Failed to get transaction, try again later.")
	}
	return row.toTransaction(), nil
}

func (s *SQLStorage) processTransactionRows(ctx context.Context, rows *sql.Rows) ([]budget.Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	defer rows.Close()

	transactions := []budget.Transaction{}
	for rows.Next() {
		var row dbTransaction
		if err := rows.Scan(&row.ID, &row.UserID, &row.Amount, &row.Category, &row.Type, &row.Date, &row.Description); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan transaction row in Storage.processTransactionRows() function | Error : %v", traceID, err)
			return nil, internalError("Failed to get transactions, try again later.")
		}
		transactions = append(transactions, row.toTransaction())
	}
	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate transaction rows in Storage.processTransactionRows() function | Error : %v", traceID, err)
		return nil, internalError("Failed to get transactions, try again later.")
	}
	return transactions, nil
}

// GetFilteredTransactions returns the user's transactions matching every
// non-empty filter field, newest first. A positive limit caps the result.
func (s *SQLStorage) GetFilteredTransactions(ctx context.Context, userID int64, filter budget.TransactionFilter, limit int) ([]budget.Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	where := &whereClause{}
	where.add("user_id = ?", userID)
	if filter.Month != "" {
		where.add("substr(date, 1, 7) = ?", filter.Month)
	}
	if filter.Type != "" {
		where.add("type = ?", filter.Type)
	}
	if filter.Category != "" {
		where.add("category = ?", filter.Category)
	}

	query := "SELECT id, user_id, amount, category, type, date, description FROM transactions" + where.String() + " ORDER BY date DESC, id ASC"
	args := where.args
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get filtered transactions from Storage.GetFilteredTransactions() function | Error : %v", traceID, err)
		return nil, internalError("Failed to get transactions, try again later.")
	}
	return s.processTransactionRows(ctx, rows)
}

// --- REPORTS --- //

const typeSums = "COALESCE(SUM(CASE WHEN type = 'Income' THEN amount ELSE 0 END), 0), " +
	"COALESCE(SUM(CASE WHEN type = 'Expense' THEN amount ELSE 0 END), 0)"

// GetTotals sums income and expense of the user, restricted to month when it
// is not empty.
func (s *SQLStorage) GetTotals(ctx context.Context, userID int64, month string) (budget.Totals, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	where := &whereClause{}
	where.add("user_id = ?", userID)
	if month != "" {
		where.add("substr(date, 1, 7) = ?", month)
	}

	var totals budget.Totals
	err := s.queryRow(ctx, "SELECT "+typeSums+" FROM transactions"+where.String(), where.args...).Scan(&totals.Income, &totals.Expense)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to scan totals in Storage.GetTotals() function | Error : %v", traceID, err)
		return budget.Totals{}, internalError("Failed to calculate totals, try again later.")
	}
	totals.Balance = totals.Income.Sub(totals.Expense)
	return totals, nil
}

// GetMonthlyTotals returns the limit most recent months, newest first.
func (s *SQLStorage) GetMonthlyTotals(ctx context.Context, userID int64, limit int) ([]budget.MonthlyPoint, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT substr(date, 1, 7) AS month, " + typeSums +
		" FROM transactions WHERE user_id = ? GROUP BY substr(date, 1, 7) ORDER BY month DESC LIMIT ?"
	rows, err := s.query(ctx, query, userID, limit)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to query monthly totals in Storage.GetMonthlyTotals() function | Error : %v", traceID, err)
		return nil, internalError("Failed to calculate monthly totals, try again later.")
	}
	defer rows.Close()

	points := []budget.MonthlyPoint{}
	for rows.Next() {
		var p budget.MonthlyPoint
		if err := rows.Scan(&p.Month, &p.Income, &p.Expense); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan monthly row in Storage.GetMonthlyTotals() function | Error : %v", traceID, err)
			return nil, internalError("Failed to calculate monthly totals, try again later.")
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate monthly rows in Storage.GetMonthlyTotals() function | Error : %v", traceID, err)
		return nil, internalError("Failed to calculate monthly totals, try again later.")
	}
	return points, nil
}

func (s *SQLStorage) GetCategoryTotals(ctx context.Context, userID int64, month string) ([]budget.CategoryTotal, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT category, SUM(amount) FROM transactions WHERE user_id = ? AND type = ? AND substr(date, 1, 7) = ? GROUP BY category"
	rows, err := s.query(ctx, query, userID, budget.TypeExpense, month)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to query category totals in Storage.GetCategoryTotals() function | Error : %v", traceID, err)
		return nil, internalError("Failed to calculate category breakdown, try again later.")
	}
	defer rows.Close()

	result := []budget.CategoryTotal{}
	for rows.Next() {
		var c budget.CategoryTotal
		if err := rows.Scan(&c.Category, &c.Total); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan category row in Storage.GetCategoryTotals() function | Error : %v", traceID, err)
			return nil, internalError("Failed to calculate category breakdown, try again later.")
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate category rows in Storage.GetCategoryTotals() function | Error : %v", traceID, err)
		return nil, internalError("Failed to calculate category breakdown, try again later.")
	}
	return result, nil
}

func emailTakenError() error {
	return appErrors.New(appErrors.ErrConflict, "Email already registered.")
}
