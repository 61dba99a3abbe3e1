package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatali-fataliyev/student_expense_tracker/config"
	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/auth"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/services"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/storage"
)

const samplePassword = "password123"

type sampleUser struct {
	user         auth.NewUser
	transactions []budget.TransactionRequest
}

var sampleUsers = []sampleUser{
	{
		user: auth.NewUser{Name: "Alice Student", Email: "alice@example.com", PasswordPlain: samplePassword},
		transactions: []budget.TransactionRequest{
			{Amount: "15000", Category: "Others", Type: budget.TypeIncome, Date: "2025-12-01", Description: "Monthly allowance"},
			{Amount: "5000", Category: "Others", Type: budget.TypeIncome, Date: "2025-12-15", Description: "Part-time tutoring"},
			{Amount: "15000", Category: "Others", Type: budget.TypeIncome, Date: "2026-01-01", Description: "Monthly allowance"},
			{Amount: "3000", Category: "Others", Type: budget.TypeIncome, Date: "2026-01-20", Description: "Freelance project"},
			{Amount: "15000", Category: "Others", Type: budget.TypeIncome, Date: "2026-02-01", Description: "Monthly allowance"},

			{Amount: "3500", Category: "Rent", Type: budget.TypeExpense, Date: "2025-12-02", Description: "Hostel rent Dec"},
			{Amount: "1800", Category: "Food", Type: budget.TypeExpense, Date: "2025-12-10", Description: "Groceries & canteen"},
			{Amount: "450", Category: "Travel", Type: budget.TypeExpense, Date: "2025-12-12", Description: "Bus pass"},
			{Amount: "2000", Category: "Fees", Type: budget.TypeExpense, Date: "2025-12-20", Description: "Library fee"},
			{Amount: "800", Category: "Shopping", Type: budget.TypeExpense, Date: "2025-12-24", Description: "Christmas gifts"},

			{Amount: "3500", Category: "Rent", Type: budget.TypeExpense, Date: "2026-01-02", Description: "Hostel rent Jan"},
			{Amount: "2100", Category: "Food", Type: budget.TypeExpense, Date: "2026-01-08", Description: "Groceries"},
			{Amount: "600", Category: "Travel", Type: budget.TypeExpense, Date: "2026-01-15", Description: "Cab to college"},
			{Amount: "1500", Category: "Entertainment", Type: budget.TypeExpense, Date: "2026-01-18", Description: "Cinema & outing"},
			{Amount: "350", Category: "Health", Type: budget.TypeExpense, Date: "2026-01-25", Description: "Pharmacy"},

			{Amount: "3500", Category: "Rent", Type: budget.TypeExpense, Date: "2026-02-02", Description: "Hostel rent Feb"},
			{Amount: "1600", Category: "Food", Type: budget.TypeExpense, Date: "2026-02-08", Description: "Mess bill"},
			{Amount: "1200", Category: "Shopping", Type: budget.TypeExpense, Date: "2026-02-14", Description: "Valentines stationery"},
			{Amount: "500", Category: "Travel", Type: budget.TypeExpense, Date: "2026-02-18", Description: "Auto rickshaw"},
			{Amount: "4500", Category: "Fees", Type: budget.TypeExpense, Date: "2026-02-20", Description: "Exam registration fee"},
		},
	},
	{
		user: auth.NewUser{Name: "Bob Learner", Email: "bob@example.com", PasswordPlain: samplePassword},
	},
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run creates the sample accounts. Accounts that already exist are left
// untouched, so seeding twice does not duplicate transactions.
func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "Path to sqlite database file (overrides DB_DRIVER)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = *dbPath
	}

	ctx := context.Background()
	s, closeStorage, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeStorage()

	bt := budget.NewBudgetTracker(s, services.LogNotifier{})
	return seed(ctx, &bt, stdout)
}

func seed(ctx context.Context, bt *budget.BudgetTracker, stdout io.Writer) error {
	for _, sample := range sampleUsers {
		user, err := bt.Register(ctx, sample.user)
		if err != nil {
			if appErrors.IsConflict(err) {
				fmt.Fprintf(stdout, "User %s already exists, skipping\n", sample.user.Email)
				continue
			}
			return fmt.Errorf("failed to create user %s: %w", sample.user.Email, err)
		}

		for _, req := range sample.transactions {
			if _, err := bt.CreateTransaction(ctx, user.ID, req); err != nil {
				return fmt.Errorf("failed to create transaction %q: %w", req.Description, err)
			}
		}
		fmt.Fprintf(stdout, "Created %s with %d transactions\n", user.Email, len(sample.transactions))
	}

	fmt.Fprintf(stdout, "Sample password for every account: %s\n", samplePassword)
	return nil
}
