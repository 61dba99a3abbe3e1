package budget

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	appErrors "github.com/fatali-fataliyev/student_expense_tracker/customErrors"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
)

var csvHeader = []string{"Amount", "Category", "Type", "Date", "Description"}

// ExportCSV writes every transaction of the user, newest first, and returns
// the number of rows written (header excluded).
func (bt *BudgetTracker) ExportCSV(ctx context.Context, userID int64, w io.Writer) (int, error) {
	transactions, err := bt.storage.GetFilteredTransactions(ctx, userID, TransactionFilter{}, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to export transactions: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return 0, csvWriteError(ctx, err)
	}
	for _, t := range transactions {
		record := []string{t.Amount.String(), t.Category, t.Type, t.Date, t.Description}
		if err := writer.Write(record); err != nil {
			return 0, csvWriteError(ctx, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, csvWriteError(ctx, err)
	}
	return len(transactions), nil
}

func csvWriteError(ctx context.Context, err error) error {
	logging.WithTrace(contextutil.TraceIDFromContext(ctx)).Errorf("failed to write csv export: %v", err)
	return appErrors.New(appErrors.ErrInternal, "Failed to export transactions, try again later.")
}
