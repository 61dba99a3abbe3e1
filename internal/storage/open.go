package storage

import (
	"context"

	"github.com/fatali-fataliyev/student_expense_tracker/config"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
)

// Open returns the storage selected by cfg.Driver together with the function
// that releases it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (budget.Storage, func() error, error) {
	if cfg.Driver == config.DriverInMemory {
		return NewInMemoryStorage(), func() error { return nil }, nil
	}

	db, err := Init(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := NewSQLStorage(db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, s.Close, nil
}
