package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatali-fataliyev/student_expense_tracker/config"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

// dialect holds what differs between the supported SQL backends.
type dialect struct {
	name       string
	driverName string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return dialect{name: config.DriverSQLite, driverName: "sqlite"}, nil
	case config.DriverMySQL:
		return dialect{name: config.DriverMySQL, driverName: "mysql"}, nil
	case config.DriverPostgres:
		return dialect{name: config.DriverPostgres, driverName: "pgx"}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported sql driver: %q", driver)
	}
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres.
func (d dialect) rebind(query string) string {
	if d.name != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// returningID reports whether inserts read the new id with RETURNING
// instead of LastInsertId.
func (d dialect) returningID() bool {
	return d.name == config.DriverPostgres
}

func (d dialect) isUniqueViolation(err error) bool {
	switch d.name {
	case config.DriverSQLite:
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) {
			return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
		}
	case config.DriverMySQL:
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) {
			return mysqlErr.Number == mysqlDuplicateEntry
		}
	case config.DriverPostgres:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return pgErr.Code == postgresUniqueViolation
		}
	}
	return false
}

// sqliteDSN turns on foreign keys and a busy timeout for a database file.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
