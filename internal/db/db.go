package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/shopspring/decimal"

	"github.com/lox/chat-ledger/internal/types"
)

var (
	// ErrNotFound is returned when no transaction has the requested id
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidDate is returned when a date override is not a real DD-MM-YYYY date
	ErrInvalidDate = errors.New("invalid transaction date")
)

// dateLayout is the layout of a draft's date override
const dateLayout = "02-01-2006"

// idLength is how many hex characters of a uuid make up a transaction id
const idLength = 8

// DB represents a SQLite database connection
type DB struct {
	db       *sql.DB
	logger   *log.Logger
	timezone *time.Location
	now      func() time.Time
}

// New opens (creating if needed) the ledger database in dataDir
func New(dataDir string, logger *log.Logger, timezone *time.Location) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them
	dsn := "file:" + filepath.Join(dataDir, "ledger.db") +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &DB{
		db:       db,
		logger:   logger,
		timezone: timezone,
		now:      time.Now,
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
			amount TEXT NOT NULL,
			description TEXT NOT NULL,
			date INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create transactions table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type)",
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// Timezone is the location dates are interpreted in
func (d *DB) Timezone() *time.Location {
	return d.timezone
}

// Now returns the current time in the store's timezone
func (d *DB) Now() time.Time {
	return d.now().In(d.timezone)
}

// Store persists a parsed draft and returns it with its assigned id. The
// draft's date override, if any, must be a real calendar date.
func (d *DB) Store(ctx context.Context, sender string, draft types.TransactionDraft) (types.StoredTransaction, error) {
	if !draft.Type.Valid() {
		return types.StoredTransaction{}, fmt.Errorf("cannot store transaction of type %q", draft.Type)
	}
	if draft.Amount.IsNegative() {
		return types.StoredTransaction{}, fmt.Errorf("cannot store negative amount %s", draft.Amount)
	}

	now := d.Now()
	date := now
	if draft.TransactionDate != nil {
		parsed, err := time.ParseInLocation(dateLayout, *draft.TransactionDate, d.timezone)
		if err != nil {
			d.logger.Debug("Rejected date override", "date", *draft.TransactionDate, "error", err)
			return types.StoredTransaction{}, fmt.Errorf("%w %s", ErrInvalidDate, *draft.TransactionDate)
		}
		date = parsed
	}

	tx := types.StoredTransaction{
		Sender:      sender,
		Amount:      draft.Amount,
		Type:        draft.Type,
		Description: draft.Description,
		Date:        date,
		CreatedAt:   now,
	}

	// Short ids can collide, so draw until one inserts
	for attempt := 0; attempt < 5; attempt++ {
		tx.ID = newID()
		d.logger.Debug("Storing transaction", "id", tx.ID, "type", tx.Type, "amount", tx.Amount, "date", tx.Date)

		result, err := d.db.ExecContext(ctx, `
			INSERT INTO transactions (id, sender, type, amount, description, date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, tx.ID, tx.Sender, string(tx.Type), tx.Amount.String(), tx.Description, tx.Date.Unix(), tx.CreatedAt.Unix())
		if err != nil {
			return types.StoredTransaction{}, fmt.Errorf("failed to store transaction: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return types.StoredTransaction{}, fmt.Errorf("failed to check stored transaction: %w", err)
		}
		if rows == 1 {
			tx.Date = time.Unix(tx.Date.Unix(), 0).In(d.timezone)
			tx.CreatedAt = time.Unix(tx.CreatedAt.Unix(), 0).In(d.timezone)
			return tx, nil
		}
		d.logger.Warn("Transaction id collision", "id", tx.ID)
	}

	return types.StoredTransaction{}, fmt.Errorf("failed to allocate a transaction id")
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

// Get returns the transaction with the given id
func (d *DB) Get(ctx context.Context, id string) (types.StoredTransaction, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, sender, type, amount, description, date, created_at
		FROM transactions WHERE id = ?
	`, strings.ToLower(id))

	tx, err := d.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredTransaction{}, ErrNotFound
	}
	if err != nil {
		return types.StoredTransaction{}, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return tx, nil
}

// Delete removes the transaction with the given id
func (d *DB) Delete(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted transaction: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	d.logger.Debug("Deleted transaction", "id", id)
	return nil
}

// Count returns the number of stored transactions
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// List returns transactions dated within [start, end], newest first. A limit
// of zero or less means no limit.
func (d *DB) List(ctx context.Context, start, end time.Time, limit int) ([]types.StoredTransaction, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, sender, type, amount, description, date, created_at
		FROM transactions
		WHERE date >= ? AND date <= ?
		ORDER BY date DESC, created_at DESC, id
		LIMIT ?
	`, start.Unix(), end.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []types.StoredTransaction
	for rows.Next() {
		tx, err := d.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return out, nil
}

// Recent lists transactions from the last days days, newest first
func (d *DB) Recent(ctx context.Context, days, limit int) ([]types.StoredTransaction, error) {
	now := d.Now()
	return d.List(ctx, now.AddDate(0, 0, -days), now, limit)
}

// Totals sums income and expense dated within [start, end]
func (d *DB) Totals(ctx context.Context, start, end time.Time) (types.Totals, error) {
	totals := types.Totals{Income: decimal.Zero, Expense: decimal.Zero}

	rows, err := d.db.QueryContext(ctx, `
		SELECT type, amount FROM transactions WHERE date >= ? AND date <= ?
	`, start.Unix(), end.Unix())
	if err != nil {
		return totals, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, amount string
		if err := rows.Scan(&kind, &amount); err != nil {
			return totals, fmt.Errorf("failed to scan amount: %w", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return totals, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		switch types.TransactionType(kind) {
		case types.TransactionTypeIncome:
			totals.Income = totals.Income.Add(value)
		case types.TransactionTypeExpense:
			totals.Expense = totals.Expense.Add(value)
		}
	}
	if err := rows.Err(); err != nil {
		return totals, fmt.Errorf("error iterating totals: %w", err)
	}

	return totals, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (d *DB) scan(s scanner) (types.StoredTransaction, error) {
	var (
		tx              types.StoredTransaction
		kind, amount    string
		date, createdAt int64
	)
	if err := s.Scan(&tx.ID, &tx.Sender, &kind, &amount, &tx.Description, &date, &createdAt); err != nil {
		return types.StoredTransaction{}, err
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return types.StoredTransaction{}, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}

	tx.Type = types.TransactionType(kind)
	tx.Amount = value
	tx.Date = time.Unix(date, 0).In(d.timezone)
	tx.CreatedAt = time.Unix(createdAt, 0).In(d.timezone)
	return tx, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}
