package db

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lox/chat-ledger/internal/types"
)

var testNow = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	logger := log.New(io.Discard)
	logger.SetLevel(log.DebugLevel)

	db, err := New(t.TempDir(), logger, time.UTC)
	require.NoError(t, err)
	db.now = func() time.Time { return testNow }

	t.Cleanup(func() { db.Close() })
	return db
}

func draft(amount int64, kind types.TransactionType, desc string, date string) types.TransactionDraft {
	d := types.TransactionDraft{
		Amount:      decimal.NewFromInt(amount),
		Type:        kind,
		Description: desc,
	}
	if date != "" {
		d.TransactionDate = &date
	}
	return d
}

func TestStoreAndGetTransaction(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	stored, err := db.Store(ctx, "6281234", draft(15000, types.TransactionTypeExpense, "kopi", ""))
	require.NoError(t, err)

	assert.Len(t, stored.ID, idLength)
	assert.Regexp(t, `^[0-9a-f]{8}$`, stored.ID)
	assert.True(t, stored.Date.Equal(testNow))
	assert.Equal(t, "6281234", stored.Sender)

	got, err := db.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "kopi", got.Description)
	assert.Equal(t, types.TransactionTypeExpense, got.Type)
	assert.True(t, decimal.NewFromInt(15000).Equal(got.Amount))
	assert.True(t, stored.Date.Equal(got.Date))

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStoreDateOverride(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	stored, err := db.Store(ctx, "", draft(200000, types.TransactionTypeExpense, "listrik", "01-06-2025"))
	require.NoError(t, err)
	assert.True(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC).Equal(stored.Date))
	assert.True(t, testNow.Equal(stored.CreatedAt))
}

func TestStoreRejects(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := map[string]types.TransactionDraft{
		"impossible date": draft(1, types.TransactionTypeExpense, "x", "31-02-2025"),
		"wrong layout":    draft(1, types.TransactionTypeExpense, "x", "2025-02-01"),
		"unknown type":    draft(1, types.TransactionTypeUnknown, "x", ""),
		"negative amount": draft(-1, types.TransactionTypeIncome, "x", ""),
	}

	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := db.Store(ctx, "", d)
			assert.Error(t, err)
			if d.TransactionDate != nil {
				assert.ErrorIs(t, err, ErrInvalidDate)
			}
		})
	}

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLargeAmountsSurvive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	huge, err := decimal.NewFromString("999999999999000000000")
	require.NoError(t, err)

	stored, err := db.Store(ctx, "", types.TransactionDraft{Amount: huge, Type: types.TransactionTypeIncome})
	require.NoError(t, err)

	got, err := db.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "999999999999000000000", got.Amount.String())
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	stored, err := db.Store(ctx, "", draft(5000, types.TransactionTypeExpense, "parkir", ""))
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, stored.ID))

	_, err = db.Get(ctx, stored.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = db.Delete(ctx, stored.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTotalsAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	fixtures := []types.TransactionDraft{
		draft(5000000, types.TransactionTypeIncome, "gaji", "01-06-2025"),
		draft(15000, types.TransactionTypeExpense, "kopi", "02-06-2025"),
		draft(200000, types.TransactionTypeExpense, "listrik", "30-06-2025"),
		draft(100000, types.TransactionTypeIncome, "bonus", "01-07-2025"),
		draft(50000, types.TransactionTypeExpense, "bensin", "31-05-2025"),
	}
	for _, f := range fixtures {
		_, err := db.Store(ctx, "", f)
		require.NoError(t, err)
	}

	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)

	totals, err := db.Totals(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, "5000000", totals.Income.String())
	assert.Equal(t, "215000", totals.Expense.String())
	assert.Equal(t, "4785000", totals.Balance().String())

	list, err := db.List(ctx, start, end, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "listrik", list[0].Description)
	assert.Equal(t, "kopi", list[1].Description)
	assert.Equal(t, "gaji", list[2].Description)

	limited, err := db.List(ctx, start, end, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "listrik", limited[0].Description)

	empty, err := db.Totals(ctx, end.Add(time.Hour), end.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, empty.Income.IsZero())
	assert.True(t, empty.Expense.IsZero())
}

func TestRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Store(ctx, "", draft(1000, types.TransactionTypeExpense, "today", ""))
	require.NoError(t, err)
	_, err = db.Store(ctx, "", draft(1000, types.TransactionTypeExpense, "old", "01-01-2025"))
	require.NoError(t, err)

	recent, err := db.Recent(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "today", recent[0].Description)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger := log.New(io.Discard)

	first, err := New(dir, logger, time.UTC)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(dir, logger, time.UTC)
	require.NoError(t, err)
	defer second.Close()

	var applied int
	require.NoError(t, second.db.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&applied))
	assert.Equal(t, len(migrations), applied)
}

func TestAppliedMigrations(t *testing.T) {
	db := setupTestDB(t)

	applied, err := appliedMigrations(context.Background(), db.db)
	require.NoError(t, err)
	for _, m := range migrations {
		assert.True(t, applied[m.ID], "migration %d", m.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = appliedMigrations(ctx, db.db)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentStores(t *testing.T) {
	db := setupTestDB(t)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(4)

	for i := 0; i < 40; i++ {
		g.Go(func() error {
			_, err := db.Store(ctx, "", draft(1000, types.TransactionTypeExpense, "x", ""))
			return err
		})
	}
	require.NoError(t, g.Wait())

	count, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, count)
}
