package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarise/neuromarket/internal/database"
)

// These tests need a real MySQL instance: the debit guarantee rests on
// the conditional UPDATE, which no in-process fake reproduces. Set
// MYSQL_TEST_DSN to run them.
func ledgerForTest(t *testing.T) *LedgerRepository {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return NewLedgerRepository(db)
}

func freshUserID() int64 {
	return time.Now().UnixNano()
}

func TestDebitNeverOverdraws(t *testing.T) {
	repo := ledgerForTest(t)
	ctx := context.Background()
	userID := freshUserID()

	require.NoError(t, repo.Credit(ctx, userID, decimal.NewFromInt(100)))

	err := repo.Debit(ctx, userID, decimal.NewFromInt(150))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err := repo.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(balance), "balance changed on refused debit: %s", balance)
}

func TestCreditThenDebitRestoresBalance(t *testing.T) {
	repo := ledgerForTest(t)
	ctx := context.Background()
	userID := freshUserID()

	require.NoError(t, repo.Credit(ctx, userID, decimal.NewFromInt(500)))
	amount := decimal.RequireFromString("37.53")

	require.NoError(t, repo.Credit(ctx, userID, amount))
	require.NoError(t, repo.Debit(ctx, userID, amount))

	balance, err := repo.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(balance), "balance drifted: %s", balance)
}

func TestDebitMissingAccount(t *testing.T) {
	repo := ledgerForTest(t)

	err := repo.Debit(context.Background(), freshUserID(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}
