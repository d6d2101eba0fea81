package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"trading_ledger/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetOrCreateWalletIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var first, second uint
	require.NoError(t, m.Atomic(ctx, func(tx Tx) error {
		w, err := tx.GetOrCreateWallet(ctx, 42)
		first = w.ID
		return err
	}))
	require.NoError(t, m.Atomic(ctx, func(tx Tx) error {
		w, err := tx.GetOrCreateWallet(ctx, 42)
		second = w.ID
		return err
	}))
	assert.Equal(t, first, second)

	w, err := m.GetWallet(ctx, 42)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestMemory_FailedUnitLeavesNoTrace(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.Atomic(ctx, func(tx Tx) error {
		w, err := tx.GetOrCreateWallet(ctx, 1)
		if err != nil {
			return err
		}
		w.Balance = decimal.NewFromInt(500)
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, &domain.TradingAccount{UserID: 1, AccountID: "10000001"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.GetWallet(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = m.GetAccount(ctx, "10000001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_StagedWritesVisibleInsideUnit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Atomic(ctx, func(tx Tx) error {
		if err := tx.CreateAccount(ctx, &domain.TradingAccount{UserID: 1, AccountID: "10000001"}); err != nil {
			return err
		}
		exists, err := tx.AccountIDExists(ctx, "10000001")
		require.NoError(t, err)
		assert.True(t, exists)

		err = tx.CreateAccount(ctx, &domain.TradingAccount{UserID: 2, AccountID: "10000001"})
		assert.ErrorIs(t, err, ErrDuplicate)

		a, err := tx.LockAccount(ctx, "10000001")
		require.NoError(t, err)
		assert.Equal(t, domain.AccountActive, a.Status)
		return nil
	}))
}

func TestMemory_ListTransactionsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, m.AppendTransaction(ctx, &domain.Transaction{
			UserID:    5,
			Amount:    decimal.NewFromInt(int64(i)),
			Reference: fmt.Sprintf("REF-%d", i),
		}))
	}
	require.NoError(t, m.AppendTransaction(ctx, &domain.Transaction{UserID: 6, Reference: "OTHER"}))

	page, total, err := m.ListTransactions(ctx, 5, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	require.Len(t, page, 10)
	assert.Equal(t, "REF-24", page[0].Reference)

	last, _, err := m.ListTransactions(ctx, 5, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last, 5)

	err = m.AppendTransaction(ctx, &domain.Transaction{UserID: 5, Reference: "REF-0"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemory_ListAccountTypesOnlyActive(t *testing.T) {
	m := NewMemory()
	m.PutAccountType(domain.AccountType{ID: 1, Name: "Standard", MinDeposit: decimal.NewFromInt(100), IsActive: true})
	m.PutAccountType(domain.AccountType{ID: 2, Name: "Micro", MinDeposit: decimal.NewFromInt(10), IsActive: true})
	m.PutAccountType(domain.AccountType{ID: 3, Name: "Legacy", IsActive: false})

	types, err := m.ListAccountTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Micro", types[0].Name)
}
