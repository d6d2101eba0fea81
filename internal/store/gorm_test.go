package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading_ledger/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(gdb), mock
}

func TestGormStore_GetAccountNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM `trading_accounts` WHERE account_id = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id"}))

	_, err := s.GetAccount(context.Background(), "12345678")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AtomicLocksWalletBeforeAccount(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `wallets`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM `wallets` WHERE user_id = (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}).
			AddRow(1, 7, "100.00000000", now, now))
	mock.ExpectQuery("SELECT (.+) FROM `trading_accounts` WHERE account_id = (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "account_id", "balance", "credit", "leverage", "exposure_limit", "status"}).
			AddRow(3, 7, "12345678", "50.00000000", "0", 100, "1000", "Active"))
	mock.ExpectExec("UPDATE `wallets` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `trading_accounts` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Atomic(context.Background(), func(tx Tx) error {
		w, err := tx.GetOrCreateWallet(context.Background(), 7)
		if err != nil {
			return err
		}
		a, err := tx.LockAccount(context.Background(), "12345678")
		if err != nil {
			return err
		}
		assert.True(t, w.Balance.Equal(decimal.NewFromInt(100)))
		assert.True(t, a.Balance.Equal(decimal.NewFromInt(50)))

		w.Balance = w.Balance.Sub(decimal.NewFromInt(40))
		a.Balance = a.Balance.Add(decimal.NewFromInt(40))
		if err := tx.SaveWallet(context.Background(), w); err != nil {
			return err
		}
		return tx.SaveAccount(context.Background(), a)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AtomicRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `trading_accounts` WHERE account_id = (.+) FOR UPDATE").
		WillReturnError(&gomysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	err := s.Atomic(context.Background(), func(tx Tx) error {
		_, err := tx.LockAccount(context.Background(), "12345678")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SaveWalletVanished(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Atomic(context.Background(), func(tx Tx) error {
		return tx.SaveWallet(context.Background(), &domain.Wallet{ID: 9, UserID: 1})
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, domain.ErrNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrDuplicate},
		{"mysql duplicate", &gomysql.MySQLError{Number: 1062}, ErrDuplicate},
		{"mysql lock timeout", &gomysql.MySQLError{Number: 1205}, domain.ErrConflict},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"postgres serialization", &pgconn.PgError{Code: "40001"}, domain.ErrConflict},
		{"postgres deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.in), tt.want)
		})
	}

	other := errors.New("connection refused")
	assert.Equal(t, other, translateError(other))
	assert.Nil(t, translateError(nil))
}
