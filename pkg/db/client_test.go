package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
)

type ledgerRow struct {
	ID   int
	Memo string
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))
	client := FromConn(conn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func countRows(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Memo: "kept"}).Error
	}))
	assert.EqualValues(t, 1, countRows(t, client))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerRow{Memo: "dropped"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	assert.EqualValues(t, 1, countRows(t, client))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := newTestClient(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&ledgerRow{Memo: "half"})
			panic("mid-transaction")
		})
	})
	assert.EqualValues(t, 0, countRows(t, client))
}

func TestWithTxReplaysSerializationFailures(t *testing.T) {
	client := newTestClient(t)
	calls := 0

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgSerializationFailure}
		}
		return tx.Create(&ledgerRow{Memo: "third time"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.EqualValues(t, 1, countRows(t, client))
}

func TestWithTxGivesUpAfterAttempts(t *testing.T) {
	client := newTestClient(t)
	client.txAttempts = 2
	calls := 0

	err := client.WithTx(context.Background(), func(*gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: pgDeadlockDetected}
	})
	require.Error(t, err)
	assert.True(t, IsTransientTxError(err))
	assert.Equal(t, 2, calls)
}

func TestWithTxDoesNotReplayOtherErrors(t *testing.T) {
	client := newTestClient(t)
	calls := 0

	err := client.WithTx(context.Background(), func(*gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: pgUniqueViolation}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{DSN: "x", Driver: "mysql"}, nil)
	require.Error(t, err)

	_, err = New(context.Background(), config.DBConfig{Driver: DriverSQLite}, nil)
	require.Error(t, err)
}

func TestNewOpensSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:       "file:db_new_test?mode=memory&cache=shared",
		Driver:    DriverSQLite,
		TxRetries: 5,
	}, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, 5, client.txAttempts)
}
