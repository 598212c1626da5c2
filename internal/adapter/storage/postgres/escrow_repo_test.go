package postgres

import (
	"context"
	"testing"
	"time"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func escrowRow(payee uuid.UUID, balance, deposited, withdrawn int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"payee", "currency", "balance", "total_deposited", "total_withdrawn", "updated_at"}).
		AddRow(payee, domain.CurrencyNative, balance, deposited, withdrawn, time.Now().UTC())
}

func TestEscrowRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	payee := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM escrow_cells WHERE payee").
		WithArgs(payee, domain.CurrencyNative).
		WillReturnRows(escrowRow(payee, 1_940_000, 1_940_000, 0))

	cell, err := repo.Get(context.Background(), payee, domain.CurrencyNative)
	require.NoError(t, err)
	require.NotNil(t, cell)
	assert.Equal(t, int64(1_940_000), cell.Balance)
	assert.True(t, cell.ConservationHolds())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	payee := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM escrow_cells WHERE payee").
		WithArgs(payee, domain.Currency("DFL")).
		WillReturnRows(pgxmock.NewRows([]string{"payee", "currency", "balance", "total_deposited", "total_withdrawn", "updated_at"}))

	cell, err := repo.Get(context.Background(), payee, "DFL")
	require.NoError(t, err)
	assert.Nil(t, cell)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_Credit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	payee := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO escrow_cells").
		WithArgs(payee, domain.CurrencyNative, int64(60_000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Credit(context.Background(), tx, payee, domain.CurrencyNative, 60_000)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_Withdraw(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	payee := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE escrow_cells SET balance = 0").
		WithArgs(int64(1_940_000), payee, domain.CurrencyNative).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Withdraw(context.Background(), tx, payee, domain.CurrencyNative, 1_940_000)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_Withdraw_BalanceChanged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	payee := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE escrow_cells SET balance = 0").
		WithArgs(int64(100), payee, domain.CurrencyNative).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Withdraw(context.Background(), tx, payee, domain.CurrencyNative, 100)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_TotalsByCurrency(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(domain.CurrencyNative).
		WillReturnRows(pgxmock.NewRows([]string{"balance", "deposited", "withdrawn"}).
			AddRow(int64(60_000), int64(2_000_000), int64(1_940_000)))

	totals, err := repo.TotalsByCurrency(context.Background(), domain.CurrencyNative)
	require.NoError(t, err)
	assert.Equal(t, totals.Deposited, totals.Balance+totals.Withdrawn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
