package service

import (
	"context"
	"testing"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenLedgerHarness() (*TokenLedgerImpl, *fakeTokenRepo, uuid.UUID) {
	repo := newFakeTokenRepo()
	owner := uuid.New()
	return NewTokenLedger(repo, &fakeTransactor{}, owner, zerolog.Nop()), repo, owner
}

func TestRegisterCurrency(t *testing.T) {
	ledger, repo, owner := newTokenLedgerHarness()
	ctx := context.Background()

	require.NoError(t, ledger.RegisterCurrency(ctx, owner, "dfl", 100))

	cur, err := repo.GetCurrency(ctx, "DFL")
	require.NoError(t, err)
	require.NotNil(t, cur, "codes are normalized to upper case")
	assert.Equal(t, int64(100), cur.TransferFeeBps)

	err = ledger.RegisterCurrency(ctx, owner, "DFL", 0)
	requireAppCode(t, err, "VAL_001")
}

func TestRegisterCurrency_OwnerOnly(t *testing.T) {
	ledger, _, _ := newTokenLedgerHarness()
	err := ledger.RegisterCurrency(context.Background(), uuid.New(), "DFL", 0)
	requireAppCode(t, err, "MKT_002")
}

func TestRegisterCurrency_Validation(t *testing.T) {
	ledger, _, owner := newTokenLedgerHarness()
	ctx := context.Background()

	requireAppCode(t, ledger.RegisterCurrency(ctx, owner, "", 0), "VAL_001")
	requireAppCode(t, ledger.RegisterCurrency(ctx, owner, "native", 0), "VAL_001")
	requireAppCode(t, ledger.RegisterCurrency(ctx, owner, "DFL", domain.FeeDenominator), "VAL_001")
	requireAppCode(t, ledger.RegisterCurrency(ctx, owner, "DFL", -1), "VAL_001")
}

func TestTopup(t *testing.T) {
	ledger, repo, owner := newTokenLedgerHarness()
	ctx := context.Background()
	account := uuid.New()

	require.NoError(t, ledger.Topup(ctx, owner, account, domain.CurrencyNative, 1_000))
	bal, err := ledger.BalanceOf(ctx, account, domain.CurrencyNative)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), bal)

	requireAppCode(t, ledger.Topup(ctx, uuid.New(), account, domain.CurrencyNative, 1), "MKT_002")
	requireAppCode(t, ledger.Topup(ctx, owner, account, domain.CurrencyNative, 0), "VAL_001")
	requireAppCode(t, ledger.Topup(ctx, owner, account, "GHOST", 10), "MKT_005")

	require.NoError(t, repo.CreateCurrency(ctx, &domain.TokenCurrency{Code: "DFL"}))
	require.NoError(t, ledger.Topup(ctx, owner, account, "DFL", 50))
	bal, _ = ledger.BalanceOf(ctx, account, "DFL")
	assert.Equal(t, int64(50), bal)
}
