package integration

import (
	"context"
	"testing"
	"time"

	"marketplace-engine/internal/adapter/storage/postgres"
	redisStorage "marketplace-engine/internal/adapter/storage/redis"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/internal/service"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A mint rejected by a gate must leave no partial state behind. The mock
// driver observes the transaction lifecycle directly: begin, the locked
// listing read, then a rollback with no writes in between.
func TestMintRollsBackOnFailedGate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.New("error", false)
	transactor := postgres.NewTransactor(mock)
	listingRepo := postgres.NewListingRepo(mock)
	tokenRepo := newInMemoryTokenRepo()
	_, depositor := service.NewEscrowService(newInMemoryEscrowRepo(), tokenRepo, transactor, log)
	marketSvc := service.NewMarketService(
		listingRepo, newInMemoryPriceRepo(), tokenRepo, newInMemoryReceiptRepo(),
		newInMemoryIdempotencyRepo(), redisStorage.NewIdempotencyCache(rdb),
		redisStorage.NewMintGuard(rdb), depositor,
		service.NewHoldingLedger(newInMemoryHoldingRepo(), listingRepo),
		transactor, uuid.New(), 300, log,
	)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM listings WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "vendor", "config", "supply", "mint_limit",
			"allow_root", "royalty", "uri", "created_at", "updated_at",
		}).AddRow(
			int64(7), uuid.New(), domain.FlagFree|domain.FlagPaused, int64(0), int64(0),
			"", int64(0), "", now, now,
		))
	mock.ExpectRollback()

	_, err = marketSvc.Mint(context.Background(), ports.MintRequest{
		Minter:      uuid.New(),
		ListingID:   7,
		Quantity:    1,
		Currency:    domain.CurrencyNative,
		ReferenceID: "ref-1",
	})
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok, "expected *apperror.AppError, got %T: %v", err, err)
	assert.Equal(t, "MKT_003", appErr.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}
