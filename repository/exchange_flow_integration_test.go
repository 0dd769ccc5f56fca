package repository

import (
	"context"
	"testing"
	"time"

	"cardex/application"
	"cardex/domain/apperror"
	"cardex/domain/entities"
	"cardex/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end exchange flow through the application layer against a real
// database: escrow, settlement, refunds and the conservation invariant.
func TestExchangeFlow_Integration(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	factory := NewTestUnitOfWorkFactory(testDB.DB)
	app := application.NewExchangeApp(factory, 100, 72*time.Hour)

	requester, err := app.CreateUser(ctx, "requester")
	require.NoError(t, err)
	assert.Equal(t, int64(100), requester.CoinBalance)

	owner, err := app.CreateUser(ctx, "owner")
	require.NoError(t, err)

	card := testutil.InsertTestCard(t, testDB.DB, owner.ID, "vintage", 10)
	_, err = testDB.DB.Exec(ctx, `UPDATE cards SET like_count = 25 WHERE id = $1`, card.ID)
	require.NoError(t, err)

	t.Run("create escrows the live price", func(t *testing.T) {
		price, err := app.CalculateExchangePrice(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(12), price.FinalPrice)

		req, err := app.CreateExchangeRequest(ctx, requester.ID, card.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(12), req.CoinAmount)

		balance, err := app.GetBalance(ctx, requester.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(88), balance)

		// Duplicate pending request for the same card is refused
		_, err = app.CreateExchangeRequest(ctx, requester.ID, card.ID)
		assert.True(t, apperror.IsConflict(err))

		t.Run("accept settles escrow to the owner", func(t *testing.T) {
			result, err := app.AcceptExchange(ctx, req.ID, owner.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(88), result.RequesterNewBalance)
			assert.Equal(t, int64(112), result.OwnerNewBalance)

			// Conservation: total coins unchanged
			var total int64
			require.NoError(t, testDB.DB.QueryRow(ctx, `SELECT SUM(coin_balance) FROM users`).Scan(&total))
			assert.Equal(t, int64(200), total)

			// Requester now holds the card; history shows the exchange
			history, err := app.GetExchangeHistory(ctx, requester.ID, 1)
			require.NoError(t, err)
			require.Len(t, history.Records, 1)
			assert.Equal(t, entities.ExchangeDirectionReceived, history.Records[0].DirectionFor(requester.ID))

			// Exactly two ledger entries reference the request
			txs := NewCoinTransactionRepository(testDB.DB)
			entries, err := txs.GetByExchange(ctx, req.ID)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, int64(-12), entries[0].Amount)
			assert.Equal(t, int64(12), entries[1].Amount)

			// Terminal state is immutable
			_, err = app.AcceptExchange(ctx, req.ID, owner.ID)
			assert.True(t, apperror.IsInvalidState(err))
		})
	})

	t.Run("cancel refunds the escrow", func(t *testing.T) {
		card2 := testutil.InsertTestCard(t, testDB.DB, owner.ID, "second", 10)

		req, err := app.CreateExchangeRequest(ctx, requester.ID, card2.ID)
		require.NoError(t, err)

		before, err := app.GetBalance(ctx, requester.ID)
		require.NoError(t, err)

		require.NoError(t, app.CancelExchange(ctx, req.ID, requester.ID))

		after, err := app.GetBalance(ctx, requester.ID)
		require.NoError(t, err)
		assert.Equal(t, before+req.CoinAmount, after)
	})

	t.Run("sweep expires overdue requests and refunds", func(t *testing.T) {
		card3 := testutil.InsertTestCard(t, testDB.DB, owner.ID, "third", 10)
		overdue := testutil.InsertTestExchangeRequest(t, testDB.DB, requester.ID, card3.ID, owner.ID, 7, -time.Minute)

		before, err := app.GetBalance(ctx, requester.ID)
		require.NoError(t, err)

		result, err := app.RunExpirationSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.TotalFound)
		assert.Equal(t, 1, result.ProcessedCount)
		assert.Equal(t, 0, result.FailedCount)
		assert.Equal(t, int64(7), result.TotalRefundedAmount)

		after, err := app.GetBalance(ctx, requester.ID)
		require.NoError(t, err)
		assert.Equal(t, before+7, after)

		reqRepo := NewExchangeRequestRepository(testDB.DB)
		got, err := reqRepo.GetByID(ctx, overdue.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.ExchangeStatusExpired, got.Status)

		// Nothing left to sweep
		result, err = app.RunExpirationSweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.TotalFound)
	})
}
