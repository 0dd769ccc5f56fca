package repository

import (
	"context"
	"testing"
	"time"

	"cardex/domain/entities"
	"cardex/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeRecordRepository_CreateAndHistory(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewExchangeRecordRepository(testDB.DB)
	ctx := context.Background()

	alice := testutil.InsertTestUser(t, testDB.DB, "alice", 100)
	bob := testutil.InsertTestUser(t, testDB.DB, "bob", 100)
	carol := testutil.InsertTestUser(t, testDB.DB, "carol", 100)

	// Three completed exchanges: alice->bob, bob->alice, bob->carol
	pairs := []struct {
		from, to *entities.User
	}{
		{alice, bob},
		{bob, alice},
		{bob, carol},
	}

	for i, p := range pairs {
		card := testutil.InsertTestCard(t, testDB.DB, p.from.ID, "card", 10)
		req := testutil.InsertTestExchangeRequest(t, testDB.DB, p.to.ID, card.ID, p.from.ID, int64(10+i), time.Hour)

		rec := &entities.ExchangeRecord{
			ExchangeRequestID: req.ID,
			CardID:            card.ID,
			FromUserID:        p.from.ID,
			ToUserID:          p.to.ID,
			CoinAmount:        int64(10 + i),
		}
		require.NoError(t, repo.Create(ctx, rec))
		assert.NotZero(t, rec.ID)
		assert.False(t, rec.CompletedAt.IsZero())
	}

	t.Run("history covers both directions", func(t *testing.T) {
		page, err := repo.GetHistoryPage(ctx, alice.ID, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.TotalCount)
		require.Len(t, page.Records, 2)

		directions := []entities.ExchangeDirection{
			page.Records[0].DirectionFor(alice.ID),
			page.Records[1].DirectionFor(alice.ID),
		}
		assert.Contains(t, directions, entities.ExchangeDirectionSent)
		assert.Contains(t, directions, entities.ExchangeDirectionReceived)
	})

	t.Run("pagination window", func(t *testing.T) {
		page, err := repo.GetHistoryPage(ctx, bob.ID, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalCount)
		assert.Len(t, page.Records, 2)

		page, err = repo.GetHistoryPage(ctx, bob.ID, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalCount)
		assert.Len(t, page.Records, 1)
	})

	t.Run("offset past the end still reports the total", func(t *testing.T) {
		page, err := repo.GetHistoryPage(ctx, bob.ID, 20, 100)
		require.NoError(t, err)
		assert.Empty(t, page.Records)
		assert.Equal(t, int64(3), page.TotalCount)
	})

	t.Run("uninvolved user has empty history", func(t *testing.T) {
		dave := testutil.InsertTestUser(t, testDB.DB, "dave", 100)
		page, err := repo.GetHistoryPage(ctx, dave.ID, 20, 0)
		require.NoError(t, err)
		assert.Empty(t, page.Records)
		assert.Zero(t, page.TotalCount)
	})

	t.Run("duplicate record per request rejected", func(t *testing.T) {
		page, err := repo.GetHistoryPage(ctx, alice.ID, 1, 0)
		require.NoError(t, err)
		require.NotEmpty(t, page.Records)
		existing := page.Records[0]

		err = repo.Create(ctx, &entities.ExchangeRecord{
			ExchangeRequestID: existing.ExchangeRequestID,
			CardID:            existing.CardID,
			FromUserID:        existing.FromUserID,
			ToUserID:          existing.ToUserID,
			CoinAmount:        existing.CoinAmount,
		})
		assert.Error(t, err)
	})
}
