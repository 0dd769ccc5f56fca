package repository

import (
	"context"
	"testing"

	"cardex/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardRepository_GetByID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewCardRepository(testDB.DB)
	ctx := context.Background()

	owner := testutil.InsertTestUser(t, testDB.DB, "owner", 100)

	t.Run("not found", func(t *testing.T) {
		card, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, card)
	})

	t.Run("found", func(t *testing.T) {
		created := testutil.InsertTestCard(t, testDB.DB, owner.ID, "shiny", 10)

		card, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, card)
		assert.Equal(t, "shiny", card.Title)
		assert.Equal(t, int64(10), card.BasePrice)
		assert.Equal(t, owner.ID, card.OwnerID)
	})

	t.Run("deleted card is invisible", func(t *testing.T) {
		created := testutil.InsertTestCard(t, testDB.DB, owner.ID, "gone", 10)
		_, err := testDB.DB.Exec(ctx, `UPDATE cards SET is_deleted = TRUE WHERE id = $1`, created.ID)
		require.NoError(t, err)

		card, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, card)
	})
}

func TestCardRepository_IncrementExchangeCount(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewCardRepository(testDB.DB)
	ctx := context.Background()

	owner := testutil.InsertTestUser(t, testDB.DB, "owner", 100)
	card := testutil.InsertTestCard(t, testDB.DB, owner.ID, "traded", 10)

	require.NoError(t, repo.IncrementExchangeCount(ctx, card.ID))

	got, err := repo.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ExchangeCount)

	assert.Error(t, repo.IncrementExchangeCount(ctx, 999999))
}

func TestCollectionRepository_GrantAndHasCollected(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewCollectionRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.InsertTestUser(t, testDB.DB, "collector", 100)
	owner := testutil.InsertTestUser(t, testDB.DB, "owner", 100)
	card := testutil.InsertTestCard(t, testDB.DB, owner.ID, "collectible", 10)

	has, err := repo.HasCollected(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.Grant(ctx, user.ID, card.ID))

	has, err = repo.HasCollected(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.True(t, has)

	// Granting again is a no-op, not an error
	require.NoError(t, repo.Grant(ctx, user.ID, card.ID))

	var count int
	err = testDB.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM card_collections WHERE user_id = $1 AND card_id = $2
	`, user.ID, card.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
