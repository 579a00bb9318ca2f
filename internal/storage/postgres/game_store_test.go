package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage"
)

func TestGameStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewGameStore(pool)

	games := []*model.Game{
		{AppID: 201820, Name: "Spiral Knights", StoreURL: "https://store.steampowered.com/app/201820", Price: 0},
		{AppID: 440, Name: "Team Fortress 2", StoreURL: "https://store.steampowered.com/app/440", Price: 0, Owned: true},
	}
	require.NoError(t, s.UpsertBulk(ctx, games))

	g, err := s.GetByAppID(ctx, 201820)
	require.NoError(t, err)
	assert.Equal(t, "Spiral Knights", g.Name)
	assert.False(t, g.Owned)
	assert.Nil(t, g.Cards, "fresh game must be undiscovered")
	assert.Nil(t, g.Profit)

	_, err = s.GetByAppID(ctx, 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGameStore_UpsertPreservesDiscoveryState(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewGameStore(pool)

	require.NoError(t, s.UpsertBulk(ctx, []*model.Game{{AppID: 10, Name: "Ten", Price: 500}}))
	require.NoError(t, s.SetCards(ctx, map[int64][]string{10: {"c1", "c2", "c3"}}))
	require.NoError(t, s.SetProfit(ctx, map[int64]map[string]int64{
		10: {model.EstimatorMeanWithFee: -154, model.EstimatorMedianWithFee: -154},
	}))

	// A later crawl sees the same game at a new price.
	require.NoError(t, s.UpsertBulk(ctx, []*model.Game{{AppID: 10, Name: "Ten", Price: 450}}))

	g, err := s.GetByAppID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(450), g.Price)
	assert.Equal(t, []string{"c1", "c2", "c3"}, g.Cards)
	assert.Equal(t, int64(-154), g.Profit[model.EstimatorMedianWithFee])
}

func TestGameStore_SetCardsEmptyList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewGameStore(pool)

	require.NoError(t, s.UpsertBulk(ctx, []*model.Game{{AppID: 1, Name: "One"}}))
	require.NoError(t, s.SetCards(ctx, map[int64][]string{1: nil}))

	g, err := s.GetByAppID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, g.Cards, "empty card list must round-trip as discovered")
	assert.Len(t, g.Cards, 0)
	assert.True(t, g.Discovered())
}

func TestGameStore_MarkOwned(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewGameStore(pool)

	require.NoError(t, s.UpsertBulk(ctx, []*model.Game{
		{AppID: 1, Name: "One"},
		{AppID: 2, Name: "Two"},
	}))
	require.NoError(t, s.SetCards(ctx, map[int64][]string{1: {"c1"}}))

	require.NoError(t, s.MarkOwned(ctx, []int64{1}))

	g, err := s.GetByAppID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, g.Owned)
	assert.Nil(t, g.Cards, "ownership must clear the card list")

	unowned, err := s.ListByOwned(ctx, false)
	require.NoError(t, err)
	require.Len(t, unowned, 1)
	assert.Equal(t, int64(2), unowned[0].AppID)
}

func TestGameStore_ListUnownedBelowProfit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewGameStore(pool)

	require.NoError(t, s.UpsertBulk(ctx, []*model.Game{
		{AppID: 1, Name: "Deep loss"},
		{AppID: 2, Name: "Small loss"},
		{AppID: 3, Name: "Unevaluated"},
		{AppID: 4, Name: "Owned loss", Owned: true},
	}))
	require.NoError(t, s.SetProfit(ctx, map[int64]map[string]int64{
		1: {model.EstimatorMedianWithFee: -15},
		2: {model.EstimatorMedianWithFee: -5},
		4: {model.EstimatorMedianWithFee: -100},
	}))

	losers, err := s.ListUnownedBelowProfit(ctx, model.EstimatorMedianWithFee, -10)
	require.NoError(t, err)
	require.Len(t, losers, 1)
	assert.Equal(t, int64(1), losers[0].AppID)
}

func TestGameStore_UpdatePricesAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewGameStore(pool)

	require.NoError(t, s.UpsertBulk(ctx, []*model.Game{
		{AppID: 1, Name: "One", Price: 100},
		{AppID: 2, Name: "Two", Price: 200},
	}))

	require.NoError(t, s.UpdatePrices(ctx, map[int64]int64{1: 120}))
	g, err := s.GetByAppID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(120), g.Price)

	require.NoError(t, s.DeleteBulk(ctx, []int64{1}))
	_, err = s.GetByAppID(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetByAppID(ctx, 2)
	assert.NoError(t, err)
}
