package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage"
)

func TestGameStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewGameStore()

	games := []*model.Game{
		{AppID: 10, Name: "Ten", Price: 100},
		{AppID: 20, Name: "Twenty", Price: 200},
	}
	if err := s.UpsertBulk(ctx, games); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := s.UpsertBulk(ctx, games); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	stored, err := s.ListByOwned(ctx, false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 games after double upsert, got %d", len(stored))
	}
	if stored[0].AppID != 10 || stored[1].AppID != 20 {
		t.Errorf("unexpected ordering: %v, %v", stored[0].AppID, stored[1].AppID)
	}
}

func TestGameStore_UpsertPreservesCardsAndProfit(t *testing.T) {
	ctx := context.Background()
	s := NewGameStore()

	if err := s.UpsertBulk(ctx, []*model.Game{{AppID: 10, Name: "Ten", Price: 100}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.SetCards(ctx, map[int64][]string{10: {"c1", "c2"}}); err != nil {
		t.Fatalf("set cards failed: %v", err)
	}
	if err := s.SetProfit(ctx, map[int64]map[string]int64{10: {model.EstimatorMedianWithFee: -15}}); err != nil {
		t.Fatalf("set profit failed: %v", err)
	}

	// Re-crawl with a fresh record: cards and profit must survive.
	if err := s.UpsertBulk(ctx, []*model.Game{{AppID: 10, Name: "Ten", Price: 90}}); err != nil {
		t.Fatalf("re-upsert failed: %v", err)
	}

	g, err := s.GetByAppID(ctx, 10)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if g.Price != 90 {
		t.Errorf("expected refreshed price 90, got %d", g.Price)
	}
	if len(g.Cards) != 2 {
		t.Errorf("expected cards to survive re-upsert, got %v", g.Cards)
	}
	if g.Profit[model.EstimatorMedianWithFee] != -15 {
		t.Errorf("expected profit to survive re-upsert, got %v", g.Profit)
	}
}

func TestGameStore_SetCardsEmptyMeansDiscovered(t *testing.T) {
	ctx := context.Background()
	s := NewGameStore()

	if err := s.UpsertBulk(ctx, []*model.Game{{AppID: 1, Name: "One"}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	g, _ := s.GetByAppID(ctx, 1)
	if g.Discovered() {
		t.Fatal("fresh game must not count as discovered")
	}

	if err := s.SetCards(ctx, map[int64][]string{1: {}}); err != nil {
		t.Fatalf("set cards failed: %v", err)
	}
	g, _ = s.GetByAppID(ctx, 1)
	if !g.Discovered() {
		t.Error("empty card list must count as discovered")
	}
}

func TestGameStore_MarkOwnedClearsCards(t *testing.T) {
	ctx := context.Background()
	s := NewGameStore()

	if err := s.UpsertBulk(ctx, []*model.Game{{AppID: 5, Name: "Five"}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.SetCards(ctx, map[int64][]string{5: {"c1"}}); err != nil {
		t.Fatalf("set cards failed: %v", err)
	}
	if err := s.MarkOwned(ctx, []int64{5}); err != nil {
		t.Fatalf("mark owned failed: %v", err)
	}

	g, err := s.GetByAppID(ctx, 5)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !g.Owned {
		t.Error("expected game to be owned")
	}
	if g.Cards != nil {
		t.Errorf("expected cards cleared, got %v", g.Cards)
	}
}

func TestGameStore_ListUnownedBelowProfit(t *testing.T) {
	ctx := context.Background()
	s := NewGameStore()

	if err := s.UpsertBulk(ctx, []*model.Game{
		{AppID: 1, Name: "Deep loss"},
		{AppID: 2, Name: "Small loss"},
		{AppID: 3, Name: "Unevaluated"},
		{AppID: 4, Name: "Owned loss", Owned: true},
	}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.SetProfit(ctx, map[int64]map[string]int64{
		1: {model.EstimatorMedianWithFee: -15},
		2: {model.EstimatorMedianWithFee: -5},
		4: {model.EstimatorMedianWithFee: -100},
	}); err != nil {
		t.Fatalf("set profit failed: %v", err)
	}

	losers, err := s.ListUnownedBelowProfit(ctx, model.EstimatorMedianWithFee, -10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(losers) != 1 || losers[0].AppID != 1 {
		t.Errorf("expected only game 1, got %v", losers)
	}
}

func TestGameStore_GetMissing(t *testing.T) {
	s := NewGameStore()
	if _, err := s.GetByAppID(context.Background(), 404); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCardStore_UpsertAndLookups(t *testing.T) {
	ctx := context.Background()
	s := NewCardStore()

	cards := []*model.TradingCard{
		{ID: "a", Name: "10-A", Price: model.UnpricedSentinel, AppID: 10},
		{ID: "b", Name: "10-B", Price: model.UnpricedSentinel, AppID: 10},
		{ID: "c", Name: "20-C", Price: 300, AppID: 20},
	}
	if err := s.UpsertBulk(ctx, cards); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	forTen, err := s.ListByAppID(ctx, 10)
	if err != nil {
		t.Fatalf("list by appid failed: %v", err)
	}
	if len(forTen) != 2 {
		t.Errorf("expected 2 cards for app 10, got %d", len(forTen))
	}

	if err := s.UpdatePrices(ctx, map[string]int64{"a": 150}); err != nil {
		t.Fatalf("update prices failed: %v", err)
	}
	a, err := s.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if a.Price != 150 || !a.Priced() {
		t.Errorf("expected priced card at 150, got %+v", a)
	}
}

func TestCardStore_DeleteByAppIDs(t *testing.T) {
	ctx := context.Background()
	s := NewCardStore()

	if err := s.UpsertBulk(ctx, []*model.TradingCard{
		{ID: "a", Name: "10-A", AppID: 10},
		{ID: "b", Name: "20-B", AppID: 20},
		{ID: "c", Name: "30-C", AppID: 30},
	}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := s.DeleteByAppIDs(ctx, []int64{10, 30}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	remaining, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "b" {
		t.Errorf("expected only card b to remain, got %v", remaining)
	}
}
