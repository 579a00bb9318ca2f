// Package memory implements the storage interfaces in process memory,
// backing tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage"
)

// GameStore is an in-memory implementation of storage.GameStore.
type GameStore struct {
	mu   sync.RWMutex
	data map[int64]*model.Game
}

// NewGameStore creates a new in-memory game store.
func NewGameStore() *GameStore {
	return &GameStore{data: make(map[int64]*model.Game)}
}

// Compile-time interface check.
var _ storage.GameStore = (*GameStore)(nil)

// UpsertBulk creates or refreshes games by primary key, preserving any
// existing cards and profit state.
func (s *GameStore) UpsertBulk(_ context.Context, games []*model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range games {
		if g == nil {
			return storage.ErrInvalidInput
		}

		next := copyGame(g)
		if prev, exists := s.data[g.AppID]; exists {
			next.Cards = prev.Cards
			next.Profit = prev.Profit
		} else {
			next.Cards = nil
			next.Profit = nil
		}
		s.data[g.AppID] = next
	}
	return nil
}

// GetByAppID retrieves one game. Returns ErrNotFound if absent.
func (s *GameStore) GetByAppID(_ context.Context, appID int64) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.data[appID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyGame(g), nil
}

// ListByOwned retrieves all games with the given ownership flag.
func (s *GameStore) ListByOwned(_ context.Context, owned bool) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Game
	for _, g := range s.data {
		if g.Owned == owned {
			result = append(result, copyGame(g))
		}
	}
	sortGames(result)
	return result, nil
}

// ListUnownedBelowProfit retrieves unowned games whose named estimator is
// at or below threshold.
func (s *GameStore) ListUnownedBelowProfit(_ context.Context, estimator string, threshold int64) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Game
	for _, g := range s.data {
		if g.Owned || g.Profit == nil {
			continue
		}
		if value, ok := g.Profit[estimator]; ok && value <= threshold {
			result = append(result, copyGame(g))
		}
	}
	sortGames(result)
	return result, nil
}

// SetCards records completed discovery rounds.
func (s *GameStore) SetCards(_ context.Context, cards map[int64][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for appID, ids := range cards {
		g, exists := s.data[appID]
		if !exists {
			continue
		}
		if ids == nil {
			ids = []string{}
		}
		g.Cards = append([]string(nil), ids...)
		if len(g.Cards) == 0 {
			g.Cards = []string{}
		}
	}
	return nil
}

// SetProfit persists estimator maps for the given games.
func (s *GameStore) SetProfit(_ context.Context, profits map[int64]map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for appID, estimates := range profits {
		g, exists := s.data[appID]
		if !exists {
			continue
		}
		g.Profit = copyProfit(estimates)
	}
	return nil
}

// MarkOwned flips games to owned and drops their card lists.
func (s *GameStore) MarkOwned(_ context.Context, appIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, appID := range appIDs {
		if g, exists := s.data[appID]; exists {
			g.Owned = true
			g.Cards = nil
		}
	}
	return nil
}

// UpdatePrices overwrites stored prices for the given games.
func (s *GameStore) UpdatePrices(_ context.Context, prices map[int64]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for appID, price := range prices {
		if g, exists := s.data[appID]; exists {
			g.Price = price
		}
	}
	return nil
}

// DeleteBulk removes games by primary key.
func (s *GameStore) DeleteBulk(_ context.Context, appIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, appID := range appIDs {
		delete(s.data, appID)
	}
	return nil
}

func copyGame(g *model.Game) *model.Game {
	gameCopy := *g
	if g.Cards != nil {
		gameCopy.Cards = append([]string(nil), g.Cards...)
		if len(gameCopy.Cards) == 0 {
			gameCopy.Cards = []string{}
		}
	}
	gameCopy.Profit = copyProfit(g.Profit)
	return &gameCopy
}

func copyProfit(profit map[string]int64) map[string]int64 {
	if profit == nil {
		return nil
	}
	out := make(map[string]int64, len(profit))
	for k, v := range profit {
		out[k] = v
	}
	return out
}

func sortGames(games []*model.Game) {
	sort.Slice(games, func(i, j int) bool {
		return games[i].AppID < games[j].AppID
	})
}
