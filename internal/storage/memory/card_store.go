package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage"
)

// CardStore is an in-memory implementation of storage.CardStore.
type CardStore struct {
	mu   sync.RWMutex
	data map[string]*model.TradingCard
}

// NewCardStore creates a new in-memory card store.
func NewCardStore() *CardStore {
	return &CardStore{data: make(map[string]*model.TradingCard)}
}

// Compile-time interface check.
var _ storage.CardStore = (*CardStore)(nil)

// UpsertBulk creates or refreshes cards by primary key.
func (s *CardStore) UpsertBulk(_ context.Context, cards []*model.TradingCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cards {
		if c == nil || c.ID == "" {
			return storage.ErrInvalidInput
		}
		cardCopy := *c
		s.data[c.ID] = &cardCopy
	}
	return nil
}

// GetByID retrieves one card. Returns ErrNotFound if absent.
func (s *CardStore) GetByID(_ context.Context, id string) (*model.TradingCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cardCopy := *c
	return &cardCopy, nil
}

// ListAll retrieves every stored card.
func (s *CardStore) ListAll(_ context.Context) ([]*model.TradingCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.TradingCard, 0, len(s.data))
	for _, c := range s.data {
		cardCopy := *c
		result = append(result, &cardCopy)
	}
	sortCards(result)
	return result, nil
}

// ListByAppID retrieves the cards of one game.
func (s *CardStore) ListByAppID(_ context.Context, appID int64) ([]*model.TradingCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.TradingCard
	for _, c := range s.data {
		if c.AppID == appID {
			cardCopy := *c
			result = append(result, &cardCopy)
		}
	}
	sortCards(result)
	return result, nil
}

// UpdatePrices overwrites stored prices for the given cards.
func (s *CardStore) UpdatePrices(_ context.Context, prices map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, price := range prices {
		if c, exists := s.data[id]; exists {
			c.Price = price
		}
	}
	return nil
}

// DeleteByAppIDs removes all cards belonging to the given games.
func (s *CardStore) DeleteByAppIDs(_ context.Context, appIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[int64]struct{}, len(appIDs))
	for _, id := range appIDs {
		doomed[id] = struct{}{}
	}

	for id, c := range s.data {
		if _, gone := doomed[c.AppID]; gone {
			delete(s.data, id)
		}
	}
	return nil
}

func sortCards(cards []*model.TradingCard) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].ID < cards[j].ID
	})
}
