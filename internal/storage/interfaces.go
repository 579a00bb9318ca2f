// Package storage defines the persistent store for games and trading cards.
// Every write method takes a whole batch: the pipeline collects writes
// during a loop and flushes them in one call, with upsert-by-primary-key
// semantics so re-runs converge instead of duplicating.
package storage

import (
	"context"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
)

// GameStore provides access to the games table, keyed by appid.
type GameStore interface {
	// UpsertBulk creates or refreshes games by primary key. It only
	// touches the discovery-facing columns (name, url, price, owned);
	// cards and profit survive a re-crawl untouched.
	UpsertBulk(ctx context.Context, games []*model.Game) error

	// GetByAppID retrieves one game. Returns ErrNotFound if absent.
	GetByAppID(ctx context.Context, appID int64) (*model.Game, error)

	// ListByOwned retrieves all games with the given ownership flag,
	// ordered by appid.
	ListByOwned(ctx context.Context, owned bool) ([]*model.Game, error)

	// ListUnownedBelowProfit retrieves unowned games whose named profit
	// estimator is at or below threshold. Games without that estimator
	// are excluded.
	ListUnownedBelowProfit(ctx context.Context, estimator string, threshold int64) ([]*model.Game, error)

	// SetCards records completed discovery rounds: each game's ordered
	// card ID list, empty meaning "discovered, no cards".
	SetCards(ctx context.Context, cards map[int64][]string) error

	// SetProfit persists estimator maps for the given games.
	SetProfit(ctx context.Context, profits map[int64]map[string]int64) error

	// MarkOwned flips the given games to owned and clears their card
	// lists; an owned game's cards are no longer actionable.
	MarkOwned(ctx context.Context, appIDs []int64) error

	// UpdatePrices overwrites stored prices for the given games.
	UpdatePrices(ctx context.Context, prices map[int64]int64) error

	// DeleteBulk removes games by primary key. Missing keys are ignored.
	DeleteBulk(ctx context.Context, appIDs []int64) error
}

// CardStore provides access to the trading_cards table, keyed by the
// URL-encoded market item name, with a secondary lookup by appid.
type CardStore interface {
	// UpsertBulk creates or refreshes cards by primary key.
	UpsertBulk(ctx context.Context, cards []*model.TradingCard) error

	// GetByID retrieves one card. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*model.TradingCard, error)

	// ListAll retrieves every stored card, ordered by id.
	ListAll(ctx context.Context) ([]*model.TradingCard, error)

	// ListByAppID retrieves the cards of one game, ordered by id.
	ListByAppID(ctx context.Context, appID int64) ([]*model.TradingCard, error)

	// UpdatePrices overwrites stored prices for the given cards.
	UpdatePrices(ctx context.Context, prices map[string]int64) error

	// DeleteByAppIDs removes all cards belonging to the given games.
	DeleteByAppIDs(ctx context.Context, appIDs []int64) error
}
