// Package discovery finds which trading cards a game drops and gives each
// an initial market price, as one unit of work per game.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alekxeyuk/steam-cards-profit/internal/cache"
	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/retry"
	"github.com/alekxeyuk/steam-cards-profit/internal/steam"
)

// MarketAPI is the slice of the marketplace client discovery needs.
type MarketAPI interface {
	CardNames(ctx context.Context, appID int64) ([]string, error)
	MultiBuyPrices(ctx context.Context, names []string) ([]int64, error)
}

// Discovery orchestrates per-game card discovery and initial pricing.
type Discovery struct {
	market        MarketAPI
	quoteAttempts int
	quoteDelay    time.Duration

	cache    *cache.Cache
	cacheTTL time.Duration
}

// New creates a Discovery. Quote retries cover transient marketplace
// throttling on the bulk price endpoint only.
func New(market MarketAPI, quoteAttempts int, quoteDelay time.Duration) *Discovery {
	return &Discovery{
		market:        market,
		quoteAttempts: quoteAttempts,
		quoteDelay:    quoteDelay,
	}
}

// WithCache makes card-list lookups go through a file cache. Drop lists
// are fixed at release, so a generous ttl is safe.
func (d *Discovery) WithCache(c *cache.Cache, ttl time.Duration) *Discovery {
	d.cache = c
	d.cacheTTL = ttl
	return d
}

// DiscoverAndPrice resolves the game's card list and prices every card.
// A game without cards yields (nil, nil). Any failure yields an error and
// no cards at all: callers skip the game for this run rather than persist
// a partial result.
func (d *Discovery) DiscoverAndPrice(ctx context.Context, game *model.Game) ([]model.TradingCard, error) {
	names, err := d.cardNames(ctx, game.AppID)
	if err != nil {
		return nil, fmt.Errorf("card names for %d: %w", game.AppID, err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	// Market item names carry the appid prefix; prices come back in
	// request order, so the pairing is positional end-to-end.
	items := make([]string, len(names))
	for i, name := range names {
		items[i] = fmt.Sprintf("%d-%s", game.AppID, name)
	}

	prices, err := d.priceAll(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("pricing cards for %d: %w", game.AppID, err)
	}

	cards := make([]model.TradingCard, len(items))
	for i, item := range items {
		cards[i] = model.TradingCard{
			ID:    url.QueryEscape(item),
			Name:  item,
			Price: prices[i],
			AppID: game.AppID,
		}
	}
	return cards, nil
}

// cardNames resolves the drop list, consulting the cache first when one is
// configured. Cache write failures are swallowed: a cold cache next run
// costs one extra page fetch.
func (d *Discovery) cardNames(ctx context.Context, appID int64) ([]string, error) {
	key := cache.CardNamesKey(appID)

	if d.cache != nil {
		var cached []string
		if hit, err := d.cache.Get(key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	names, err := d.market.CardNames(ctx, appID)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		_ = d.cache.Put(key, names, d.cacheTTL)
	}
	return names, nil
}

// priceAll quotes all items in request order, chunked at the endpoint's
// batch limit.
func (d *Discovery) priceAll(ctx context.Context, items []string) ([]int64, error) {
	prices := make([]int64, 0, len(items))

	for start := 0; start < len(items); start += steam.MaxQuoteItems {
		end := start + steam.MaxQuoteItems
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		var chunkPrices []int64
		err := retry.Do(d.quoteAttempts, d.quoteDelay, func() error {
			var quoteErr error
			chunkPrices, quoteErr = d.market.MultiBuyPrices(ctx, chunk)
			return quoteErr
		})
		if err != nil {
			return nil, err
		}
		if len(chunkPrices) != len(chunk) {
			return nil, fmt.Errorf("quote returned %d prices for %d items", len(chunkPrices), len(chunk))
		}

		prices = append(prices, chunkPrices...)
	}

	return prices, nil
}
