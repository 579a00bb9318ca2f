// Package orchestrator sequences the pipeline operations: crawl the search
// listings, track ownership, keep card and game prices fresh, estimate
// profit, and prune hopeless games. Operations buffer their writes and
// flush once at the end so a mid-run failure leaves the store untouched.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/alekxeyuk/steam-cards-profit/internal/cache"
	"github.com/alekxeyuk/steam-cards-profit/internal/discovery"
	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/profit"
	"github.com/alekxeyuk/steam-cards-profit/internal/retry"
	"github.com/alekxeyuk/steam-cards-profit/internal/steam"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage"
)

// Market is the full marketplace surface the pipeline consumes.
type Market interface {
	OwnedAppIDs(ctx context.Context) (map[int64]struct{}, error)
	SearchPage(ctx context.Context, start, count int) ([]steam.Listing, error)
	CardNames(ctx context.Context, appID int64) ([]string, error)
	MultiBuyPrices(ctx context.Context, names []string) ([]int64, error)
	AppPrices(ctx context.Context, appIDs []int64) (map[int64]int64, error)
}

// Config tunes one Orchestrator.
type Config struct {
	SearchPages      int
	PageSize         int
	QuoteAttempts    int
	QuoteDelay       time.Duration
	CleanupThreshold int64

	// CardCache, when set, caches card drop lists between runs.
	CardCache    *cache.Cache
	CardCacheTTL time.Duration
}

// Orchestrator runs the pipeline operations against one market client and
// one store pair.
type Orchestrator struct {
	market Market
	games  storage.GameStore
	cards  storage.CardStore
	disc   *discovery.Discovery
	cfg    Config

	ownedOnce sync.Once
	owned     map[int64]struct{}
	ownedErr  error
}

// New creates an Orchestrator.
func New(market Market, games storage.GameStore, cards storage.CardStore, cfg Config) *Orchestrator {
	disc := discovery.New(market, cfg.QuoteAttempts, cfg.QuoteDelay)
	if cfg.CardCache != nil {
		disc = disc.WithCache(cfg.CardCache, cfg.CardCacheTTL)
	}

	return &Orchestrator{
		market: market,
		games:  games,
		cards:  cards,
		disc:   disc,
		cfg:    cfg,
	}
}

// ownedSnapshot fetches the ownership set once per run. A failure here is
// fatal for the calling operation: ownership gates every other decision,
// and a stale or empty set would mark everything buyable.
func (o *Orchestrator) ownedSnapshot(ctx context.Context) (map[int64]struct{}, error) {
	o.ownedOnce.Do(func() {
		o.owned, o.ownedErr = o.market.OwnedAppIDs(ctx)
	})
	if o.ownedErr != nil {
		return nil, fmt.Errorf("ownership snapshot: %w", o.ownedErr)
	}
	return o.owned, nil
}

// Discover crawls the configured number of search pages and upserts every
// listed game. A failed page is logged and skipped; the pages that did load
// are still persisted. Cards and profit of already-known games survive the
// upsert untouched.
func (o *Orchestrator) Discover(ctx context.Context) error {
	owned, err := o.ownedSnapshot(ctx)
	if err != nil {
		return err
	}

	var buffered []*model.Game
	failedPages := 0

	for page := 0; page < o.cfg.SearchPages; page++ {
		start := page * o.cfg.PageSize

		listings, err := o.market.SearchPage(ctx, start, o.cfg.PageSize)
		if err != nil {
			failedPages++
			log.WithFields(log.Fields{
				"page":  page,
				"start": start,
				"error": err,
			}).Warn("Search page failed, skipping")
			continue
		}

		for _, l := range listings {
			_, isOwned := owned[l.AppID]
			buffered = append(buffered, &model.Game{
				AppID:    l.AppID,
				Name:     l.Name,
				StoreURL: l.StoreURL,
				Price:    l.Price,
				Owned:    isOwned,
			})
		}
	}

	if err := o.games.UpsertBulk(ctx, buffered); err != nil {
		return fmt.Errorf("persist discovered games: %w", err)
	}

	log.WithFields(log.Fields{
		"games":       len(buffered),
		"pages":       o.cfg.SearchPages,
		"failedPages": failedPages,
	}).Info("Discovery crawl complete")
	return nil
}

// RefreshOwnership reconciles stored ownership flags against the live
// snapshot. Newly owned games lose their card lists and their cards are
// deleted: an owned game is out of the market and its card state is dead
// weight.
func (o *Orchestrator) RefreshOwnership(ctx context.Context) error {
	owned, err := o.ownedSnapshot(ctx)
	if err != nil {
		return err
	}

	unowned, err := o.games.ListByOwned(ctx, false)
	if err != nil {
		return fmt.Errorf("list unowned games: %w", err)
	}

	var newlyOwned []int64
	for _, g := range unowned {
		if _, isOwned := owned[g.AppID]; isOwned {
			newlyOwned = append(newlyOwned, g.AppID)
		}
	}

	if len(newlyOwned) == 0 {
		log.Info("Ownership refresh: no changes")
		return nil
	}

	if err := o.games.MarkOwned(ctx, newlyOwned); err != nil {
		return fmt.Errorf("mark games owned: %w", err)
	}
	if err := o.cards.DeleteByAppIDs(ctx, newlyOwned); err != nil {
		return fmt.Errorf("drop cards of owned games: %w", err)
	}

	log.WithFields(log.Fields{
		"newlyOwned": len(newlyOwned),
	}).Info("Ownership refresh complete")
	return nil
}

// RefreshPrices runs the three pricing passes in order: card discovery for
// games that have never been inspected, a bulk reprice of every known card,
// and a store price refresh for all unowned games.
func (o *Orchestrator) RefreshPrices(ctx context.Context) error {
	if err := o.discoverCards(ctx); err != nil {
		return err
	}
	if err := o.repriceCards(ctx); err != nil {
		return err
	}
	return o.repriceGames(ctx)
}

// discoverCards resolves card lists for unowned games that have none yet.
// A failing game is logged and skipped whole: partial card lists are never
// persisted.
func (o *Orchestrator) discoverCards(ctx context.Context) error {
	unowned, err := o.games.ListByOwned(ctx, false)
	if err != nil {
		return fmt.Errorf("list unowned games: %w", err)
	}

	var bufferedCards []*model.TradingCard
	bufferedLists := make(map[int64][]string)
	skipped := 0

	for _, g := range unowned {
		if g.Discovered() {
			continue
		}

		cards, err := o.disc.DiscoverAndPrice(ctx, g)
		if err != nil {
			skipped++
			log.WithFields(log.Fields{
				"appid": g.AppID,
				"name":  g.Name,
				"error": err,
			}).Warn("Card discovery failed, skipping game")
			continue
		}

		ids := make([]string, len(cards))
		for i := range cards {
			ids[i] = cards[i].ID
			bufferedCards = append(bufferedCards, &cards[i])
		}
		bufferedLists[g.AppID] = ids
	}

	if len(bufferedLists) == 0 {
		log.Info("Card discovery: nothing new to inspect")
		return nil
	}

	if err := o.cards.UpsertBulk(ctx, bufferedCards); err != nil {
		return fmt.Errorf("persist discovered cards: %w", err)
	}
	if err := o.games.SetCards(ctx, bufferedLists); err != nil {
		return fmt.Errorf("persist card lists: %w", err)
	}

	log.WithFields(log.Fields{
		"games":   len(bufferedLists),
		"cards":   len(bufferedCards),
		"skipped": skipped,
	}).Info("Card discovery complete")
	return nil
}

// repriceCards refreshes the market price of every stored card through the
// multibuy endpoint. Quote failures are retried per chunk; exhausting the
// retries aborts the pass so the store never mixes fresh and stale prices
// from the same run.
func (o *Orchestrator) repriceCards(ctx context.Context) error {
	all, err := o.cards.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}
	if len(all) == 0 {
		return nil
	}

	updates := make(map[string]int64, len(all))

	for start := 0; start < len(all); start += steam.MaxQuoteItems {
		end := start + steam.MaxQuoteItems
		if end > len(all) {
			end = len(all)
		}
		chunk := all[start:end]

		names := make([]string, len(chunk))
		for i, c := range chunk {
			names[i] = c.Name
		}

		var prices []int64
		err := retry.Do(o.cfg.QuoteAttempts, o.cfg.QuoteDelay, func() error {
			var quoteErr error
			prices, quoteErr = o.market.MultiBuyPrices(ctx, names)
			return quoteErr
		})
		if err != nil {
			if errors.Is(err, steam.ErrEmptyQuote) {
				return fmt.Errorf("reprice cards: quotes exhausted: %w", err)
			}
			return fmt.Errorf("reprice cards: %w", err)
		}
		if len(prices) != len(chunk) {
			return fmt.Errorf("reprice cards: quote returned %d prices for %d items", len(prices), len(chunk))
		}

		for i, c := range chunk {
			updates[c.ID] = prices[i]
		}
	}

	if err := o.cards.UpdatePrices(ctx, updates); err != nil {
		return fmt.Errorf("persist card prices: %w", err)
	}

	log.WithFields(log.Fields{
		"cards": len(updates),
	}).Info("Card reprice complete")
	return nil
}

// repriceGames refreshes the store price of every unowned game and logs the
// movement of each price that changed.
func (o *Orchestrator) repriceGames(ctx context.Context) error {
	unowned, err := o.games.ListByOwned(ctx, false)
	if err != nil {
		return fmt.Errorf("list unowned games: %w", err)
	}
	if len(unowned) == 0 {
		return nil
	}

	appIDs := make([]int64, len(unowned))
	previous := make(map[int64]int64, len(unowned))
	for i, g := range unowned {
		appIDs[i] = g.AppID
		previous[g.AppID] = g.Price
	}

	fresh, err := o.market.AppPrices(ctx, appIDs)
	if err != nil {
		return fmt.Errorf("fetch game prices: %w", err)
	}

	moved := 0
	for appID, price := range fresh {
		delta := price - previous[appID]
		if delta == 0 {
			continue
		}
		moved++
		direction := "up"
		if delta < 0 {
			direction = "down"
			delta = -delta
		}
		log.WithFields(log.Fields{
			"appid":     appID,
			"direction": direction,
			"delta":     delta,
			"price":     price,
		}).Debug("Game price moved")
	}

	if err := o.games.UpdatePrices(ctx, fresh); err != nil {
		return fmt.Errorf("persist game prices: %w", err)
	}

	log.WithFields(log.Fields{
		"games": len(fresh),
		"moved": moved,
	}).Info("Game reprice complete")
	return nil
}

// ComputeProfit estimates per-game profit for every unowned game with a
// discovered card list. Games whose cards are all unpriced are skipped and
// keep whatever estimate they had.
func (o *Orchestrator) ComputeProfit(ctx context.Context) error {
	unowned, err := o.games.ListByOwned(ctx, false)
	if err != nil {
		return fmt.Errorf("list unowned games: %w", err)
	}

	buffered := make(map[int64]map[string]int64)
	skipped := 0

	for _, g := range unowned {
		if !g.Discovered() || len(g.Cards) == 0 {
			continue
		}

		cards, err := o.cards.ListByAppID(ctx, g.AppID)
		if err != nil {
			return fmt.Errorf("list cards for %d: %w", g.AppID, err)
		}

		var prices []int64
		for _, c := range cards {
			if c.Priced() {
				prices = append(prices, c.Price)
			}
		}

		estimates, err := profit.Estimate(g.Price, prices)
		if err != nil {
			if errors.Is(err, profit.ErrNoPrices) {
				skipped++
				log.WithFields(log.Fields{
					"appid": g.AppID,
					"name":  g.Name,
				}).Debug("No priced cards, skipping profit estimate")
				continue
			}
			return fmt.Errorf("estimate profit for %d: %w", g.AppID, err)
		}
		buffered[g.AppID] = estimates
	}

	if err := o.games.SetProfit(ctx, buffered); err != nil {
		return fmt.Errorf("persist profit estimates: %w", err)
	}

	log.WithFields(log.Fields{
		"games":   len(buffered),
		"skipped": skipped,
	}).Info("Profit estimation complete")
	return nil
}

// Cleanup deletes unowned games whose median estimate sits at or below the
// configured threshold, cards first so no card ever outlives its game.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	losers, err := o.games.ListUnownedBelowProfit(ctx, model.EstimatorMedianWithFee, o.cfg.CleanupThreshold)
	if err != nil {
		return fmt.Errorf("list games below threshold: %w", err)
	}
	if len(losers) == 0 {
		log.Info("Cleanup: nothing below threshold")
		return nil
	}

	appIDs := make([]int64, len(losers))
	for i, g := range losers {
		appIDs[i] = g.AppID
	}

	if err := o.cards.DeleteByAppIDs(ctx, appIDs); err != nil {
		return fmt.Errorf("delete cards of pruned games: %w", err)
	}
	if err := o.games.DeleteBulk(ctx, appIDs); err != nil {
		return fmt.Errorf("delete pruned games: %w", err)
	}

	log.WithFields(log.Fields{
		"games":     len(appIDs),
		"threshold": o.cfg.CleanupThreshold,
	}).Info("Cleanup complete")
	return nil
}
