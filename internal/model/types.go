package model

// Estimator names used as keys in a Game's profit map. The fee-adjusted
// pair is canonical; raw mean/median were retired with the old schema.
const (
	EstimatorMeanWithFee   = "mean_with_fee"
	EstimatorMedianWithFee = "median_with_fee"
)

// UnpricedSentinel marks a trading card whose market price has not been
// fetched yet. A priced card is never negative.
const UnpricedSentinel int64 = -1

// Game is one row of the games table. All money values are integer minor
// units (cents).
type Game struct {
	AppID    int64
	Name     string
	StoreURL string
	Price    int64
	Owned    bool

	// Cards holds the ordered trading-card IDs belonging to this game.
	// nil until a discovery+pricing round completes; empty (non-nil) when
	// the round completed and the game drops no cards.
	Cards []string

	// Profit maps estimator name to a signed profit in minor units
	// (positive = profit). nil until compute-profit runs.
	Profit map[string]int64
}

// Discovered reports whether a card discovery round has completed for the
// game. An empty non-nil Cards slice counts as discovered.
func (g *Game) Discovered() bool {
	return g.Cards != nil
}

// TradingCard is one row of the trading_cards table. ID is the URL-encoded
// market item name and doubles as the primary key; Name is the same item
// name in human-readable form.
type TradingCard struct {
	ID    string
	Name  string
	Price int64
	AppID int64
}

// Priced reports whether the card has a fetched market price.
func (c *TradingCard) Priced() bool {
	return c.Price >= 0
}
