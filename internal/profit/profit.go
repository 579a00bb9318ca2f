// Package profit estimates whether selling a game's trading cards recoups
// the game's price. Pure computation, no I/O.
package profit

import (
	"errors"
	"math"
	"sort"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
)

// FeeMultiplier approximates the marketplace's cut on a sale. Applied per
// card, rounding up, before any aggregation.
const FeeMultiplier = 0.86364

// ErrNoPrices is returned when there are no card prices to estimate from.
// Mean/median of an empty sequence is an error condition, not zero.
var ErrNoPrices = errors.New("no card prices to estimate from")

// WillGetCards is how many cards a player nets from a game with n distinct
// cards: buying and crafting a full set only yields half of them on average
// through drops and trading.
func WillGetCards(n int) int {
	return (n + 1) / 2
}

// ApplyFee returns fee-adjusted copies of the given prices, each rounded up.
func ApplyFee(prices []int64) []int64 {
	out := make([]int64, len(prices))
	for i, p := range prices {
		out[i] = int64(math.Ceil(float64(p) * FeeMultiplier))
	}
	return out
}

// Mean returns the arithmetic mean of prices. Callers must not pass an
// empty slice.
func Mean(prices []int64) float64 {
	var sum int64
	for _, p := range prices {
		sum += p
	}
	return float64(sum) / float64(len(prices))
}

// Median returns the median of prices. Callers must not pass an empty
// slice. The input is not modified.
func Median(prices []int64) float64 {
	sorted := make([]int64, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// Estimate computes the canonical fee-adjusted profit estimators for a game
// priced gamePrice whose cards sell for cardPrices (all minor units).
// Profits are rounded away from zero, never in the user's favor.
func Estimate(gamePrice int64, cardPrices []int64) (map[string]int64, error) {
	if len(cardPrices) == 0 {
		return nil, ErrNoPrices
	}

	willGet := WillGetCards(len(cardPrices))
	adjusted := ApplyFee(cardPrices)

	return map[string]int64{
		model.EstimatorMeanWithFee:   project(willGet, Mean(adjusted), gamePrice),
		model.EstimatorMedianWithFee: project(willGet, Median(adjusted), gamePrice),
	}, nil
}

func project(willGet int, estimator float64, gamePrice int64) int64 {
	return roundAway(float64(willGet)*estimator - float64(gamePrice))
}

// roundAway rounds to the next integer away from zero.
func roundAway(x float64) int64 {
	if x >= 0 {
		return int64(math.Ceil(x))
	}
	return -int64(math.Ceil(-x))
}
