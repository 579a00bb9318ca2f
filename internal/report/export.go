package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
)

var gamesHeader = []string{
	"appid", "name", "price", "cards",
	model.EstimatorMeanWithFee, model.EstimatorMedianWithFee,
	"store_url",
}

// WriteGamesCSV writes one row per game. Scraped text cells are escaped;
// numeric columns are written verbatim so negatives stay sortable. Games
// without an estimate get empty profit cells.
func WriteGamesCSV(w io.Writer, games []*model.Game) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(gamesHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, g := range games {
		row := []string{
			strconv.FormatInt(g.AppID, 10),
			EscapeCell(g.Name),
			strconv.FormatInt(g.Price, 10),
			strconv.Itoa(len(g.Cards)),
			formatEstimate(g.Profit, model.EstimatorMeanWithFee),
			formatEstimate(g.Profit, model.EstimatorMedianWithFee),
			EscapeCell(g.StoreURL),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %d: %w", g.AppID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatEstimate(profit map[string]int64, estimator string) string {
	v, ok := profit[estimator]
	if !ok {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
