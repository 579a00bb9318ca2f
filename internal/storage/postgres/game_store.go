package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage"
)

// GameStore implements storage.GameStore using PostgreSQL.
type GameStore struct {
	pool *Pool
}

// NewGameStore creates a new GameStore.
func NewGameStore(pool *Pool) *GameStore {
	return &GameStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GameStore = (*GameStore)(nil)

const gameColumns = "appid, name, store_url, price, owned, cards, profit"

// UpsertBulk creates or refreshes games by primary key. Cards and profit
// are deliberately left out of the update so a re-crawl never clobbers
// discovery or estimation state.
func (s *GameStore) UpsertBulk(ctx context.Context, games []*model.Game) error {
	if len(games) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO games (appid, name, store_url, price, owned)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (appid) DO UPDATE SET
			name = EXCLUDED.name,
			store_url = EXCLUDED.store_url,
			price = EXCLUDED.price,
			owned = EXCLUDED.owned,
			updated_at = now()
	`

	for _, g := range games {
		if g == nil {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, g.AppID, g.Name, g.StoreURL, g.Price, g.Owned); err != nil {
			return fmt.Errorf("upsert game %d: %w", g.AppID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByAppID retrieves one game. Returns ErrNotFound if absent.
func (s *GameStore) GetByAppID(ctx context.Context, appID int64) (*model.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE appid = $1`

	g, err := scanGame(s.pool.QueryRow(ctx, query, appID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get game by appid: %w", err)
	}
	return g, nil
}

// ListByOwned retrieves all games with the given ownership flag.
func (s *GameStore) ListByOwned(ctx context.Context, owned bool) ([]*model.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE owned = $1 ORDER BY appid ASC`

	rows, err := s.pool.Query(ctx, query, owned)
	if err != nil {
		return nil, fmt.Errorf("list games by owned: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// ListUnownedBelowProfit retrieves unowned games whose named estimator is
// at or below threshold. Games without that estimator never match.
func (s *GameStore) ListUnownedBelowProfit(ctx context.Context, estimator string, threshold int64) ([]*model.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE owned = FALSE AND (profit ->> $1)::bigint <= $2
		ORDER BY appid ASC
	`

	rows, err := s.pool.Query(ctx, query, estimator, threshold)
	if err != nil {
		return nil, fmt.Errorf("list games below profit: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// SetCards records completed discovery rounds.
func (s *GameStore) SetCards(ctx context.Context, cards map[int64][]string) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE games SET cards = $2, updated_at = now() WHERE appid = $1`

	for appID, ids := range cards {
		if ids == nil {
			ids = []string{}
		}
		if _, err := tx.Exec(ctx, query, appID, ids); err != nil {
			return fmt.Errorf("set cards for %d: %w", appID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SetProfit persists estimator maps for the given games.
func (s *GameStore) SetProfit(ctx context.Context, profits map[int64]map[string]int64) error {
	if len(profits) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE games SET profit = $2, updated_at = now() WHERE appid = $1`

	for appID, estimates := range profits {
		encoded, err := json.Marshal(estimates)
		if err != nil {
			return fmt.Errorf("encode profit for %d: %w", appID, err)
		}
		if _, err := tx.Exec(ctx, query, appID, encoded); err != nil {
			return fmt.Errorf("set profit for %d: %w", appID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MarkOwned flips games to owned and drops their card lists.
func (s *GameStore) MarkOwned(ctx context.Context, appIDs []int64) error {
	if len(appIDs) == 0 {
		return nil
	}

	query := `UPDATE games SET owned = TRUE, cards = NULL, updated_at = now() WHERE appid = ANY($1)`

	if _, err := s.pool.Exec(ctx, query, appIDs); err != nil {
		return fmt.Errorf("mark games owned: %w", err)
	}
	return nil
}

// UpdatePrices overwrites stored prices for the given games.
func (s *GameStore) UpdatePrices(ctx context.Context, prices map[int64]int64) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE games SET price = $2, updated_at = now() WHERE appid = $1`

	for appID, price := range prices {
		if _, err := tx.Exec(ctx, query, appID, price); err != nil {
			return fmt.Errorf("update price for %d: %w", appID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeleteBulk removes games by primary key.
func (s *GameStore) DeleteBulk(ctx context.Context, appIDs []int64) error {
	if len(appIDs) == 0 {
		return nil
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM games WHERE appid = ANY($1)`, appIDs); err != nil {
		return fmt.Errorf("delete games: %w", err)
	}
	return nil
}

// scanGame scans a single row into a Game.
func scanGame(row pgx.Row) (*model.Game, error) {
	var g model.Game
	var profitRaw []byte

	err := row.Scan(&g.AppID, &g.Name, &g.StoreURL, &g.Price, &g.Owned, &g.Cards, &profitRaw)
	if err != nil {
		return nil, err
	}

	if profitRaw != nil {
		if err := json.Unmarshal(profitRaw, &g.Profit); err != nil {
			return nil, fmt.Errorf("decode profit: %w", err)
		}
	}
	return &g, nil
}

// scanGames scans multiple rows into a slice of Game.
func scanGames(rows pgx.Rows) ([]*model.Game, error) {
	var games []*model.Game

	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game rows: %w", err)
	}
	return games, nil
}
