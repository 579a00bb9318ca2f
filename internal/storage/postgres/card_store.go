package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alekxeyuk/steam-cards-profit/internal/model"
	"github.com/alekxeyuk/steam-cards-profit/internal/storage"
)

// CardStore implements storage.CardStore using PostgreSQL.
type CardStore struct {
	pool *Pool
}

// NewCardStore creates a new CardStore.
func NewCardStore(pool *Pool) *CardStore {
	return &CardStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CardStore = (*CardStore)(nil)

const cardColumns = "id, name, price, appid"

// UpsertBulk creates or refreshes cards by primary key.
func (s *CardStore) UpsertBulk(ctx context.Context, cards []*model.TradingCard) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trading_cards (id, name, price, appid)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			appid = EXCLUDED.appid,
			updated_at = now()
	`

	for _, c := range cards {
		if c == nil || c.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, c.ID, c.Name, c.Price, c.AppID); err != nil {
			return fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves one card. Returns ErrNotFound if absent.
func (s *CardStore) GetByID(ctx context.Context, id string) (*model.TradingCard, error) {
	query := `SELECT ` + cardColumns + ` FROM trading_cards WHERE id = $1`

	c, err := scanCard(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// ListAll retrieves every stored card.
func (s *CardStore) ListAll(ctx context.Context) ([]*model.TradingCard, error) {
	query := `SELECT ` + cardColumns + ` FROM trading_cards ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// ListByAppID retrieves the cards of one game.
func (s *CardStore) ListByAppID(ctx context.Context, appID int64) ([]*model.TradingCard, error) {
	query := `SELECT ` + cardColumns + ` FROM trading_cards WHERE appid = $1 ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("list cards by appid: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// UpdatePrices overwrites stored prices for the given cards.
func (s *CardStore) UpdatePrices(ctx context.Context, prices map[string]int64) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE trading_cards SET price = $2, updated_at = now() WHERE id = $1`

	for id, price := range prices {
		if _, err := tx.Exec(ctx, query, id, price); err != nil {
			return fmt.Errorf("update price for %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeleteByAppIDs removes all cards belonging to the given games.
func (s *CardStore) DeleteByAppIDs(ctx context.Context, appIDs []int64) error {
	if len(appIDs) == 0 {
		return nil
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM trading_cards WHERE appid = ANY($1)`, appIDs); err != nil {
		return fmt.Errorf("delete cards by appid: %w", err)
	}
	return nil
}

// scanCard scans a single row into a TradingCard.
func scanCard(row pgx.Row) (*model.TradingCard, error) {
	var c model.TradingCard
	if err := row.Scan(&c.ID, &c.Name, &c.Price, &c.AppID); err != nil {
		return nil, err
	}
	return &c, nil
}

// scanCards scans multiple rows into a slice of TradingCard.
func scanCards(rows pgx.Rows) ([]*model.TradingCard, error) {
	var cards []*model.TradingCard

	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card rows: %w", err)
	}
	return cards, nil
}
