package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"virtual-casino/internal/model"
)

const stockColumns = `id, symbol, name, current_price, previous_price, change_percent, updated_at`

// StockRepository handles the simulated market and holdings.
type StockRepository struct {
	db DBTX
}

// NewStockRepository creates a new StockRepository instance.
func NewStockRepository(db DBTX) *StockRepository {
	return &StockRepository{db: db}
}

func scanStock(row pgx.Row) (*model.Stock, error) {
	var s model.Stock
	err := row.Scan(
		&s.ID,
		&s.Symbol,
		&s.Name,
		&s.CurrentPrice,
		&s.PreviousPrice,
		&s.ChangePercent,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert inserts a stock or refreshes its name, keyed by symbol. Prices
// of an existing stock are left alone.
func (r *StockRepository) Upsert(ctx context.Context, symbol, name string, price decimal.Decimal) (*model.Stock, error) {
	query := `
		INSERT INTO stocks (id, symbol, name, current_price, previous_price, change_percent, updated_at)
		VALUES ($1, $2, $3, $4, $4, 0, NOW())
		ON CONFLICT (symbol) DO UPDATE SET name = EXCLUDED.name
		RETURNING ` + stockColumns

	s, err := scanStock(r.db.QueryRow(ctx, query, uuid.New(), symbol, name, price))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stock: %w", err)
	}
	return s, nil
}

// List returns every stock ordered by symbol.
func (r *StockRepository) List(ctx context.Context) ([]*model.Stock, error) {
	rows, err := r.db.Query(ctx, `SELECT `+stockColumns+` FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []*model.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}

// Get retrieves a stock by id.
func (r *StockRepository) Get(ctx context.Context, id uuid.UUID) (*model.Stock, error) {
	return r.one(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = $1`, id)
}

// Lock reads a stock with a shared lock so its price cannot move while a
// trade is executed at it.
func (r *StockRepository) Lock(ctx context.Context, id uuid.UUID) (*model.Stock, error) {
	return r.one(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = $1 FOR SHARE`, id)
}

// SetPrice moves a stock to a new price, keeping the old one as previous.
func (r *StockRepository) SetPrice(ctx context.Context, id uuid.UUID, price, changePercent decimal.Decimal) error {
	const query = `
		UPDATE stocks
		SET previous_price = current_price,
		    current_price = $2,
		    change_percent = $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, price, changePercent)
	if err != nil {
		return fmt.Errorf("failed to set stock price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockHolding reads a holding with a row lock. A missing holding yields
// a zero quantity and no error.
func (r *StockRepository) LockHolding(ctx context.Context, accountID, stockID uuid.UUID) (*model.UserStock, error) {
	const query = `
		SELECT account_id, stock_id, quantity, avg_buy_price
		FROM user_stocks
		WHERE account_id = $1 AND stock_id = $2
		FOR UPDATE
	`

	var h model.UserStock
	err := r.db.QueryRow(ctx, query, accountID, stockID).Scan(&h.AccountID, &h.StockID, &h.Quantity, &h.AvgBuyPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.UserStock{AccountID: accountID, StockID: stockID, AvgBuyPrice: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// SaveHolding writes a holding; a zero quantity deletes it.
func (r *StockRepository) SaveHolding(ctx context.Context, h *model.UserStock) error {
	if h.Quantity == 0 {
		const del = `DELETE FROM user_stocks WHERE account_id = $1 AND stock_id = $2`
		if _, err := r.db.Exec(ctx, del, h.AccountID, h.StockID); err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		return nil
	}

	const upsert = `
		INSERT INTO user_stocks (account_id, stock_id, quantity, avg_buy_price, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_id, stock_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    avg_buy_price = EXCLUDED.avg_buy_price,
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, upsert, h.AccountID, h.StockID, h.Quantity, h.AvgBuyPrice); err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}

// Portfolio returns an account's holdings joined with current prices.
func (r *StockRepository) Portfolio(ctx context.Context, accountID uuid.UUID) ([]*model.Holding, error) {
	const query = `
		SELECT us.account_id, us.stock_id, us.quantity, us.avg_buy_price,
		       s.symbol, s.name, s.current_price
		FROM user_stocks us
		JOIN stocks s ON s.id = us.stock_id
		WHERE us.account_id = $1
		ORDER BY s.symbol
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	defer rows.Close()

	var holdings []*model.Holding
	for rows.Next() {
		var h model.Holding
		err := rows.Scan(
			&h.AccountID,
			&h.StockID,
			&h.Quantity,
			&h.AvgBuyPrice,
			&h.Symbol,
			&h.Name,
			&h.CurrentPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		qty := decimal.NewFromInt(h.Quantity)
		h.MarketValue = h.CurrentPrice.Mul(qty)
		h.UnrealizedPnL = h.MarketValue.Sub(h.AvgBuyPrice.Mul(qty))
		holdings = append(holdings, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio: %w", err)
	}

	return holdings, nil
}

// RecordTrade appends a stock trade audit row.
func (r *StockRepository) RecordTrade(ctx context.Context, t *model.StockTrade) (*model.StockTrade, error) {
	const query = `
		INSERT INTO stock_transactions (id, account_id, stock_id, type, quantity, price_per_share, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	out := *t
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, query,
		out.ID, out.AccountID, out.StockID, out.Type, out.Quantity, out.PricePerShare, out.TotalAmount,
	).Scan(&out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record trade: %w", err)
	}
	return &out, nil
}

func (r *StockRepository) one(ctx context.Context, query string, args ...any) (*model.Stock, error) {
	s, err := scanStock(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	return s, nil
}
