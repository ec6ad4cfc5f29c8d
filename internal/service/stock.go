package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"virtual-casino/internal/game"
	"virtual-casino/internal/model"
	"virtual-casino/internal/pkg/rng"
	"virtual-casino/internal/repository"
)

var (
	minPrice = decimal.RequireFromString("0.01")
	hundred  = decimal.NewFromInt(100)
	maxCoins = decimal.NewFromInt(math.MaxInt64)
)

// priceScale matches the NUMERIC(18,4) price columns.
const priceScale = 4

// TradeResult is an executed trade with the resulting position.
type TradeResult struct {
	Trade    *model.StockTrade `json:"trade"`
	Quantity int64             `json:"quantity_held"`
	AvgPrice decimal.Decimal   `json:"avg_buy_price"`
	Balance  int64             `json:"balance"`
}

// StockService runs the simulated market.
type StockService struct {
	store      *repository.Store
	volatility float64
	rand       func() game.Rand
	now        func() time.Time
}

// NewStockService creates a new StockService instance.
func NewStockService(store *repository.Store, volatility float64) *StockService {
	if volatility <= 0 {
		volatility = 0.01
	}
	return &StockService{
		store:      store,
		volatility: volatility,
		rand:       func() game.Rand { return rng.New() },
		now:        time.Now,
	}
}

// List returns every stock with its latest price.
func (s *StockService) List(ctx context.Context) ([]*model.Stock, error) {
	return s.store.Stocks.List(ctx)
}

// Portfolio returns the account's holdings valued at current prices.
func (s *StockService) Portfolio(ctx context.Context, accountID uuid.UUID) ([]*model.Holding, error) {
	return s.store.Stocks.Portfolio(ctx, accountID)
}

// Trade buys or sells whole shares at the current price. Buys cost
// ceil(qty*price) and sells return floor(qty*price).
func (s *StockService) Trade(ctx context.Context, accountID, stockID uuid.UUID, side string, qty int64) (*TradeResult, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidTrade)
	}
	if side != model.TradeBuy && side != model.TradeSell {
		return nil, fmt.Errorf("%w: type must be buy or sell", ErrInvalidTrade)
	}

	now := s.now()
	var res *TradeResult
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := lockPlayer(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		stock, err := tx.Stocks.Lock(ctx, stockID)
		if err != nil {
			return notFound(err, ErrStockNotFound)
		}
		h, err := tx.Stocks.LockHolding(ctx, accountID, stockID)
		if err != nil {
			return err
		}

		total, err := TradeTotal(side, qty, stock.CurrentPrice)
		if err != nil {
			return err
		}
		balance := acct.Balance

		switch side {
		case model.TradeBuy:
			if h.Quantity > math.MaxInt64-qty {
				return fmt.Errorf("%w: position too large", ErrInvalidTrade)
			}
			if !acct.CanAfford(total) {
				return ErrInsufficientBalance
			}
			if total > 0 {
				balance, err = debit(ctx, tx, accountID, entry{
					Type:        model.TxTypeStockBuy,
					Amount:      total,
					Description: fmt.Sprintf("Bought %d %s", qty, stock.Symbol),
				})
				if err != nil {
					return err
				}
			}
			h.AvgBuyPrice = AverageCost(h.Quantity, h.AvgBuyPrice, qty, stock.CurrentPrice)
			h.Quantity += qty
		case model.TradeSell:
			if h.Quantity < qty {
				return ErrInsufficientShares
			}
			if total > 0 {
				balance, err = credit(ctx, tx, accountID, entry{
					Type:        model.TxTypeStockSell,
					Amount:      total,
					Description: fmt.Sprintf("Sold %d %s", qty, stock.Symbol),
				})
				if err != nil {
					return err
				}
			}
			h.Quantity -= qty
		}

		if err := tx.Stocks.SaveHolding(ctx, h); err != nil {
			return err
		}
		trade, err := tx.Stocks.RecordTrade(ctx, &model.StockTrade{
			AccountID:     accountID,
			StockID:       stockID,
			Type:          side,
			Quantity:      qty,
			PricePerShare: stock.CurrentPrice,
			TotalAmount:   total,
		})
		if err != nil {
			return err
		}
		res = &TradeResult{Trade: trade, Quantity: h.Quantity, AvgPrice: h.AvgBuyPrice, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TradeTotal returns the coin value of a trade: buys round up, sells round
// down. Values that do not fit in an int64 are rejected.
func TradeTotal(side string, qty int64, price decimal.Decimal) (int64, error) {
	gross := price.Mul(decimal.NewFromInt(qty))
	if side == model.TradeBuy {
		gross = gross.Ceil()
	} else {
		gross = gross.Floor()
	}
	if gross.IsNegative() || gross.GreaterThan(maxCoins) {
		return 0, fmt.Errorf("%w: trade value out of range", ErrInvalidTrade)
	}
	return gross.IntPart(), nil
}

// AverageCost returns the volume-weighted cost basis after buying qty at
// price on top of an existing position.
func AverageCost(oldQty int64, oldAvg decimal.Decimal, qty int64, price decimal.Decimal) decimal.Decimal {
	total := oldQty + qty
	if total <= 0 {
		return decimal.Zero
	}
	cost := oldAvg.Mul(decimal.NewFromInt(oldQty)).Add(price.Mul(decimal.NewFromInt(qty)))
	return cost.DivRound(decimal.NewFromInt(total), priceScale)
}

// Walk moves a price by a uniform step of at most ±volatility, floored
// at 0.01. u is uniform in [0,1).
func Walk(price decimal.Decimal, u, volatility float64) decimal.Decimal {
	step := decimal.NewFromFloat(1 + (u-0.5)*2*volatility)
	next := price.Mul(step).Round(priceScale)
	if next.LessThan(minPrice) {
		return minPrice
	}
	return next
}

// Tick advances every stock one random-walk step.
func (s *StockService) Tick(ctx context.Context) error {
	stocks, err := s.store.Stocks.List(ctx)
	if err != nil {
		return err
	}
	r := s.rand()
	for _, st := range stocks {
		next := Walk(st.CurrentPrice, r.Float64(), s.volatility)
		change := decimal.Zero
		if st.CurrentPrice.IsPositive() {
			change = next.Sub(st.CurrentPrice).Div(st.CurrentPrice).Mul(hundred).Round(2)
		}
		if err := s.store.Stocks.SetPrice(ctx, st.ID, next, change); err != nil {
			return err
		}
	}
	log.Debug().Int("stocks", len(stocks)).Msg("Stock prices updated")
	return nil
}
