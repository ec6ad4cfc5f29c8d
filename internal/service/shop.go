package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/game"
	"virtual-casino/internal/model"
	"virtual-casino/internal/pkg/rng"
	"virtual-casino/internal/repository"
	"virtual-casino/internal/shop"
)

// CrateOpening is the result of opening a crate.
type CrateOpening struct {
	Crate   shop.CrateTier `json:"crate"`
	Price   int64          `json:"price"`
	Reward  shop.Reward    `json:"reward"`
	Balance int64          `json:"balance"`
	LevelUp *LevelUp       `json:"level_up,omitempty"`
}

// ShopService sells loot crates.
type ShopService struct {
	store       *repository.Store
	progression *Progression
	rand        func() game.Rand
	now         func() time.Time
}

// NewShopService creates a new ShopService instance.
func NewShopService(store *repository.Store, progression *Progression) *ShopService {
	return &ShopService{
		store:       store,
		progression: progression,
		rand:        func() game.Rand { return rng.New() },
		now:         time.Now,
	}
}

// Crates returns the crate catalog.
func (s *ShopService) Crates() []shop.Crate {
	return shop.GetAllCrates()
}

// OpenCrate charges the crate price and applies one rolled reward.
func (s *ShopService) OpenCrate(ctx context.Context, accountID uuid.UUID, tier shop.CrateTier) (*CrateOpening, error) {
	crate, err := shop.GetCrate(tier)
	if err != nil {
		if errors.Is(err, shop.ErrUnknownCrate) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCrate, tier)
		}
		return nil, err
	}

	now := s.now()
	var opening *CrateOpening
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := lockPlayer(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		if !acct.CanAfford(crate.Price) {
			return ErrInsufficientBalance
		}
		balance, err := debit(ctx, tx, accountID, entry{
			Type:        model.TxTypeCratePurchase,
			Amount:      crate.Price,
			Description: "Purchased " + crate.Name,
		})
		if err != nil {
			return err
		}

		reward := crate.Roll(s.rand())
		opening = &CrateOpening{Crate: tier, Price: crate.Price, Reward: reward, Balance: balance}

		switch reward.Type {
		case model.RewardXP:
			opening.LevelUp, err = s.progression.GrantXP(ctx, tx, accountID, reward.Value)
			if err != nil {
				return err
			}
			if opening.LevelUp != nil {
				opening.Balance, err = balanceOf(ctx, tx, accountID)
			}
			return err
		default:
			opening.Balance, err = credit(ctx, tx, accountID, entry{
				Type:        model.TxTypeCrate,
				Amount:      reward.Value,
				Description: fmt.Sprintf("%s reward (%s)", crate.Name, reward.Rarity),
			})
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("account_id", accountID.String()).
		Str("crate", string(tier)).
		Str("reward_type", opening.Reward.Type).
		Int64("value", opening.Reward.Value).
		Msg("Crate opened")
	return opening, nil
}
