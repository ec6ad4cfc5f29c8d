// Package shop provides the loot crate catalog and the crate roll.
package shop

import (
	"errors"
	"fmt"
	"math"

	"virtual-casino/internal/game"
	"virtual-casino/internal/model"
)

// CrateTier identifies a crate.
type CrateTier string

// Crate tiers, cheapest first.
const (
	CrateBasic     CrateTier = "basic"
	CratePremium   CrateTier = "premium"
	CrateElite     CrateTier = "elite"
	CrateLegendary CrateTier = "legendary"
)

// Rarity labels attached to rewards.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// ErrUnknownCrate is returned for a tier missing from the catalog.
var ErrUnknownCrate = errors.New("unknown crate")

// RewardTier is one band of a crate's reward table.
type RewardTier struct {
	Type        string  `json:"type"` // model.RewardCoins or model.RewardXP
	Min         int64   `json:"min"`
	Max         int64   `json:"max"`
	Probability float64 `json:"probability"`
	Rarity      string  `json:"rarity"`
}

// Crate is a purchasable crate and its reward table.
type Crate struct {
	Tier        CrateTier    `json:"tier"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       int64        `json:"price"`
	Rarity      string       `json:"rarity"`
	Rewards     []RewardTier `json:"rewards"`
}

// Reward is the result of opening a crate.
type Reward struct {
	Type   string `json:"type"`
	Value  int64  `json:"value"`
	Rarity string `json:"rarity"`
}

// Crates contains every crate keyed by tier.
var Crates = map[CrateTier]Crate{
	CrateBasic: {
		Tier:        CrateBasic,
		Name:        "Basic Crate",
		Description: "Common rewards with a chance for something special",
		Price:       500,
		Rarity:      RarityCommon,
		Rewards: []RewardTier{
			{Type: model.RewardCoins, Min: 100, Max: 500, Probability: 0.5, Rarity: RarityCommon},
			{Type: model.RewardCoins, Min: 500, Max: 1000, Probability: 0.3, Rarity: RarityRare},
			{Type: model.RewardXP, Min: 50, Max: 200, Probability: 0.15, Rarity: RarityCommon},
			{Type: model.RewardCoins, Min: 1000, Max: 2500, Probability: 0.05, Rarity: RarityEpic},
		},
	},
	CratePremium: {
		Tier:        CratePremium,
		Name:        "Premium Crate",
		Description: "Better odds for rare rewards",
		Price:       1500,
		Rarity:      RarityRare,
		Rewards: []RewardTier{
			{Type: model.RewardCoins, Min: 500, Max: 1500, Probability: 0.4, Rarity: RarityCommon},
			{Type: model.RewardCoins, Min: 1500, Max: 3000, Probability: 0.35, Rarity: RarityRare},
			{Type: model.RewardXP, Min: 100, Max: 500, Probability: 0.15, Rarity: RarityRare},
			{Type: model.RewardCoins, Min: 3000, Max: 7500, Probability: 0.1, Rarity: RarityEpic},
		},
	},
	CrateElite: {
		Tier:        CrateElite,
		Name:        "Elite Crate",
		Description: "High chance of epic and legendary items",
		Price:       5000,
		Rarity:      RarityEpic,
		Rewards: []RewardTier{
			{Type: model.RewardCoins, Min: 2000, Max: 5000, Probability: 0.3, Rarity: RarityRare},
			{Type: model.RewardCoins, Min: 5000, Max: 10000, Probability: 0.4, Rarity: RarityEpic},
			{Type: model.RewardXP, Min: 250, Max: 1000, Probability: 0.15, Rarity: RarityEpic},
			{Type: model.RewardCoins, Min: 10000, Max: 25000, Probability: 0.15, Rarity: RarityLegendary},
		},
	},
	CrateLegendary: {
		Tier:        CrateLegendary,
		Name:        "Legendary Crate",
		Description: "Guaranteed epic+ rewards with jackpot chance",
		Price:       15000,
		Rarity:      RarityLegendary,
		Rewards: []RewardTier{
			{Type: model.RewardCoins, Min: 7500, Max: 15000, Probability: 0.25, Rarity: RarityEpic},
			{Type: model.RewardCoins, Min: 15000, Max: 30000, Probability: 0.4, Rarity: RarityEpic},
			{Type: model.RewardXP, Min: 500, Max: 2000, Probability: 0.15, Rarity: RarityLegendary},
			{Type: model.RewardCoins, Min: 30000, Max: 75000, Probability: 0.2, Rarity: RarityLegendary},
		},
	},
}

// GetAllCrates returns all crates in display order.
func GetAllCrates() []Crate {
	order := []CrateTier{CrateBasic, CratePremium, CrateElite, CrateLegendary}

	crates := make([]Crate, 0, len(order))
	for _, tier := range order {
		if c, ok := Crates[tier]; ok {
			crates = append(crates, c)
		}
	}
	return crates
}

// GetCrate returns the crate for a tier.
func GetCrate(tier CrateTier) (Crate, error) {
	c, ok := Crates[tier]
	if !ok {
		return Crate{}, fmt.Errorf("%w: %q", ErrUnknownCrate, tier)
	}
	return c, nil
}

// Pick selects the reward tier for a uniform roll in [0,1). A roll past
// the last cumulative bound falls back to the last tier.
func (c Crate) Pick(roll float64) RewardTier {
	var cumulative float64
	for _, r := range c.Rewards {
		cumulative += r.Probability
		if roll < cumulative {
			return r
		}
	}
	return c.Rewards[len(c.Rewards)-1]
}

// Roll opens the crate: one uniform draw selects the tier, a second picks
// the value uniformly in [min, max].
func (c Crate) Roll(rng game.Rand) Reward {
	tier := c.Pick(rng.Float64())
	span := tier.Max - tier.Min + 1
	value := tier.Min
	if span > 1 && span <= math.MaxInt32 {
		value += int64(rng.IntN(int(span)))
	}
	return Reward{Type: tier.Type, Value: value, Rarity: tier.Rarity}
}

// ExpectedCoins is the mean coin value returned by one open.
func (c Crate) ExpectedCoins() float64 {
	var ev float64
	for _, r := range c.Rewards {
		if r.Type == model.RewardCoins {
			ev += r.Probability * float64(r.Min+r.Max) / 2
		}
	}
	return ev
}
