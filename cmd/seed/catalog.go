package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"virtual-casino/internal/model"
)

// Catalog is the seed file layout.
type Catalog struct {
	Stocks       []StockSeed       `yaml:"stocks"`
	Titles       []TitleSeed       `yaml:"titles"`
	Challenges   []ChallengeSeed   `yaml:"challenges"`
	Leaderboards []LeaderboardSeed `yaml:"leaderboards"`
	Tournaments  []TournamentSeed  `yaml:"tournaments"`
}

type StockSeed struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Price  string `yaml:"price"`
}

type TitleSeed struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	RequiredLevel int    `yaml:"required_level"`
}

// ChallengeSeed runs from the start of the current UTC day for Duration.
type ChallengeSeed struct {
	Name          string        `yaml:"name"`
	Description   string        `yaml:"description"`
	ChallengeType string        `yaml:"challenge_type"`
	Metric        string        `yaml:"metric"`
	Target        int64         `yaml:"target"`
	GameType      string        `yaml:"game_type"`
	RewardType    string        `yaml:"reward_type"`
	RewardAmount  int64         `yaml:"reward_amount"`
	Duration      time.Duration `yaml:"duration"`
}

type LeaderboardSeed struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Metric    string `yaml:"metric"`
	GameType  string `yaml:"game_type"`
	PrizePool int64  `yaml:"prize_pool"`
}

// TournamentSeed starts StartsIn after seeding and lasts Duration.
type TournamentSeed struct {
	Name            string        `yaml:"name"`
	Description     string        `yaml:"description"`
	GameType        string        `yaml:"game_type"`
	EntryFee        int64         `yaml:"entry_fee"`
	PrizePool       int64         `yaml:"prize_pool"`
	MaxParticipants int           `yaml:"max_participants"`
	StartsIn        time.Duration `yaml:"starts_in"`
	Duration        time.Duration `yaml:"duration"`
}

// LoadCatalog reads and parses a seed file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s StockSeed) price() (decimal.Decimal, error) {
	p, err := decimal.NewFromString(s.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stock %s: invalid price %q", s.Symbol, s.Price)
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("stock %s: price must be positive", s.Symbol)
	}
	return p, nil
}

func (c ChallengeSeed) challenge(now time.Time) *model.Challenge {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := c.Duration
	if d <= 0 {
		d = 24 * time.Hour
	}
	return &model.Challenge{
		Name:          c.Name,
		Description:   c.Description,
		ChallengeType: c.ChallengeType,
		Metric:        c.Metric,
		TargetValue:   c.Target,
		GameType:      optional(c.GameType),
		RewardType:    c.RewardType,
		RewardAmount:  c.RewardAmount,
		StartTime:     start,
		EndTime:       start.Add(d),
		IsActive:      true,
	}
}

func (l LeaderboardSeed) leaderboard() *model.Leaderboard {
	return &model.Leaderboard{
		Name:            l.Name,
		LeaderboardType: l.Type,
		GameType:        optional(l.GameType),
		Metric:          l.Metric,
		PrizePool:       l.PrizePool,
	}
}

func (t TournamentSeed) tournament(now time.Time) *model.Tournament {
	start := now.Add(t.StartsIn).Truncate(time.Minute)
	return &model.Tournament{
		Name:            t.Name,
		Description:     t.Description,
		GameType:        t.GameType,
		EntryFee:        t.EntryFee,
		PrizePool:       t.PrizePool,
		MaxParticipants: t.MaxParticipants,
		StartTime:       start,
		EndTime:         start.Add(t.Duration),
	}
}

// Stores is what Apply writes through.
type Stores interface {
	UpsertStock(ctx context.Context, symbol, name string, price decimal.Decimal) error
	UpsertTitle(ctx context.Context, t *model.Title) error
	CreateChallenge(ctx context.Context, c *model.Challenge) error
	LeaderboardExists(ctx context.Context, name string) (bool, error)
	CreateLeaderboard(ctx context.Context, lb *model.Leaderboard) error
	CreateTournament(ctx context.Context, t *model.Tournament) error
}

// Apply writes the catalog. Stocks and titles are upserted and
// leaderboards are created once by name; challenges and tournaments are
// time-boxed, so each run opens a new round of them.
func Apply(ctx context.Context, c *Catalog, dst Stores, now time.Time) error {
	for _, s := range c.Stocks {
		p, err := s.price()
		if err != nil {
			return err
		}
		if err := dst.UpsertStock(ctx, s.Symbol, s.Name, p); err != nil {
			return err
		}
	}
	for _, t := range c.Titles {
		title := &model.Title{Name: t.Name, Description: t.Description, RequiredLevel: t.RequiredLevel}
		if err := dst.UpsertTitle(ctx, title); err != nil {
			return err
		}
	}
	for _, ch := range c.Challenges {
		if err := dst.CreateChallenge(ctx, ch.challenge(now)); err != nil {
			return fmt.Errorf("challenge %q: %w", ch.Name, err)
		}
	}
	for _, lb := range c.Leaderboards {
		exists, err := dst.LeaderboardExists(ctx, lb.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := dst.CreateLeaderboard(ctx, lb.leaderboard()); err != nil {
			return fmt.Errorf("leaderboard %q: %w", lb.Name, err)
		}
	}
	for _, t := range c.Tournaments {
		if err := dst.CreateTournament(ctx, t.tournament(now)); err != nil {
			return fmt.Errorf("tournament %q: %w", t.Name, err)
		}
	}
	return nil
}
