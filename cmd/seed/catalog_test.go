package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-casino/internal/model"
)

type recorder struct {
	stocks       map[string]decimal.Decimal
	titles       []string
	challenges   []*model.Challenge
	existing     map[string]bool
	leaderboards []string
	tournaments  []*model.Tournament
	failOn       string
}

func newRecorder() *recorder {
	return &recorder{stocks: map[string]decimal.Decimal{}, existing: map[string]bool{}}
}

func (r *recorder) UpsertStock(_ context.Context, symbol, _ string, price decimal.Decimal) error {
	r.stocks[symbol] = price
	return nil
}

func (r *recorder) UpsertTitle(_ context.Context, t *model.Title) error {
	r.titles = append(r.titles, t.Name)
	return nil
}

func (r *recorder) CreateChallenge(_ context.Context, c *model.Challenge) error {
	if c.Name == r.failOn {
		return errors.New("rejected")
	}
	r.challenges = append(r.challenges, c)
	return nil
}

func (r *recorder) LeaderboardExists(_ context.Context, name string) (bool, error) {
	return r.existing[name], nil
}

func (r *recorder) CreateLeaderboard(_ context.Context, lb *model.Leaderboard) error {
	r.leaderboards = append(r.leaderboards, lb.Name)
	return nil
}

func (r *recorder) CreateTournament(_ context.Context, t *model.Tournament) error {
	r.tournaments = append(r.tournaments, t)
	return nil
}

func TestLoadCatalog_ReferenceFile(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("..", "..", "config", "seed.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, c.Stocks)
	assert.NotEmpty(t, c.Titles)
	assert.NotEmpty(t, c.Challenges)
	assert.NotEmpty(t, c.Leaderboards)
	assert.NotEmpty(t, c.Tournaments)

	for _, s := range c.Stocks {
		_, err := s.price()
		assert.NoError(t, err, s.Symbol)
	}
	assert.Equal(t, 24*time.Hour, c.Challenges[0].Duration)
}

func TestLoadCatalog_Errors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stocks: [unclosed"), 0o600))
	_, err = LoadCatalog(path)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	now := time.Date(2026, 3, 19, 15, 30, 0, 0, time.UTC)
	c := &Catalog{
		Stocks: []StockSeed{{Symbol: "CSNO", Name: "Casino", Price: "125.50"}},
		Titles: []TitleSeed{{Name: "Newcomer", RequiredLevel: 1}},
		Challenges: []ChallengeSeed{
			{Name: "Warm Up", Metric: model.MetricGamesPlayed, Target: 10},
			{Name: "Dice", Metric: model.MetricStreak, Target: 3, GameType: "dice", Duration: 48 * time.Hour},
		},
		Leaderboards: []LeaderboardSeed{
			{Name: "Daily Winners", Type: model.LeaderboardDaily, Metric: model.ScoreTotalWon},
			{Name: "Weekly Profit", Type: model.LeaderboardWeekly, Metric: model.ScoreNetProfit},
		},
		Tournaments: []TournamentSeed{{Name: "Sprint", GameType: "slots", StartsIn: time.Hour, Duration: 2 * time.Hour}},
	}
	dst := newRecorder()
	dst.existing["Daily Winners"] = true

	require.NoError(t, Apply(context.Background(), c, dst, now))

	assert.True(t, dst.stocks["CSNO"].Equal(decimal.RequireFromString("125.50")))
	assert.Equal(t, []string{"Newcomer"}, dst.titles)
	assert.Equal(t, []string{"Weekly Profit"}, dst.leaderboards)

	require.Len(t, dst.challenges, 2)
	day := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, dst.challenges[0].StartTime)
	assert.Equal(t, day.Add(24*time.Hour), dst.challenges[0].EndTime)
	assert.Nil(t, dst.challenges[0].GameType)
	assert.Equal(t, day.Add(48*time.Hour), dst.challenges[1].EndTime)
	require.NotNil(t, dst.challenges[1].GameType)
	assert.Equal(t, "dice", *dst.challenges[1].GameType)

	require.Len(t, dst.tournaments, 1)
	assert.Equal(t, now.Add(time.Hour), dst.tournaments[0].StartTime)
	assert.Equal(t, now.Add(3*time.Hour), dst.tournaments[0].EndTime)
}

func TestApply_StopsOnError(t *testing.T) {
	dst := newRecorder()
	dst.failOn = "Broken"

	err := Apply(context.Background(), &Catalog{
		Challenges:  []ChallengeSeed{{Name: "Broken"}},
		Tournaments: []TournamentSeed{{Name: "Never"}},
	}, dst, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
	assert.Empty(t, dst.tournaments)

	err = Apply(context.Background(), &Catalog{Stocks: []StockSeed{{Symbol: "BAD", Price: "-1"}}}, newRecorder(), time.Now())
	assert.Error(t, err)
}
