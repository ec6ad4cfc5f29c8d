// Integration tests run against a PostgreSQL container.
package service

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"virtual-casino/internal/auth"
	"virtual-casino/internal/config"
	"virtual-casino/internal/game"
	"virtual-casino/internal/game/engine"
	"virtual-casino/internal/game/gametest"
	"virtual-casino/internal/model"
	"virtual-casino/internal/pkg/db"
	"virtual-casino/internal/pkg/rng"
	"virtual-casino/internal/repository"
	"virtual-casino/internal/shop"
)

func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

type fixture struct {
	store       *repository.Store
	cfg         *config.Config
	progression *Progression
	accounts    *AccountService
	wagers      *WagerService
	admin       *AdminService
}

// setupServices starts PostgreSQL and wires the services over it.
// Skips the test if Docker is not available.
func setupServices(t *testing.T) (*fixture, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool))

	cfg := config.Default()
	eng, err := engine.New(cfg.Games)
	require.NoError(t, err)

	store := repository.NewStore(pool)
	progression := NewProgression(cfg.Economy)
	gate := auth.NewGate(config.AuthConfig{JWTSecret: "test-secret", Issuer: "test"})

	f := &fixture{
		store:       store,
		cfg:         cfg,
		progression: progression,
		accounts:    NewAccountService(store, gate, auth.NewHasher(4), progression, cfg.Economy),
		wagers:      NewWagerService(store, eng, progression),
		admin:       NewAdminService(store),
	}

	return f, func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
}

func (f *fixture) register(t *testing.T, name string) uuid.UUID {
	t.Helper()
	sess, err := f.accounts.Register(context.Background(), name, name+"@example.com", "password")
	require.NoError(t, err)
	return sess.Account.ID
}

// losing scripts a d6 roll of 1.
func losing() game.Rand { return &gametest.Rand{Ints: []int{0}} }

func TestRegisterAndLogin(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	sess, err := f.accounts.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, f.cfg.Economy.StartingBalance, sess.Account.Balance)

	_, err = f.accounts.Register(ctx, "ALICE", "other@example.com", "password")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	logged, err := f.accounts.Login(ctx, "alice@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, sess.Account.ID, logged.Account.ID)

	_, err = f.accounts.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.accounts.Login(ctx, "nobody", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// Every balance change is mirrored by exactly one ledger record, so the
// ledger sum always equals the balance.
func TestWagersKeepLedgerInBalance(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "gambler")
	seed := uint64(42)
	f.wagers.rand = func() game.Rand {
		seed++
		return rng.Seeded(seed)
	}

	for i := 0; i < 40; i++ {
		var w engine.Wager
		switch i % 4 {
		case 0:
			w = engine.DiceWager{Bet: 10, Target: 4}
		case 1:
			w = engine.SlotWager{Bet: 10}
		case 2:
			w = engine.PlinkoWager{Bet: 10}
		default:
			w = engine.WheelWager{Bet: 10}
		}
		_, err := f.wagers.Play(ctx, id, w)
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientBalance)
			break
		}
	}

	rec, err := f.admin.Reconcile(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, rec.Drift)

	acct, err := f.accounts.Get(ctx, id)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acct.Balance, int64(0))

	stats, err := f.accounts.Stats(ctx, id)
	require.NoError(t, err)
	var played int64
	for _, g := range stats.Games {
		played += g.GamesPlayed
	}
	assert.Equal(t, acct.GamesPlayed, played)
}

func TestPlayLosingDice(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "loser")
	f.wagers.rand = losing

	res, err := f.wagers.Play(ctx, id, engine.DiceWager{Bet: 100, Target: 2})
	require.NoError(t, err)
	assert.False(t, res.Win)
	assert.Zero(t, res.Payout)
	assert.Equal(t, f.cfg.Economy.StartingBalance-100, res.Balance)
	assert.Zero(t, res.XP)

	txs, err := f.accounts.Transactions(ctx, id, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TxTypeBet, txs[0].Type)
	assert.Equal(t, int64(-100), txs[0].Amount)
}

func TestPlayRejectsBadWagersWithoutSideEffects(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "careful")

	_, err := f.wagers.Play(ctx, id, engine.DiceWager{Bet: 100, Target: 7})
	assert.ErrorIs(t, err, game.ErrInvalidParams)
	_, err = f.wagers.Play(ctx, id, engine.SlotWager{Bet: 0})
	assert.ErrorIs(t, err, game.ErrInvalidBet)
	_, err = f.wagers.Play(ctx, id, engine.SlotWager{Bet: f.cfg.Economy.StartingBalance + 1})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = f.wagers.Play(ctx, id, engine.CrashWager{Bet: 10})
	assert.ErrorIs(t, err, ErrNotInstantGame)

	acct, err := f.accounts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Economy.StartingBalance, acct.Balance)
	assert.Zero(t, acct.GamesPlayed)
}

func TestConcurrentPlayNeverOverdraws(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "racer")
	f.wagers.rand = losing
	bet := f.cfg.Economy.StartingBalance / 2

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, broke int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.wagers.Play(ctx, id, engine.DiceWager{Bet: bet, Target: 6})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrInsufficientBalance):
				broke++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, ok)
	assert.Equal(t, 8, broke)

	acct, err := f.accounts.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, acct.Balance)
}

func TestBannedAccountCannotWager(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "cheater")
	require.NoError(t, f.admin.Ban(ctx, id, time.Now().Add(time.Hour)))

	_, err := f.wagers.Play(ctx, id, engine.SlotWager{Bet: 10})
	assert.ErrorIs(t, err, ErrAccountBanned)
	_, err = f.accounts.Login(ctx, "cheater", "password")
	assert.ErrorIs(t, err, ErrAccountBanned)

	require.NoError(t, f.admin.Unban(ctx, id))
	_, err = f.wagers.Play(ctx, id, engine.SlotWager{Bet: 10})
	assert.NoError(t, err)
}

func TestInfiniteFundsNeverDebits(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "tester")
	require.NoError(t, f.admin.SetInfiniteFunds(ctx, id, true))
	f.wagers.rand = losing

	res, err := f.wagers.Play(ctx, id, engine.DiceWager{Bet: 50_000, Target: 6})
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Economy.StartingBalance, res.Balance)
}

func TestDailyBonusOncePerDay(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "daily")

	status, err := f.accounts.DailyStatus(ctx, id)
	require.NoError(t, err)
	assert.False(t, status.Claimed)

	claim, err := f.accounts.ClaimDaily(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Economy.StartingBalance+f.cfg.Economy.DailyBonus, claim.Balance)

	_, err = f.accounts.ClaimDaily(ctx, id)
	assert.ErrorIs(t, err, ErrDailyAlreadyClaimed)

	status, err = f.accounts.DailyStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.Claimed)
}

func TestMinesSessionLifecycle(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "sweeper")
	f.wagers.rand = func() game.Rand { return rng.Seeded(7) }

	state, err := f.wagers.Open(ctx, id, engine.MinesWager{Bet: 100, Mines: 3})
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, state.Status)
	assert.Equal(t, f.cfg.Economy.StartingBalance-100, state.Balance)

	_, err = f.wagers.Open(ctx, id, engine.MinesWager{Bet: 100, Mines: 3})
	assert.ErrorIs(t, err, ErrSessionActive)

	active, err := f.wagers.ActiveSessions(ctx, id)
	require.NoError(t, err)
	require.Len(t, active, 1)

	_, err = f.wagers.Act(ctx, id, state.ID, engine.CashOutAction{})
	assert.ErrorIs(t, err, game.ErrWrongPhase)

	done, err := f.wagers.Act(ctx, id, state.ID, engine.RevealAction{Cell: 0})
	require.NoError(t, err)
	if done.Status == model.SessionActive {
		done, err = f.wagers.Act(ctx, id, state.ID, engine.CashOutAction{})
		require.NoError(t, err)
	}
	assert.Equal(t, model.SessionFinished, done.Status)
	require.NotNil(t, done.Result)

	_, err = f.wagers.Act(ctx, id, state.ID, engine.CashOutAction{})
	assert.ErrorIs(t, err, ErrSessionOver)

	other := f.register(t, "intruder")
	_, err = f.wagers.Status(ctx, other, state.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	rec, err := f.admin.Reconcile(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, rec.Drift)
}

func TestChallengeClaimIsIdempotent(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	challenges := NewChallengeService(f.store, f.progression)
	c, err := challenges.Create(ctx, &model.Challenge{
		Name:         "First game",
		Metric:       model.MetricGamesPlayed,
		TargetValue:  1,
		RewardType:   model.RewardCoins,
		RewardAmount: 500,
		StartTime:    time.Now().Add(-time.Hour),
		EndTime:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	id := f.register(t, "achiever")
	_, err = challenges.Claim(ctx, id, c.ID)
	assert.ErrorIs(t, err, ErrChallengeNotCompleted)

	f.wagers.rand = losing
	res, err := f.wagers.Play(ctx, id, engine.DiceWager{Bet: 100, Target: 2})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, res.CompletedChallenges)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var claimed, rejected int
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := challenges.Claim(ctx, id, c.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				claimed++
			case assert.ErrorIs(t, err, ErrAlreadyClaimed):
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claimed)
	assert.Equal(t, 4, rejected)

	acct, err := f.accounts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Economy.StartingBalance-100+500, acct.Balance)
}

func TestTournamentCapacityUnderConcurrentJoins(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	tournaments := NewTournamentService(f.store)
	tour, err := tournaments.Create(ctx, &model.Tournament{
		Name:            "Dice duel",
		GameType:        string(game.KindDice),
		EntryFee:        100,
		PrizePool:       1000,
		MaxParticipants: 2,
		StartTime:       time.Now().Add(time.Hour),
		EndTime:         time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)

	ids := []uuid.UUID{f.register(t, "p1"), f.register(t, "p2"), f.register(t, "p3")}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var joined, full int
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := tournaments.Join(ctx, id, tour.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case assert.ErrorIs(t, err, ErrTournamentFull):
				full++
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 2, joined)
	assert.Equal(t, 1, full)

	standings, err := tournaments.Standings(ctx, tour.ID)
	require.NoError(t, err)
	assert.Len(t, standings, 2)

	_, err = tournaments.Finalize(ctx, tour.ID)
	assert.ErrorIs(t, err, ErrTournamentNotEnded)

	for _, id := range ids {
		rec, err := f.admin.Reconcile(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, rec.Drift)
	}
}

func TestTournamentFinalizePaysOnce(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	tournaments := NewTournamentService(f.store)
	start := time.Now().Add(time.Hour)
	tour, err := tournaments.Create(ctx, &model.Tournament{
		Name:      "Past cup",
		GameType:  string(game.KindSlots),
		PrizePool: 1000,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.NoError(t, err)

	winner := f.register(t, "winner")
	_, err = tournaments.Join(ctx, winner, tour.ID)
	require.NoError(t, err)

	tournaments.now = func() time.Time { return start.Add(2 * time.Hour) }

	payouts, err := tournaments.Finalize(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(500), payouts[0].Amount)

	_, err = tournaments.Finalize(ctx, tour.ID)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	acct, err := f.accounts.Get(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Economy.StartingBalance+500, acct.Balance)
}

func TestOpenBasicCrate(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	shops := NewShopService(f.store, f.progression)
	shops.rand = func() game.Rand { return &gametest.Rand{Floats: []float64{0.1}, Ints: []int{0}} }

	id := f.register(t, "opener")
	opening, err := shops.OpenCrate(ctx, id, shop.CrateBasic)
	require.NoError(t, err)
	assert.Equal(t, model.RewardCoins, opening.Reward.Type)
	assert.Equal(t, int64(100), opening.Reward.Value)
	assert.Equal(t, f.cfg.Economy.StartingBalance-500+100, opening.Balance)

	_, err = shops.OpenCrate(ctx, id, "mythic")
	assert.ErrorIs(t, err, ErrUnknownCrate)

	_, err = shops.OpenCrate(ctx, id, shop.CrateLegendary)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestClanRules(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	clans := NewClanService(f.store, f.cfg.Economy.ClanCreationFee, 2)
	owner := f.register(t, "founder")
	rival := f.register(t, "rival")
	member := f.register(t, "member")
	extra := f.register(t, "extra")

	clan, err := clans.Create(ctx, owner, ClanInput{Name: "High Rollers", Tag: "hrl"})
	require.NoError(t, err)
	assert.Equal(t, "HRL", clan.Tag)
	assert.True(t, clan.IsPublic)

	_, err = clans.Create(ctx, rival, ClanInput{Name: "high rollers", Tag: "xyz"})
	assert.ErrorIs(t, err, ErrClanTaken)
	_, err = clans.Create(ctx, owner, ClanInput{Name: "Second", Tag: "SEC"})
	assert.ErrorIs(t, err, ErrAlreadyInClan)

	_, err = clans.Join(ctx, member, clan.ID)
	require.NoError(t, err)
	_, err = clans.Join(ctx, extra, clan.ID)
	assert.ErrorIs(t, err, ErrClanFull)

	assert.ErrorIs(t, clans.Leave(ctx, owner), ErrOwnerCannotLeave)
	require.NoError(t, clans.Leave(ctx, member))
	require.NoError(t, clans.Leave(ctx, owner))

	_, err = clans.Mine(ctx, owner)
	assert.ErrorIs(t, err, ErrNotInClan)

	acct, err := f.accounts.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Economy.StartingBalance-f.cfg.Economy.ClanCreationFee, acct.Balance)
}

func TestStockTrades(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	stock, err := f.store.Stocks.Upsert(ctx, "CSNO", "Casino Corp", decimal.RequireFromString("10.25"))
	require.NoError(t, err)

	stocks := NewStockService(f.store, 0.05)
	id := f.register(t, "trader")

	buy, err := stocks.Trade(ctx, id, stock.ID, model.TradeBuy, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(31), buy.Trade.TotalAmount)
	assert.Equal(t, f.cfg.Economy.StartingBalance-31, buy.Balance)

	_, err = stocks.Trade(ctx, id, stock.ID, model.TradeSell, 4)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	sell, err := stocks.Trade(ctx, id, stock.ID, model.TradeSell, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(30), sell.Trade.TotalAmount)
	assert.Zero(t, sell.Quantity)

	_, err = stocks.Trade(ctx, id, stock.ID, "short", 1)
	assert.ErrorIs(t, err, ErrInvalidTrade)
	_, err = stocks.Trade(ctx, id, uuid.New(), model.TradeBuy, 1)
	assert.ErrorIs(t, err, ErrStockNotFound)

	// 9e18 shares at 10.25 is past the int64 coin range
	_, err = stocks.Trade(ctx, id, stock.ID, model.TradeBuy, 9_000_000_000_000_000_000)
	assert.ErrorIs(t, err, ErrInvalidTrade)
	acct, err := f.store.Accounts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Economy.StartingBalance-31+30, acct.Balance)

	stocks.rand = func() game.Rand { return &gametest.Rand{Floats: []float64{0.99}} }
	require.NoError(t, stocks.Tick(ctx))
	after, err := f.store.Stocks.Get(ctx, stock.ID)
	require.NoError(t, err)
	assert.True(t, after.CurrentPrice.GreaterThan(stock.CurrentPrice))
	assert.True(t, after.PreviousPrice.Equal(stock.CurrentPrice))
}

func TestLeaderboardRecomputeAndFetch(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	boards := NewLeaderboardService(f.store, noCache{}, 10)
	_, err := boards.Create(ctx, &model.Leaderboard{
		Name:            "Most games",
		LeaderboardType: model.LeaderboardDaily,
		Metric:          model.ScoreGamesPlayed,
	})
	require.NoError(t, err)

	_, err = boards.Create(ctx, &model.Leaderboard{Name: "Bad", LeaderboardType: "hourly", Metric: model.ScoreGamesPlayed})
	assert.ErrorIs(t, err, ErrUnknownBoard)

	f.wagers.rand = losing
	busy := f.register(t, "busy")
	idle := f.register(t, "idle")
	for i := 0; i < 3; i++ {
		_, err := f.wagers.Play(ctx, busy, engine.DiceWager{Bet: 10, Target: 2})
		require.NoError(t, err)
	}
	_, err = f.wagers.Play(ctx, idle, engine.DiceWager{Bet: 10, Target: 2})
	require.NoError(t, err)

	require.NoError(t, boards.Recompute(ctx))

	views, err := boards.Fetch(ctx, model.LeaderboardDaily, "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Entries, 2)
	assert.Equal(t, busy, views[0].Entries[0].AccountID)
	assert.Equal(t, int64(3), views[0].Entries[0].Score)
	assert.Equal(t, 1, views[0].Entries[0].Rank)
}

type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID, int) ([]model.LeaderboardEntry, bool, error) {
	return nil, false, nil
}

func (noCache) Set(context.Context, uuid.UUID, []model.LeaderboardEntry) error { return nil }

func TestStockPositionCannotOverflow(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	stock, err := f.store.Stocks.Upsert(ctx, "PNNY", "Penny Ltd", decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	stocks := NewStockService(f.store, 0.05)

	id := f.register(t, "whale")
	require.NoError(t, f.admin.SetInfiniteFunds(ctx, id, true))

	first, err := stocks.Trade(ctx, id, stock.ID, model.TradeBuy, 9_000_000_000_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000_000_000_000_000), first.Trade.TotalAmount)

	_, err = stocks.Trade(ctx, id, stock.ID, model.TradeBuy, 9_000_000_000_000_000_000)
	assert.ErrorIs(t, err, ErrInvalidTrade)

	h, err := f.store.Stocks.LockHolding(ctx, id, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9_000_000_000_000_000_000), h.Quantity)
}

func TestGrantXPPaysFinalLevelBonusOnce(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "climber")

	var up *LevelUp
	err := f.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		up, err = f.progression.GrantXP(ctx, tx, id, 250)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, up)
	// 250 XP jumps from level 1 to 3; only level 3 pays
	assert.Equal(t, 3, up.Level)
	assert.Equal(t, int64(150), up.Bonus)

	acct, err := f.store.Accounts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, acct.Level)
	assert.Equal(t, int64(250), acct.XP)
	assert.Equal(t, f.cfg.Economy.StartingBalance+150, acct.Balance)

	err = f.store.InTx(ctx, func(tx *repository.Store) error {
		again, err := f.progression.GrantXP(ctx, tx, id, 10)
		assert.Nil(t, again)
		return err
	})
	require.NoError(t, err)

	n, err := f.store.Transactions.CountByType(ctx, id, model.TxTypeLevelBonus)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, err := f.admin.Reconcile(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, rec.Drift)
}

func TestPromoteAdmins(t *testing.T) {
	f, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	id := f.register(t, "operator")
	// an email that looks like a configured username must not match
	_, err := f.accounts.Register(ctx, "bystander", "ghost@example.com", "password")
	require.NoError(t, err)

	n, err := f.admin.PromoteAdmins(ctx, []string{"OPERATOR", "ghost@example.com", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	acct, err := f.store.Accounts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, acct.IsAdmin())

	other, err := f.store.Accounts.GetByUsername(ctx, "bystander")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, other.Role)

	// already admin: nothing changes
	n, err = f.admin.PromoteAdmins(ctx, []string{"operator"})
	require.NoError(t, err)
	assert.Zero(t, n)
}
