// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

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

	"virtual-casino/internal/model"
	"virtual-casino/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container with the schema applied.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
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

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func createAccount(t *testing.T, s *Store, name string, balance int64) *model.Account {
	t.Helper()
	a, err := s.Accounts.Create(context.Background(), &model.Account{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Balance:      balance,
	})
	require.NoError(t, err)
	return a
}

// ============================================================================
// AccountRepository Tests
// ============================================================================

func TestAccountRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()

	a := createAccount(t, s, "alice", 1000)
	assert.Equal(t, int64(1000), a.Balance)
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, model.RoleUser, a.Role)

	got, err := s.Accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	byLogin, err := s.Accounts.GetByLogin(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byLogin.ID)

	_, err = s.Accounts.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRepository_DuplicateUsernameCaseInsensitive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	createAccount(t, s, "bob", 0)

	_, err := s.Accounts.Create(context.Background(), &model.Account{
		Username: "BOB", Email: "other@example.com", PasswordHash: "x",
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAccountRepository_DebitCredit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "carol", 100)

	balance, err := s.Accounts.Debit(ctx, a.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	_, err = s.Accounts.Debit(ctx, a.ID, 41)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err = s.Accounts.Credit(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	_, err = s.Accounts.Debit(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRepository_InfiniteFundsKeepsBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "dave", 5)
	require.NoError(t, s.Accounts.SetInfiniteFunds(ctx, a.ID, true))

	balance, err := s.Accounts.Debit(ctx, a.ID, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	balance, err = s.Accounts.Credit(ctx, a.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestAccountRepository_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "erin", 100)

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(tx *Store) error {
				if _, err := tx.Accounts.Lock(ctx, a.ID); err != nil {
					return err
				}
				_, err := tx.Accounts.Debit(ctx, a.ID, 100)
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	got, err := s.Accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
}

func TestAccountRepository_ClaimDailyOncePerDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "frank", 0)

	day := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	ok, err := s.Accounts.ClaimDaily(ctx, a.ID, day)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Accounts.ClaimDaily(ctx, a.ID, day.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Accounts.ClaimDaily(ctx, a.ID, day.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccountRepository_RaiseLevelIsMonotone(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "gina", 0)

	changed, err := s.Accounts.RaiseLevel(ctx, a.ID, 3)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Accounts.RaiseLevel(ctx, a.ID, 3)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.Accounts.RaiseLevel(ctx, a.ID, 2)
	require.NoError(t, err)
	assert.False(t, changed)
}

// ============================================================================
// Transaction and history Tests
// ============================================================================

func TestTransactionRepository_AppendAndSum(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "hank", 0)

	dice := "dice"
	for _, in := range []NewTx{
		{AccountID: a.ID, Type: model.TxTypeInitial, Amount: 1000},
		{AccountID: a.ID, Type: model.TxTypeBet, Amount: -100, GameType: &dice},
		{AccountID: a.ID, Type: model.TxTypeWin, Amount: 180, GameType: &dice},
	} {
		_, err := s.Transactions.Append(ctx, in)
		require.NoError(t, err)
	}

	sum, err := s.Transactions.Sum(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1080), sum)

	txs, err := s.Transactions.ListByAccount(ctx, a.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	n, err := s.Transactions.CountByType(ctx, a.ID, model.TxTypeBet)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "iris", 100)

	err := s.InTx(ctx, func(tx *Store) error {
		if _, err := tx.Accounts.Debit(ctx, a.ID, 50); err != nil {
			return err
		}
		return ErrConflict
	})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.Accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
}

func TestHistoryRepository_StatsByGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "jack", 0)

	for _, h := range []model.GameHistory{
		{AccountID: a.ID, GameType: "dice", BetAmount: 10, WinAmount: 0},
		{AccountID: a.ID, GameType: "dice", BetAmount: 10, WinAmount: 54},
		{AccountID: a.ID, GameType: "slots", BetAmount: 5, WinAmount: 25},
	} {
		_, err := s.History.Record(ctx, &h)
		require.NoError(t, err)
	}

	stats, err := s.History.StatsByGame(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, model.GameStats{GameType: "dice", GamesPlayed: 2, TotalWagered: 20, TotalWon: 54, BiggestWin: 54}, stats[0])

	recent, err := s.History.ListByAccount(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

// ============================================================================
// Session Tests
// ============================================================================

func TestSessionRepository_OneActivePerGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "kate", 0)

	first, err := s.Sessions.Create(ctx, a.ID, "crash", 10, []byte(`{"crash_point":200}`))
	require.NoError(t, err)

	_, err = s.Sessions.Create(ctx, a.ID, "crash", 10, []byte(`{}`))
	assert.ErrorIs(t, err, ErrSessionActive)

	_, err = s.Sessions.Create(ctx, a.ID, "mines", 10, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, s.Sessions.Save(ctx, first.ID, []byte(`{"crash_point":200}`), model.SessionFinished))
	_, err = s.Sessions.Create(ctx, a.ID, "crash", 10, []byte(`{}`))
	require.NoError(t, err)

	active, err := s.Sessions.ListActive(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

// ============================================================================
// Challenge, tournament and clan Tests
// ============================================================================

func TestChallengeRepository_ProgressAndClaim(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "liam", 0)
	now := time.Now().UTC()

	c, err := s.Challenges.Create(ctx, &model.Challenge{
		Name: "Play 3", ChallengeType: "daily", Metric: model.MetricGamesPlayed, TargetValue: 3,
		RewardType: model.RewardCoins, RewardAmount: 100,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), IsActive: true,
	})
	require.NoError(t, err)

	active, err := s.Challenges.ActiveForGame(ctx, "dice", now)
	require.NoError(t, err)
	require.Len(t, active, 1)

	p, err := s.Challenges.LockProgress(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.Zero(t, p.Progress)

	claimed, err := s.Challenges.MarkClaimed(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	done := now
	p.Progress = 3
	p.CompletedAt = &done
	require.NoError(t, s.Challenges.SaveProgress(ctx, p))

	// a later save keeps the first completion time
	later := now.Add(time.Minute)
	p.Progress = 4
	p.CompletedAt = &later
	require.NoError(t, s.Challenges.SaveProgress(ctx, p))

	claimed, err = s.Challenges.MarkClaimed(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = s.Challenges.MarkClaimed(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	views, err := s.Challenges.ListWithProgress(ctx, a.ID, "", now)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(4), views[0].Progress)
	assert.True(t, views[0].RewardClaimed)
	require.NotNil(t, views[0].CompletedAt)
	assert.WithinDuration(t, now, *views[0].CompletedAt, time.Second)
}

func TestTournamentRepository_CapacityAndScore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	tr, err := s.Tournaments.Create(ctx, &model.Tournament{
		Name: "Dice cup", GameType: "dice", MaxParticipants: 1,
		StartTime: now.Add(-time.Minute), EndTime: now.Add(time.Hour),
	})
	require.NoError(t, err)

	a := createAccount(t, s, "mia", 0)
	b := createAccount(t, s, "noah", 0)

	require.NoError(t, s.Tournaments.AddParticipant(ctx, tr.ID, a.ID))
	assert.ErrorIs(t, s.InTx(ctx, func(tx *Store) error {
		return tx.Tournaments.AddParticipant(ctx, tr.ID, a.ID)
	}), ErrAlreadyExists)
	assert.ErrorIs(t, s.InTx(ctx, func(tx *Store) error {
		return tx.Tournaments.AddParticipant(ctx, tr.ID, b.ID)
	}), ErrConflict)

	n, err := s.Tournaments.AddScore(ctx, a.ID, "dice", 50, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.Tournaments.AddScore(ctx, a.ID, "slots", 50, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	standings, err := s.Tournaments.Standings(ctx, tr.ID, 10)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, int64(50), standings[0].Score)
	assert.Equal(t, 1, standings[0].Rank)

	ok, err := s.Tournaments.MarkFinalized(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Tournaments.MarkFinalized(ctx, tr.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClanRepository_Membership(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	owner := createAccount(t, s, "olga", 0)
	other := createAccount(t, s, "pete", 0)

	clan, err := s.Clans.Create(ctx, &model.Clan{Name: "High Rollers", Tag: "HIGH", OwnerID: owner.ID, MaxMembers: 50, IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, 1, clan.MemberCount)

	err = s.InTx(ctx, func(tx *Store) error {
		_, err := tx.Clans.Create(ctx, &model.Clan{Name: "high rollers", Tag: "ZZZ", OwnerID: other.ID, MaxMembers: 50})
		return err
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, s.Clans.AddMember(ctx, clan.ID, other.ID, model.ClanRoleMember))
	got, m, err := s.Clans.Membership(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, clan.ID, got.ID)
	assert.Equal(t, model.ClanRoleMember, m.Role)
	assert.Equal(t, 2, got.MemberCount)

	require.NoError(t, s.Clans.AddWinnings(ctx, other.ID, 75))
	require.NoError(t, s.Clans.RemoveMember(ctx, clan.ID, other.ID))

	got, err = s.Clans.Get(ctx, clan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MemberCount)
	assert.Equal(t, int64(75), got.TotalWinnings)

	_, _, err = s.Clans.Membership(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// Stock, leaderboard and title Tests
// ============================================================================

func TestStockRepository_HoldingsAndPortfolio(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "quinn", 0)

	st, err := s.Stocks.Upsert(ctx, "CSNO", "Casino Corp", decimal.NewFromInt(100))
	require.NoError(t, err)

	require.NoError(t, s.Stocks.SaveHolding(ctx, &model.UserStock{
		AccountID: a.ID, StockID: st.ID, Quantity: 10, AvgBuyPrice: decimal.NewFromInt(100),
	}))
	require.NoError(t, s.Stocks.SetPrice(ctx, st.ID, decimal.NewFromInt(120), decimal.NewFromInt(20)))

	holdings, err := s.Stocks.Portfolio(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.True(t, holdings[0].MarketValue.Equal(decimal.NewFromInt(1200)))
	assert.True(t, holdings[0].UnrealizedPnL.Equal(decimal.NewFromInt(200)))

	h, err := s.Stocks.LockHolding(ctx, a.ID, st.ID)
	require.NoError(t, err)
	h.Quantity = 0
	require.NoError(t, s.Stocks.SaveHolding(ctx, h))

	holdings, err = s.Stocks.Portfolio(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestLeaderboardRepository_AggregateAndReplace(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "rita", 0)
	b := createAccount(t, s, "sam", 0)

	for _, h := range []model.GameHistory{
		{AccountID: a.ID, GameType: "dice", BetAmount: 10, WinAmount: 100},
		{AccountID: b.ID, GameType: "dice", BetAmount: 10, WinAmount: 300},
		{AccountID: b.ID, GameType: "slots", BetAmount: 10, WinAmount: 0},
	} {
		_, err := s.History.Record(ctx, &h)
		require.NoError(t, err)
	}

	entries, err := s.Leaderboards.Aggregate(ctx, model.ScoreGamesPlayed, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].AccountID)
	assert.Equal(t, int64(2), entries[0].Score)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)

	slots := "slots"
	entries, err = s.Leaderboards.Aggregate(ctx, model.ScoreNetProfit, &slots, nil, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-10), entries[0].Score)

	lb, err := s.Leaderboards.Create(ctx, &model.Leaderboard{
		Name: "Biggest wins", LeaderboardType: model.LeaderboardAllTime, Metric: model.ScoreBiggestWin, IsActive: true,
	})
	require.NoError(t, err)

	entries, err = s.Leaderboards.Aggregate(ctx, lb.Metric, nil, nil, 10)
	require.NoError(t, err)
	require.NoError(t, s.Leaderboards.ReplaceEntries(ctx, lb.ID, entries))

	stored, err := s.Leaderboards.Entries(ctx, lb.ID, 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "sam", stored[0].Username)
	assert.Equal(t, int64(300), stored[0].Score)

	_, err = s.Leaderboards.Create(ctx, &model.Leaderboard{Name: "x", LeaderboardType: "daily", Metric: "luck"})
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestTitleRepository_GrantUpTo(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewStore(pool)
	ctx := context.Background()
	a := createAccount(t, s, "tina", 0)

	for _, tt := range []model.Title{
		{Name: "Rookie", RequiredLevel: 1},
		{Name: "Regular", RequiredLevel: 5},
		{Name: "High Roller", RequiredLevel: 10},
	} {
		_, err := s.Titles.Upsert(ctx, &tt)
		require.NoError(t, err)
	}

	n, err := s.Titles.GrantUpTo(ctx, a.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Titles.GrantUpTo(ctx, a.ID, 5)
	require.NoError(t, err)
	assert.Zero(t, n)

	titles, err := s.Titles.ListForAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, titles, 3)
	assert.NotNil(t, titles[0].AcquiredAt)
	assert.NotNil(t, titles[1].AcquiredAt)
	assert.Nil(t, titles[2].AcquiredAt)
}
