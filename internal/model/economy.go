package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Challenge metrics.
const (
	MetricWinAmount   = "win_amount"
	MetricGamesPlayed = "games_played"
	MetricStreak      = "streak"
	MetricMultiplier  = "multiplier" // best multiplier, in hundredths
)

// Reward types shared by challenges and crates.
const (
	RewardCoins = "coins"
	RewardXP    = "xp"
)

// Challenge defines a progress target and its reward.
type Challenge struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ChallengeType string    `json:"challenge_type"`
	Metric        string    `json:"metric"`
	TargetValue   int64     `json:"target_value"`
	GameType      *string   `json:"game_type,omitempty"`
	RewardType    string    `json:"reward_type"`
	RewardAmount  int64     `json:"reward_amount"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	IsActive      bool      `json:"is_active"`
}

// ChallengeProgress is the per-account counter for one challenge.
type ChallengeProgress struct {
	ChallengeID   uuid.UUID  `json:"challenge_id"`
	AccountID     uuid.UUID  `json:"account_id"`
	Progress      int64      `json:"progress"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	RewardClaimed bool       `json:"reward_claimed"`
}

// IsCompleted reports whether the challenge target has been reached.
func (p *ChallengeProgress) IsCompleted() bool {
	return p.CompletedAt != nil
}

// ChallengeView is a challenge joined with the caller's progress.
type ChallengeView struct {
	Challenge
	Progress      int64      `json:"progress"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	RewardClaimed bool       `json:"reward_claimed"`
}

// Tournament statuses derived from the time window.
const (
	TournamentUpcoming  = "upcoming"
	TournamentActive    = "active"
	TournamentCompleted = "completed"
)

// Tournament defines a timed competition on one game type.
type Tournament struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	GameType         string    `json:"game_type"`
	EntryFee         int64     `json:"entry_fee"`
	PrizePool        int64     `json:"prize_pool"`
	MaxParticipants  int       `json:"max_participants"`
	ParticipantCount int       `json:"participant_count"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Finalized        bool      `json:"finalized"`
	CreatedAt        time.Time `json:"created_at"`
}

// Status derives the tournament phase at the given instant.
func (t *Tournament) Status(now time.Time) string {
	switch {
	case now.Before(t.StartTime):
		return TournamentUpcoming
	case now.Before(t.EndTime):
		return TournamentActive
	default:
		return TournamentCompleted
	}
}

// TournamentStanding is one participant row ordered by score.
type TournamentStanding struct {
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username"`
	Score     int64     `json:"score"`
	Rank      int       `json:"rank"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Clan member roles.
const (
	ClanRoleOwner  = "owner"
	ClanRoleMember = "member"
)

// Clan is a player group with a denormalized member counter.
type Clan struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Tag           string    `json:"tag"`
	Description   string    `json:"description"`
	OwnerID       uuid.UUID `json:"owner_id"`
	MemberCount   int       `json:"member_count"`
	MaxMembers    int       `json:"max_members"`
	IsPublic      bool      `json:"is_public"`
	TotalWinnings int64     `json:"total_winnings"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClanMember links an account to its clan.
type ClanMember struct {
	ClanID    uuid.UUID `json:"clan_id"`
	AccountID uuid.UUID `json:"account_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Stock is a simulated security with a random-walk price.
type Stock struct {
	ID            uuid.UUID       `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// UserStock is one account's holding of a stock.
type UserStock struct {
	AccountID   uuid.UUID       `json:"account_id"`
	StockID     uuid.UUID       `json:"stock_id"`
	Quantity    int64           `json:"quantity"`
	AvgBuyPrice decimal.Decimal `json:"avg_buy_price"`
}

// Holding is a portfolio line valued at the current price.
type Holding struct {
	UserStock
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// Stock trade sides.
const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

// StockTrade is the audit row of an executed trade.
type StockTrade struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	StockID       uuid.UUID       `json:"stock_id"`
	Type          string          `json:"type"`
	Quantity      int64           `json:"quantity"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	TotalAmount   int64           `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Leaderboard windows.
const (
	LeaderboardDaily   = "daily"
	LeaderboardWeekly  = "weekly"
	LeaderboardMonthly = "monthly"
	LeaderboardAllTime = "all_time"
)

// Leaderboard scoring metrics.
const (
	ScoreTotalWon     = "total_won"
	ScoreNetProfit    = "net_profit"
	ScoreBiggestWin   = "biggest_win"
	ScoreGamesPlayed  = "games_played"
	ScoreTotalWagered = "total_wagered"
)

// Leaderboard defines a ranking window and metric.
type Leaderboard struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	LeaderboardType string    `json:"leaderboard_type"`
	GameType        *string   `json:"game_type,omitempty"`
	Metric          string    `json:"metric"`
	PrizePool       int64     `json:"prize_pool"`
	IsActive        bool      `json:"is_active"`
}

// LeaderboardEntry is a materialized rank row.
type LeaderboardEntry struct {
	AccountID uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Level     int       `json:"level"`
	Score     int64     `json:"score"`
	Rank      int       `json:"rank"`
}

// LeaderboardView groups a leaderboard with its ranked entries.
type LeaderboardView struct {
	Leaderboard
	Entries []LeaderboardEntry `json:"entries"`
}

// Title is an unlockable achievement gated by level.
type Title struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	RequiredLevel int        `json:"required_level"`
	AcquiredAt    *time.Time `json:"acquired_at,omitempty"`
}
