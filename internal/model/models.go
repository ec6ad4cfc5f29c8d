// Package model defines the data models for the casino ledger.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a registered player and their ledger state.
type Account struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Balance        int64      `json:"balance"`
	Level          int        `json:"level"`
	XP             int64      `json:"xp"`
	TotalWagered   int64      `json:"total_wagered"`
	TotalWon       int64      `json:"total_won"`
	GamesPlayed    int64      `json:"games_played"`
	Role           string     `json:"role"`
	IsTester       bool       `json:"is_tester"`
	InfiniteFunds  bool       `json:"infinite_funds"`
	AvatarURL      *string    `json:"avatar_url,omitempty"`
	LastDailyBonus *time.Time `json:"last_daily_bonus,omitempty"`
	BannedUntil    *time.Time `json:"banned_until,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsBanned reports whether the account is banned at the given instant.
func (a *Account) IsBanned(now time.Time) bool {
	return a.BannedUntil != nil && a.BannedUntil.After(now)
}

// CanAfford reports whether a debit of amount would keep the balance non-negative.
func (a *Account) CanAfford(amount int64) bool {
	return a.InfiniteFunds || a.Balance >= amount
}

// Transaction represents an append-only balance change record.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	GameType    *string   `json:"game_type,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial         = "initial"          // Starting balance on registration
	TxTypeBet             = "bet"              // Stake debited for a wager
	TxTypeWin             = "win"              // Payout credited for a wager
	TxTypeDailyBonus      = "daily_bonus"      // Daily login bonus
	TxTypeChallengeReward = "challenge_reward" // Claimed challenge coins
	TxTypeLevelBonus      = "level_bonus"      // Level-up bonus
	TxTypeTournamentEntry = "tournament_entry" // Tournament entry fee
	TxTypeTournamentPrize = "tournament_prize" // Tournament prize payout
	TxTypeCratePurchase   = "crate_purchase"   // Loot crate price
	TxTypeCrate           = "crate"            // Loot crate coin reward
	TxTypeClanCreation    = "clan_creation"    // Clan creation fee
	TxTypeStockBuy        = "stock_buy"        // Shares bought
	TxTypeStockSell       = "stock_sell"       // Shares sold
)

// GameHistory is the immutable record of one resolved wager.
type GameHistory struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	GameType   string          `json:"game_type"`
	BetAmount  int64           `json:"bet_amount"`
	WinAmount  int64           `json:"win_amount"`
	Multiplier *float64        `json:"multiplier,omitempty"`
	Result     json.RawMessage `json:"result"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Game session statuses.
const (
	SessionActive   = "active"
	SessionFinished = "finished"
)

// GameSession holds the server-side state of a multi-step wager
// (crash, mines, blackjack) between requests.
type GameSession struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	GameType  string          `json:"game_type"`
	BetAmount int64           `json:"bet_amount"`
	State     json.RawMessage `json:"-"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GameStats aggregates an account's history for one game type.
type GameStats struct {
	GameType     string `json:"game_type"`
	GamesPlayed  int64  `json:"games_played"`
	TotalWagered int64  `json:"total_wagered"`
	TotalWon     int64  `json:"total_won"`
	BiggestWin   int64  `json:"biggest_win"`
}
