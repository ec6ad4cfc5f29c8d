// Package service provides business logic implementations. Every
// balance-affecting operation runs inside one database transaction that
// locks the account row first.
package service

import "errors"

// Validation errors.
var (
	ErrInvalidAmount   = errors.New("invalid amount: must be positive")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotInstantGame  = errors.New("game is played through a session")
	ErrNotSessionGame  = errors.New("game resolves instantly")
	ErrUnknownCrate    = errors.New("unknown crate")
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrUnknownBoard    = errors.New("unknown leaderboard type")
	ErrInvalidTrade    = errors.New("invalid trade parameters")
	ErrInvalidClanName = errors.New("clan name must be 3-50 characters and tag 3-6 characters")
)

// Precondition errors.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrAccountBanned         = errors.New("account banned")
	ErrDailyAlreadyClaimed   = errors.New("daily bonus already claimed today")
	ErrChallengeNotCompleted = errors.New("challenge not completed")
	ErrAlreadyClaimed        = errors.New("reward already claimed")
	ErrTournamentStarted     = errors.New("tournament has already started")
	ErrTournamentFull        = errors.New("tournament is full")
	ErrAlreadyJoined         = errors.New("already joined this tournament")
	ErrTournamentNotEnded    = errors.New("tournament has not ended")
	ErrAlreadyFinalized      = errors.New("tournament already finalized")
	ErrAlreadyInClan         = errors.New("already in a clan")
	ErrClanTaken             = errors.New("clan name or tag already taken")
	ErrClanFull              = errors.New("clan is full")
	ErrClanPrivate           = errors.New("clan is invite-only")
	ErrNotInClan             = errors.New("not in a clan")
	ErrOwnerCannotLeave      = errors.New("clan owner cannot leave while members remain")
	ErrInsufficientShares    = errors.New("not enough shares to sell")
	ErrSessionActive         = errors.New("a round of this game is already in progress")
	ErrSessionOver           = errors.New("game session already finished")
	ErrAlreadyExists         = errors.New("username or email already registered")
)

// Lookup and credential errors.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrClanNotFound        = errors.New("clan not found")
	ErrStockNotFound       = errors.New("stock not found")
	ErrSessionNotFound     = errors.New("game session not found")
	ErrLeaderboardNotFound = errors.New("leaderboard not found")
	ErrInvalidCredentials  = errors.New("invalid username or password")
)
