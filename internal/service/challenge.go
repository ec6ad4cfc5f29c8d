package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/game"
	"virtual-casino/internal/model"
	"virtual-casino/internal/repository"
)

// ChallengeReward is what a claim paid.
type ChallengeReward struct {
	RewardType   string   `json:"reward_type"`
	RewardAmount int64    `json:"reward_amount"`
	Balance      int64    `json:"balance"`
	LevelUp      *LevelUp `json:"level_up,omitempty"`
}

// ChallengeService lists challenges and pays their rewards.
type ChallengeService struct {
	store       *repository.Store
	progression *Progression
	now         func() time.Time
}

// NewChallengeService creates a new ChallengeService instance.
func NewChallengeService(store *repository.Store, progression *Progression) *ChallengeService {
	return &ChallengeService{store: store, progression: progression, now: time.Now}
}

// List returns running challenges with the caller's progress. An empty
// challengeType matches all.
func (s *ChallengeService) List(ctx context.Context, accountID uuid.UUID, challengeType string) ([]*model.ChallengeView, error) {
	return s.store.Challenges.ListWithProgress(ctx, accountID, challengeType, s.now())
}

// Claim pays a completed challenge's reward exactly once.
func (s *ChallengeService) Claim(ctx context.Context, accountID, challengeID uuid.UUID) (*ChallengeReward, error) {
	now := s.now()
	var reward *ChallengeReward
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := lockPlayer(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		c, err := tx.Challenges.Get(ctx, challengeID)
		if err != nil {
			return notFound(err, ErrChallengeNotFound)
		}

		prog, err := tx.Challenges.LockProgress(ctx, challengeID, accountID)
		if err != nil {
			return err
		}
		if !prog.IsCompleted() {
			return ErrChallengeNotCompleted
		}
		if prog.RewardClaimed {
			return ErrAlreadyClaimed
		}
		ok, err := tx.Challenges.MarkClaimed(ctx, challengeID, accountID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyClaimed
		}

		reward = &ChallengeReward{RewardType: c.RewardType, RewardAmount: c.RewardAmount, Balance: acct.Balance}
		if c.RewardAmount == 0 {
			return nil
		}
		switch c.RewardType {
		case model.RewardXP:
			reward.LevelUp, err = s.progression.GrantXP(ctx, tx, accountID, c.RewardAmount)
			if err != nil {
				return err
			}
			if reward.LevelUp != nil {
				reward.Balance, err = balanceOf(ctx, tx, accountID)
			}
			return err
		default:
			reward.Balance, err = credit(ctx, tx, accountID, entry{
				Type:        model.TxTypeChallengeReward,
				Amount:      c.RewardAmount,
				Description: "Challenge reward: " + c.Name,
			})
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", accountID.String()).
		Str("challenge_id", challengeID.String()).
		Str("reward_type", reward.RewardType).
		Int64("reward", reward.RewardAmount).
		Msg("Challenge reward claimed")
	return reward, nil
}

// Create defines a new challenge.
func (s *ChallengeService) Create(ctx context.Context, c *model.Challenge) (*model.Challenge, error) {
	if err := validateChallenge(c); err != nil {
		return nil, err
	}
	return s.store.Challenges.Create(ctx, c)
}

func validateChallenge(c *model.Challenge) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	switch c.Metric {
	case model.MetricWinAmount, model.MetricGamesPlayed, model.MetricStreak, model.MetricMultiplier:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMetric, c.Metric)
	}
	if c.TargetValue <= 0 {
		return fmt.Errorf("%w: target must be positive", ErrInvalidInput)
	}
	if c.RewardType == "" {
		c.RewardType = model.RewardCoins
	}
	if c.RewardType != model.RewardCoins && c.RewardType != model.RewardXP {
		return fmt.Errorf("%w: reward type must be coins or xp", ErrInvalidInput)
	}
	if c.RewardAmount < 0 {
		return ErrInvalidAmount
	}
	if c.GameType != nil {
		if _, ok := game.ParseKind(*c.GameType); !ok {
			return fmt.Errorf("%w: %q", game.ErrUnknownGame, *c.GameType)
		}
	}
	if !c.EndTime.After(c.StartTime) {
		return fmt.Errorf("%w: end time must follow start time", ErrInvalidInput)
	}
	if c.ChallengeType == "" {
		c.ChallengeType = "daily"
	}
	return nil
}

func balanceOf(ctx context.Context, tx *repository.Store, accountID uuid.UUID) (int64, error) {
	acct, err := tx.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}
