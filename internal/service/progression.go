package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/config"
	"virtual-casino/internal/model"
	"virtual-casino/internal/repository"
)

// WagerEvent is one resolved wager as seen by progression.
type WagerEvent struct {
	AccountID  uuid.UUID
	GameType   string
	Bet        int64
	Payout     int64
	Multiplier float64
	Win        bool
	At         time.Time
}

// LevelUp reports a level transition and what it paid.
type LevelUp struct {
	Level  int   `json:"level"`
	Bonus  int64 `json:"bonus"`
	Titles int64 `json:"titles_unlocked"`
}

// Progress is the progression delta of one wager.
type Progress struct {
	XP                  int64       `json:"xp_gained"`
	LevelUp             *LevelUp    `json:"level_up,omitempty"`
	CompletedChallenges []uuid.UUID `json:"completed_challenges,omitempty"`
}

// Progression derives levels, challenge progress and tournament scores
// from resolved wagers. Its methods run on a transaction-bound Store.
type Progression struct {
	xpPerLevel int64
	levelBonus int64
	xpDivisor  int64
}

// NewProgression creates a Progression from the economy settings.
func NewProgression(cfg config.EconomyConfig) *Progression {
	p := &Progression{
		xpPerLevel: cfg.XPPerLevel,
		levelBonus: cfg.LevelBonus,
		xpDivisor:  cfg.XPDivisor,
	}
	if p.xpPerLevel <= 0 {
		p.xpPerLevel = 100
	}
	if p.xpDivisor <= 0 {
		p.xpDivisor = 10
	}
	return p
}

// LevelForXP returns floor(xp / perLevel) + 1.
func LevelForXP(xp, perLevel int64) int {
	if xp < 0 || perLevel <= 0 {
		return 1
	}
	return int(xp/perLevel) + 1
}

// LevelForXP applies the configured level size.
func (p *Progression) LevelForXP(xp int64) int {
	return LevelForXP(xp, p.xpPerLevel)
}

// LevelBonus is the one-time credit for reaching level.
func (p *Progression) LevelBonus(level int) int64 {
	return int64(level) * p.levelBonus
}

// XPForPayout returns floor(payout / divisor).
func (p *Progression) XPForPayout(payout int64) int64 {
	if payout <= 0 {
		return 0
	}
	return payout / p.xpDivisor
}

// AdvanceChallenge returns the new progress value of a challenge metric
// after one wager.
func AdvanceChallenge(metric string, progress int64, ev WagerEvent) int64 {
	switch metric {
	case model.MetricWinAmount:
		return progress + ev.Payout
	case model.MetricGamesPlayed:
		return progress + 1
	case model.MetricStreak:
		if ev.Win {
			return progress + 1
		}
		return 0
	case model.MetricMultiplier:
		if ev.Payout <= 0 {
			return progress
		}
		best := int64(math.Floor(ev.Multiplier*100 + 1e-9))
		return max(progress, best)
	default:
		return progress
	}
}

// GrantXP adds xp and, when the level rises, raises it, pays the bonus
// for the final level reached and unlocks titles. Skipped levels earn
// nothing extra.
func (p *Progression) GrantXP(ctx context.Context, tx *repository.Store, accountID uuid.UUID, xp int64) (*LevelUp, error) {
	if xp <= 0 {
		return nil, nil
	}
	total, err := tx.Accounts.AddXP(ctx, accountID, xp)
	if err != nil {
		return nil, err
	}

	level := p.LevelForXP(total)
	raised, err := tx.Accounts.RaiseLevel(ctx, accountID, level)
	if err != nil {
		return nil, err
	}
	if !raised {
		return nil, nil
	}

	up := &LevelUp{Level: level, Bonus: p.LevelBonus(level)}
	if up.Bonus > 0 {
		_, err := credit(ctx, tx, accountID, entry{
			Type:        model.TxTypeLevelBonus,
			Amount:      up.Bonus,
			Description: fmt.Sprintf("Reached level %d", level),
		})
		if err != nil {
			return nil, err
		}
	}

	up.Titles, err = tx.Titles.GrantUpTo(ctx, accountID, level)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", accountID.String()).
		Int("level", level).
		Int64("bonus", up.Bonus).
		Msg("Level up")
	return up, nil
}

// ApplyWager runs every progression rule for one resolved wager.
func (p *Progression) ApplyWager(ctx context.Context, tx *repository.Store, ev WagerEvent) (*Progress, error) {
	out := &Progress{XP: p.XPForPayout(ev.Payout)}

	up, err := p.GrantXP(ctx, tx, ev.AccountID, out.XP)
	if err != nil {
		return nil, err
	}
	out.LevelUp = up

	completed, err := p.advanceChallenges(ctx, tx, ev)
	if err != nil {
		return nil, err
	}
	out.CompletedChallenges = completed

	if _, err := tx.Tournaments.AddScore(ctx, ev.AccountID, ev.GameType, ev.Payout-ev.Bet, ev.At); err != nil {
		return nil, err
	}

	if ev.Payout > 0 {
		if err := tx.Clans.AddWinnings(ctx, ev.AccountID, ev.Payout); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (p *Progression) advanceChallenges(ctx context.Context, tx *repository.Store, ev WagerEvent) ([]uuid.UUID, error) {
	challenges, err := tx.Challenges.ActiveForGame(ctx, ev.GameType, ev.At)
	if err != nil {
		return nil, err
	}

	var completed []uuid.UUID
	for _, c := range challenges {
		prog, err := tx.Challenges.LockProgress(ctx, c.ID, ev.AccountID)
		if err != nil {
			return nil, err
		}
		if prog.IsCompleted() {
			continue
		}

		next := AdvanceChallenge(c.Metric, prog.Progress, ev)
		if next == prog.Progress {
			continue
		}
		prog.Progress = next
		if next >= c.TargetValue {
			at := ev.At
			prog.CompletedAt = &at
			completed = append(completed, c.ID)
		}
		if err := tx.Challenges.SaveProgress(ctx, prog); err != nil {
			return nil, err
		}
	}
	return completed, nil
}
