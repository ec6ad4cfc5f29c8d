package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/model"
	"virtual-casino/internal/repository"
)

// Membership is a clan seen from one member.
type Membership struct {
	Clan *model.Clan `json:"clan"`
	Role string      `json:"role"`
}

// ClanService manages player groups.
type ClanService struct {
	store       *repository.Store
	creationFee int64
	maxMembers  int
	now         func() time.Time
}

// NewClanService creates a new ClanService instance.
func NewClanService(store *repository.Store, creationFee int64, maxMembers int) *ClanService {
	if maxMembers <= 0 {
		maxMembers = 50
	}
	return &ClanService{store: store, creationFee: creationFee, maxMembers: maxMembers, now: time.Now}
}

// ClanInput is the creation request.
type ClanInput struct {
	Name        string `json:"name"`
	Tag         string `json:"tag"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
}

// Create founds a clan, charging the creation fee. The tag is stored
// upper-case; name and tag are unique regardless of case.
func (s *ClanService) Create(ctx context.Context, accountID uuid.UUID, in ClanInput) (*model.Clan, error) {
	name := strings.TrimSpace(in.Name)
	tag := strings.ToUpper(strings.TrimSpace(in.Tag))
	if n := utf8.RuneCountInString(name); n < 3 || n > 50 {
		return nil, ErrInvalidClanName
	}
	if n := utf8.RuneCountInString(tag); n < 3 || n > 6 {
		return nil, ErrInvalidClanName
	}
	public := true
	if in.IsPublic != nil {
		public = *in.IsPublic
	}

	now := s.now()
	var clan *model.Clan
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := lockPlayer(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		if _, _, err := tx.Clans.Membership(ctx, accountID); err == nil {
			return ErrAlreadyInClan
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if s.creationFee > 0 {
			if !acct.CanAfford(s.creationFee) {
				return ErrInsufficientBalance
			}
			_, err := debit(ctx, tx, accountID, entry{
				Type:        model.TxTypeClanCreation,
				Amount:      s.creationFee,
				Description: "Clan creation: " + name,
			})
			if err != nil {
				return err
			}
		}

		clan, err = tx.Clans.Create(ctx, &model.Clan{
			Name:        name,
			Tag:         tag,
			Description: strings.TrimSpace(in.Description),
			OwnerID:     accountID,
			MaxMembers:  s.maxMembers,
			IsPublic:    public,
		})
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			return ErrClanTaken
		case errors.Is(err, repository.ErrConflict):
			return ErrAlreadyInClan
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("account_id", accountID.String()).Str("clan", clan.Tag).Msg("Clan created")
	return clan, nil
}

// Join adds the account to a public clan with free capacity.
func (s *ClanService) Join(ctx context.Context, accountID, clanID uuid.UUID) (*model.Clan, error) {
	now := s.now()
	var clan *model.Clan
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := lockPlayer(ctx, tx, accountID, now); err != nil {
			return err
		}
		if _, _, err := tx.Clans.Membership(ctx, accountID); err == nil {
			return ErrAlreadyInClan
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		c, err := tx.Clans.Lock(ctx, clanID)
		if err != nil {
			return notFound(err, ErrClanNotFound)
		}
		if !c.IsPublic {
			return ErrClanPrivate
		}
		if c.MemberCount >= c.MaxMembers {
			return ErrClanFull
		}
		if err := tx.Clans.AddMember(ctx, clanID, accountID, model.ClanRoleMember); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyInClan
			}
			return err
		}
		c.MemberCount++
		clan = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clan, nil
}

// Leave removes the account from its clan. The owner may leave only as
// the last member, which disbands the clan.
func (s *ClanService) Leave(ctx context.Context, accountID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx *repository.Store) error {
		current, member, err := tx.Clans.Membership(ctx, accountID)
		if err != nil {
			return notFound(err, ErrNotInClan)
		}
		c, err := tx.Clans.Lock(ctx, current.ID)
		if err != nil {
			return notFound(err, ErrNotInClan)
		}

		if member.Role == model.ClanRoleOwner {
			if c.MemberCount > 1 {
				return ErrOwnerCannotLeave
			}
			log.Info().Str("clan", c.Tag).Msg("Clan disbanded")
			return tx.Clans.Delete(ctx, c.ID)
		}
		return tx.Clans.RemoveMember(ctx, c.ID, accountID)
	})
}

// Mine returns the caller's clan and role.
func (s *ClanService) Mine(ctx context.Context, accountID uuid.UUID) (*Membership, error) {
	c, m, err := s.store.Clans.Membership(ctx, accountID)
	if err != nil {
		return nil, notFound(err, ErrNotInClan)
	}
	return &Membership{Clan: c, Role: m.Role}, nil
}

// List returns public clans, richest first.
func (s *ClanService) List(ctx context.Context) ([]*model.Clan, error) {
	return s.store.Clans.List(ctx, 50)
}
