// Package blackjack implements single-deck blackjack against a dealer
// who stands on all 17s.
package blackjack

import (
	"fmt"

	"virtual-casino/internal/game"
)

// Payout multipliers applied to the stake.
const (
	NaturalMultiplier = 2.5
	WinMultiplier     = 2.0
	PushMultiplier    = 1.0
)

const (
	blackjack   = 21
	dealerStand = 17
	deckSize    = 52
)

// Round results.
const (
	ResultBlackjack       = "blackjack"
	ResultWin             = "win"
	ResultDealerBust      = "dealer_bust"
	ResultPush            = "push"
	ResultLose            = "lose"
	ResultBust            = "bust"
	ResultDealerBlackjack = "dealer_blackjack"
)

// ErrRoundOver is returned when acting on a finished round.
var ErrRoundOver = fmt.Errorf("%w: round is already over", game.ErrWrongPhase)

var suits = [4]string{"spades", "hearts", "diamonds", "clubs"}

// Card is a playing card; Rank is 1 (ace) through 13 (king).
type Card struct {
	Rank int    `json:"rank"`
	Suit string `json:"suit"`
}

// Value returns the card's face value with aces counted as 11.
func (c Card) Value() int {
	switch {
	case c.Rank == 1:
		return 11
	case c.Rank >= 10:
		return 10
	default:
		return c.Rank
	}
}

// Score totals a hand, collapsing aces from 11 to 1 while the hand busts.
func Score(cards []Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.Value()
		if c.Rank == 1 {
			aces++
		}
	}
	for total > blackjack && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a two-card 21.
func IsNatural(cards []Card) bool {
	return len(cards) == 2 && Score(cards) == blackjack
}

// Round is the persisted state of one hand.
type Round struct {
	Deck   []Card `json:"deck"`
	Player []Card `json:"player"`
	Dealer []Card `json:"dealer"`
	Result string `json:"result,omitempty"` // empty while the hand is live
}

// Over reports whether the hand is settled.
func (r *Round) Over() bool { return r.Result != "" }

func (r *Round) draw() Card {
	c := r.Deck[0]
	r.Deck = r.Deck[1:]
	return c
}

// Result is the reveal data of a settled hand.
type Result struct {
	Player      []Card `json:"player"`
	Dealer      []Card `json:"dealer"`
	PlayerScore int    `json:"player_score"`
	DealerScore int    `json:"dealer_score"`
	Result      string `json:"result"`
}

// View is the client-visible state of a live hand; the dealer's hole
// card stays hidden.
type View struct {
	Player      []Card `json:"player"`
	PlayerScore int    `json:"player_score"`
	DealerUp    Card   `json:"dealer_up"`
}

// Game implements game.Game for blackjack.
type Game struct {
	limits game.Limits
}

// Config holds configuration for blackjack.
type Config struct {
	Limits game.Limits
}

// New creates a blackjack game.
func New(cfg *Config) *Game {
	limits := game.DefaultLimits()
	if cfg != nil {
		limits = cfg.Limits.OrDefault()
	}
	return &Game{limits: limits}
}

// Kind returns the game type identifier.
func (g *Game) Kind() game.Kind { return game.KindBlackjack }

// Name returns the game's display name.
func (g *Game) Name() string { return "Blackjack" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Beat the dealer to 21; naturals pay 2.5x, dealer stands on 17"
}

// Limits returns the accepted bet bounds.
func (g *Game) Limits() game.Limits { return g.limits }

// NewDeck returns a shuffled 52-card deck.
func NewDeck(rng game.Rand) []Card {
	deck := make([]Card, 0, deckSize)
	for _, s := range suits {
		for rank := 1; rank <= 13; rank++ {
			deck = append(deck, Card{Rank: rank, Suit: s})
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// Deal validates the wager, shuffles and deals two cards each. The
// returned outcome is non-nil when either side holds a natural.
func (g *Game) Deal(bet int64, rng game.Rand) (*Round, *game.Outcome, error) {
	if err := g.limits.Validate(bet); err != nil {
		return nil, nil, err
	}
	r := &Round{Deck: NewDeck(rng)}
	return r, g.Begin(r, bet), nil
}

// Begin deals the opening cards from the round's deck and settles
// naturals.
func (g *Game) Begin(r *Round, bet int64) *game.Outcome {
	r.Player = append(r.Player, r.draw())
	r.Dealer = append(r.Dealer, r.draw())
	r.Player = append(r.Player, r.draw())
	r.Dealer = append(r.Dealer, r.draw())

	player, dealer := IsNatural(r.Player), IsNatural(r.Dealer)
	switch {
	case player && dealer:
		return settle(r, bet, ResultPush)
	case player:
		return settle(r, bet, ResultBlackjack)
	case dealer:
		return settle(r, bet, ResultDealerBlackjack)
	}
	return nil
}

// Hit draws a card for the player. Busting loses; reaching 21 stands
// automatically.
func (g *Game) Hit(r *Round, bet int64) (*game.Outcome, error) {
	if r.Over() {
		return nil, ErrRoundOver
	}
	r.Player = append(r.Player, r.draw())
	switch score := Score(r.Player); {
	case score > blackjack:
		return settle(r, bet, ResultBust), nil
	case score == blackjack:
		return g.Stand(r, bet)
	}
	return nil, nil
}

// Stand plays out the dealer's hand and settles.
func (g *Game) Stand(r *Round, bet int64) (*game.Outcome, error) {
	if r.Over() {
		return nil, ErrRoundOver
	}
	for Score(r.Dealer) < dealerStand {
		r.Dealer = append(r.Dealer, r.draw())
	}

	player, dealer := Score(r.Player), Score(r.Dealer)
	switch {
	case dealer > blackjack:
		return settle(r, bet, ResultDealerBust), nil
	case player > dealer:
		return settle(r, bet, ResultWin), nil
	case player == dealer:
		return settle(r, bet, ResultPush), nil
	default:
		return settle(r, bet, ResultLose), nil
	}
}

// View returns the client-visible state of a live hand.
func (g *Game) View(r *Round) View {
	v := View{Player: r.Player, PlayerScore: Score(r.Player)}
	if len(r.Dealer) > 0 {
		v.DealerUp = r.Dealer[0]
	}
	return v
}

func settle(r *Round, bet int64, result string) *game.Outcome {
	r.Result = result
	detail := Result{
		Player:      r.Player,
		Dealer:      r.Dealer,
		PlayerScore: Score(r.Player),
		DealerScore: Score(r.Dealer),
		Result:      result,
	}
	switch result {
	case ResultBlackjack:
		return game.Resolve(bet, NaturalMultiplier, detail)
	case ResultWin, ResultDealerBust:
		return game.Resolve(bet, WinMultiplier, detail)
	case ResultPush:
		return game.Resolve(bet, PushMultiplier, detail)
	default:
		return game.Lose(detail)
	}
}
