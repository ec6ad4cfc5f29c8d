package game

import (
	"fmt"
	"sync"
)

// Info is the public catalog entry of a game.
type Info struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinBet      int64  `json:"min_bet"`
	MaxBet      int64  `json:"max_bet"`
	Session     bool   `json:"session"`
}

// Registry manages game registration and lookup.
// It is safe for concurrent use.
type Registry struct {
	games map[Kind]Game
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[Kind]Game),
	}
}

// Register adds a game to the registry, replacing any game of the same kind.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if _, ok := ParseKind(string(g.Kind())); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGame, g.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Kind()] = g
	return nil
}

// Get retrieves a game by kind.
func (r *Registry) Get(kind Kind) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[kind]
	return g, ok
}

// Catalog returns the registered games in display order.
func (r *Registry) Catalog() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.games))
	for _, k := range Kinds() {
		g, ok := r.games[k]
		if !ok {
			continue
		}
		l := g.Limits()
		infos = append(infos, Info{
			Kind:        k,
			Name:        g.Name(),
			Description: g.Description(),
			MinBet:      l.MinBet,
			MaxBet:      l.MaxBet,
			Session:     k.IsSession(),
		})
	}
	return infos
}
