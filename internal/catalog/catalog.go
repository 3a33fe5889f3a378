// Package catalog builds the configured variants and hands them out by key.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/variants"
	"github.com/xtding233/outcome-engine/internal/variants/bull"
	"github.com/xtding233/outcome-engine/internal/variants/dice"
	"github.com/xtding233/outcome-engine/internal/variants/wheel"
)

var ErrUnknownVariant = errors.New("unknown variant")

// Entry is a built variant with the parameters it came from.
type Entry struct {
	Variant variants.Variant
	Params  game.EngineParams
}

// Build constructs the variant p describes.
func Build(p game.EngineParams, o variants.Options) (variants.Variant, error) {
	switch p.Kind {
	case game.KindDice:
		return built(dice.New(p, o))
	case game.KindBull:
		return built(bull.New(p, o))
	case game.KindWheel:
		return built(wheel.New(p, o))
	}
	return nil, fmt.Errorf("%w: kind %q", ErrUnknownVariant, p.Kind)
}

// built keeps a failed constructor from leaking a typed nil.
func built[V variants.Variant](v V, err error) (variants.Variant, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Catalog holds every variant of the configured games: the game itself and
// each of its profiles.
type Catalog struct {
	Resolver game.Resolver
	Games    []string
	Options  variants.Options
	Logger   zerolog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

func New(r game.Resolver, games []string, o variants.Options, log zerolog.Logger) *Catalog {
	return &Catalog{Resolver: r, Games: games, Options: o, Logger: log, entries: map[string]Entry{}}
}

// profiler is implemented by *game.Loader.
type profiler interface {
	Profiles(game string) []string
}

// Reload rebuilds every variant. On error the previous set stays in place.
func (c *Catalog) Reload() error {
	next := make(map[string]Entry)
	for _, g := range c.Games {
		profiles := []string{""}
		if pr, ok := c.Resolver.(profiler); ok {
			profiles = append(profiles, pr.Profiles(g)...)
		}
		for _, prof := range profiles {
			e, err := c.resolve(g, prof, game.Overrides{})
			if err != nil {
				return err
			}
			next[e.Params.Key] = e
		}
	}
	c.mu.Lock()
	c.entries = next
	c.mu.Unlock()
	c.Logger.Info().Strs("variants", c.Keys()).Msg("catalog loaded")
	return nil
}

func (c *Catalog) resolve(g, profile string, o game.Overrides) (Entry, error) {
	_, p, err := c.Resolver.Resolve(g, profile, o)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", game.VariantKey(g, profile), err)
	}
	v, err := Build(p, c.Options)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", p.Key, err)
	}
	return Entry{Variant: v, Params: p}, nil
}

// Get returns the variant built for key.
func (c *Catalog) Get(key string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownVariant, key)
	}
	return e, nil
}

// Keys lists the loaded variant keys, sorted.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fresh builds a throwaway copy of key with overrides applied, for
// calibration runs that must not disturb the live source.
func (c *Catalog) Fresh(key string, o game.Overrides) (Entry, error) {
	e, err := c.Get(key)
	if err != nil {
		return Entry{}, err
	}
	opts := c.Options
	opts.RNG = nil
	_, p, err := c.Resolver.Resolve(e.Params.Game, e.Params.Profile, o)
	if err != nil {
		return Entry{}, err
	}
	v, err := Build(p, opts)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Variant: v, Params: p}, nil
}
