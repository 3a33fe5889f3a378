// Package variants turns an engine rule table, sampler and rarity policy
// into a playable game.
package variants

import (
	"fmt"

	"github.com/xtding233/outcome-engine/internal/engine"
)

// Round is one finished draw, before any session bookkeeping.
type Round struct {
	Variant    string             `json:"variant"`
	Tier       string             `json:"tier,omitempty"`
	Draw       any                `json:"draw"`
	Outcome    engine.Outcome     `json:"outcome"`
	Classified bool               `json:"classified"`
	Summary    string             `json:"summary"`
	Stats      engine.SampleStats `json:"stats"`
}

// Variant is a configured game.
type Variant interface {
	Key() string
	Kind() string
	// Roll lets the rarity policy pick the tier.
	Roll() (Round, error)
	// RollTier forces a tier; zero-probability tiers are rejected with
	// engine.ErrIllegalAttempt.
	RollTier(tier string) (Round, error)
	Outcomes() []engine.Outcome
	Tiers() []engine.Tier
}

// TierPolicy chooses and authorizes tiers. *engine.Policy implements it.
type TierPolicy interface {
	ChooseTier(rng engine.RandomSource) string
	Tier(name string) (engine.Tier, bool)
	Request(name string) (engine.Tier, error)
	Tiers() []engine.Tier
}

// Game is the generic Variant over draws of type D.
type Game[D any] struct {
	ID     string
	Family string

	Sampler     *engine.Sampler[D]
	Policy      TierPolicy
	MaxAttempts int

	// Classifiable reports whether a draw is eligible for the rule table;
	// nil means always.
	Classifiable func(D) bool
	// Verify rejects draws the configuration says cannot happen.
	Verify func(D, engine.Outcome) error
	// Describe renders a one-line summary; nil uses the outcome name.
	Describe func(D, engine.Outcome, bool) string
}

var _ Variant = (*Game[int])(nil)

func (g *Game[D]) Key() string  { return g.ID }
func (g *Game[D]) Kind() string { return g.Family }

func (g *Game[D]) rng() engine.RandomSource {
	if g.Sampler.RNG == nil {
		return engine.DefaultRNG()
	}
	return g.Sampler.RNG
}

func (g *Game[D]) Roll() (Round, error) {
	name := g.Policy.ChooseTier(g.rng())
	t, ok := g.Policy.Tier(name)
	if !ok {
		return Round{}, fmt.Errorf("%w: policy chose unknown tier %q", engine.ErrConfiguration, name)
	}
	return g.sample(t)
}

func (g *Game[D]) RollTier(tier string) (Round, error) {
	t, err := g.Policy.Request(tier)
	if err != nil {
		return Round{}, err
	}
	return g.sample(t)
}

func (g *Game[D]) sample(t engine.Tier) (Round, error) {
	attempts := t.Attempts
	if attempts <= 0 {
		attempts = g.MaxAttempts
	}
	d, o, stats, err := g.Sampler.Sample(t, attempts)
	if err != nil {
		return Round{}, err
	}
	classified := g.Classifiable == nil || g.Classifiable(d)
	if !classified {
		o = engine.Outcome{}
	}
	if classified && g.Verify != nil {
		if err := g.Verify(d, o); err != nil {
			return Round{}, err
		}
	}
	summary := o.Name
	if g.Describe != nil {
		summary = g.Describe(d, o, classified)
	}
	return Round{
		Variant:    g.ID,
		Tier:       t.Name,
		Draw:       d,
		Outcome:    o,
		Classified: classified,
		Summary:    summary,
		Stats:      stats,
	}, nil
}

func (g *Game[D]) Outcomes() []engine.Outcome { return g.Sampler.Table.Outcomes() }

func (g *Game[D]) Tiers() []engine.Tier { return g.Policy.Tiers() }

// CheckTiers fails with engine.ErrConfiguration unless every outcome a
// policy tier names has a rule in table.
func CheckTiers[D any](table *engine.Table[D], p TierPolicy) error {
	for _, t := range p.Tiers() {
		if err := table.Require(t.Members()...); err != nil {
			return fmt.Errorf("tier %q: %w", t.Name, err)
		}
	}
	return nil
}
