package engine

import (
	"fmt"
	"math"
)

// Tier is a named rarity bucket.
// - Probability is the independent chance checked by Policy.ChooseTier.
// - Outcomes lists the outcome IDs that satisfy the tier; empty means {Name}.
// - Attempts is the rejection budget; <= 0 uses the sampler default.
type Tier struct {
	Name        string   `json:"name"`
	Probability float64  `json:"probability"`
	Attempts    int      `json:"attempts,omitempty"`
	Outcomes    []string `json:"outcomes,omitempty"`
}

// Members returns the outcome IDs that satisfy the tier.
func (t Tier) Members() []string {
	if len(t.Outcomes) > 0 {
		return t.Outcomes
	}
	if t.Name == "" {
		return nil
	}
	return []string{t.Name}
}

// Unconstrained reports whether any draw satisfies the tier.
func (t Tier) Unconstrained() bool { return t.Name == "" }

// Ordinary is what ChooseTier falls back to when no chain tier fires.
// Prefer (optional) is tried first with Prefer.Probability; otherwise Tier
// is used. An empty Tier.Name means an unconstrained uniform draw.
type Ordinary struct {
	Tier   Tier `json:"tier"`
	Prefer Tier `json:"prefer"`
}

// Policy is an ordered chain of independent Bernoulli checks, rarest first.
// Checks are not normalized: probabilities need not sum to 1 and a tier's
// realized frequency depends on every check ahead of it.
type Policy struct {
	Chain    []Tier
	Ordinary Ordinary

	byName map[string]Tier
}

// NewPolicy validates and indexes a chain.
func NewPolicy(chain []Tier, ordinary Ordinary) (*Policy, error) {
	p := &Policy{
		Chain:    append([]Tier(nil), chain...),
		Ordinary: ordinary,
		byName:   make(map[string]Tier, len(chain)+2),
	}
	for i, t := range p.Chain {
		if t.Name == "" {
			return nil, configErr("policy tier %d has no name", i)
		}
		if err := validateProb(t.Probability); err != nil {
			return nil, configErr("policy tier %q: %v", t.Name, err)
		}
		if _, dup := p.byName[t.Name]; dup {
			return nil, configErr("duplicate policy tier %q", t.Name)
		}
		p.byName[t.Name] = t
	}
	if n := ordinary.Tier.Name; n != "" {
		if _, dup := p.byName[n]; dup {
			return nil, configErr("ordinary tier %q also appears in the chain", n)
		}
		p.byName[n] = ordinary.Tier
	}
	if n := ordinary.Prefer.Name; n != "" {
		if err := validateProb(ordinary.Prefer.Probability); err != nil {
			return nil, configErr("preferred tier %q: %v", n, err)
		}
		if _, dup := p.byName[n]; dup {
			return nil, configErr("preferred tier %q also appears elsewhere in the policy", n)
		}
		p.byName[n] = ordinary.Prefer
	}
	return p, nil
}

// ChooseTier walks the chain and returns the first tier whose probability
// exceeds a fresh uniform draw, then the ordinary fallback.
func (p *Policy) ChooseTier(rng RandomSource) string {
	for _, t := range p.Chain {
		// probabilities were validated in NewPolicy
		if hit, _ := Chance(t.Probability, rng); hit {
			return t.Name
		}
	}
	if pref := p.Ordinary.Prefer; pref.Name != "" {
		if hit, _ := Chance(pref.Probability, rng); hit {
			return pref.Name
		}
	}
	return p.Ordinary.Tier.Name
}

// Tier resolves a tier name chosen by ChooseTier. The empty name is the
// unconstrained tier.
func (p *Policy) Tier(name string) (Tier, bool) {
	if name == "" {
		return Tier{}, true
	}
	t, ok := p.byName[name]
	return t, ok
}

// Tiers lists every tier the policy can hand out, chain first.
func (p *Policy) Tiers() []Tier {
	out := append([]Tier(nil), p.Chain...)
	if p.Ordinary.Prefer.Name != "" {
		out = append(out, p.Ordinary.Prefer)
	}
	return append(out, p.Ordinary.Tier)
}

// Request resolves an explicitly requested tier. Tiers the policy can never
// choose (probability 0) and unknown tiers are rejected with
// ErrIllegalAttempt; the ordinary and unconstrained tiers are always allowed.
func (p *Policy) Request(name string) (Tier, error) {
	t, ok := p.Tier(name)
	if !ok {
		return Tier{}, fmt.Errorf("%w: unknown tier %q", ErrIllegalAttempt, name)
	}
	if name == "" || name == p.Ordinary.Tier.Name {
		return t, nil
	}
	if t.Probability <= 0 {
		return Tier{}, fmt.Errorf("%w: tier %q has zero probability", ErrIllegalAttempt, name)
	}
	return t, nil
}

// Allowed reports whether name may be requested explicitly.
func (p *Policy) Allowed(name string) bool {
	_, err := p.Request(name)
	return err == nil
}

// WeightedPolicy is a normalized categorical draw over non-negative weights.
// Zero-weight entries are never chosen.
type WeightedPolicy struct {
	weights []float64
	total   float64
	last    int // last index with positive weight
}

// NewWeightedPolicy requires at least one positive weight.
func NewWeightedPolicy(weights []float64) (*WeightedPolicy, error) {
	w := &WeightedPolicy{weights: append([]float64(nil), weights...), last: -1}
	for i, x := range w.weights {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return nil, configErr("weight %d must be a finite non-negative number, got %v", i, x)
		}
		if x > 0 {
			w.total += x
			w.last = i
		}
	}
	if w.last < 0 {
		return nil, configErr("at least one weight must be positive")
	}
	return w, nil
}

// Choose performs a cumulative-sum search.
func (w *WeightedPolicy) Choose(rng RandomSource) int {
	r := rng.Float64() * w.total
	acc := 0.0
	for i, x := range w.weights {
		if x <= 0 {
			continue
		}
		acc += x
		if r < acc {
			return i
		}
	}
	// float rounding at the top edge
	return w.last
}

// Allowed reports whether index i can ever be chosen.
func (w *WeightedPolicy) Allowed(i int) bool {
	return i >= 0 && i < len(w.weights) && w.weights[i] > 0
}

// Len is the number of entries, reachable or not.
func (w *WeightedPolicy) Len() int { return len(w.weights) }

// Probability is the normalized chance of index i.
func (w *WeightedPolicy) Probability(i int) float64 {
	if !w.Allowed(i) {
		return 0
	}
	return w.weights[i] / w.total
}
