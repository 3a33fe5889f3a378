package game

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xtding233/outcome-engine/internal/engine"
)

// ValidateRaw checks semantic constraints of a merged RawConfig and reports
// every violation at once.
func ValidateRaw(cfg RawConfig) error {
	var errs []string
	bad := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	switch cfg.Kind {
	case KindDice, KindBull, KindWheel:
	case "":
		bad("kind is required")
	default:
		bad("kind must be one of: dice, bull, wheel")
	}

	// engine
	if cfg.Engine.MaxAttempts != nil && *cfg.Engine.MaxAttempts < 1 {
		bad("engine.max_attempts must be >= 1")
	}
	switch cfg.Engine.Entropy {
	case "", engine.EntropyCrypto, engine.EntropyFast:
	case engine.EntropySeeded:
		if cfg.Engine.Seed == nil {
			bad("engine.seed is required for entropy=seeded")
		}
	default:
		bad("engine.entropy must be one of: crypto, fast, seeded")
	}

	if cfg.Cooldown.Lock != nil && *cfg.Cooldown.Lock < 0 {
		bad("cooldown.lock must be >= 0")
	}
	if cfg.History.Capacity != nil && *cfg.History.Capacity < 1 {
		bad("history.capacity must be >= 1")
	}

	// policy
	if cfg.Policy != nil {
		if cfg.Kind == KindWheel && len(cfg.Policy.Tiers) > 0 {
			bad("policy.tiers is not used by wheel games; weight the slots instead")
		}
		seen := map[string]bool{}
		for i, t := range cfg.Policy.Tiers {
			if t.Name == "" {
				bad("policy.tiers[%d].name is required", i)
			} else if seen[t.Name] {
				bad("policy.tiers[%d].name %q is duplicated", i, t.Name)
			}
			seen[t.Name] = true
			if !validProb(t.Probability) {
				bad("policy.tiers[%d].probability must be in [0,1]", i)
			}
			if t.Attempts < 0 {
				bad("policy.tiers[%d].attempts must be >= 0", i)
			}
		}
		if o := cfg.Policy.Ordinary; o != nil {
			if o.Tier != "" && seen[o.Tier] {
				bad("policy.ordinary.tier %q also appears in policy.tiers", o.Tier)
			}
			if o.Tier == "" && len(o.Outcomes) > 0 {
				bad("policy.ordinary.outcomes needs policy.ordinary.tier")
			}
			if o.Prefer != "" {
				if seen[o.Prefer] || o.Prefer == o.Tier {
					bad("policy.ordinary.prefer %q clashes with another tier", o.Prefer)
				}
				if !validProb(o.PreferProbability) {
					bad("policy.ordinary.prefer_probability must be in [0,1]")
				}
			}
			if o.Attempts < 0 || o.PreferAttempts < 0 {
				bad("policy.ordinary attempts must be >= 0")
			}
		}
	}

	// dice
	if cfg.Dice != nil && cfg.Dice.Count != nil {
		if n := *cfg.Dice.Count; n < 1 || n > 6 {
			bad("dice.count must be in [1,6]")
		}
	}

	// wheel
	if cfg.Kind == KindWheel {
		if cfg.Wheel == nil || len(cfg.Wheel.Slots) == 0 {
			bad("wheel.slots is required for kind=wheel")
		} else {
			ids := map[string]bool{}
			var total float64
			for i, s := range cfg.Wheel.Slots {
				if s.ID == "" {
					bad("wheel.slots[%d].id is required", i)
				} else if ids[s.ID] {
					bad("wheel.slots[%d].id %q is duplicated", i, s.ID)
				}
				ids[s.ID] = true
				if math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) || s.Weight < 0 {
					bad("wheel.slots[%d].weight must be >= 0", i)
				} else {
					total += s.Weight
				}
				if s.Multiplier != "" {
					if _, err := decimal.NewFromString(s.Multiplier); err != nil {
						bad("wheel.slots[%d].multiplier %q is not a decimal", i, s.Multiplier)
					}
				}
			}
			if total <= 0 {
				bad("wheel.slots needs at least one positive weight")
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed: %s", engine.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

func validProb(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
