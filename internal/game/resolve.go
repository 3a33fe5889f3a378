// resolve.go
package game

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xtding233/outcome-engine/internal/engine"
)

const (
	DefaultLock            = 24 * time.Hour
	DefaultHistoryCapacity = 10
	DefaultDiceCount       = 6
)

// Overrides are per-request knobs layered on top of the files, used by
// calibration runs that need a reproducible source.
type Overrides struct {
	Entropy     *string
	Seed        *uint64
	MaxAttempts *int
}

type Resolver interface {
	// Returns merged RawConfig and normalized EngineParams
	Resolve(game, profile string, o Overrides) (RawConfig, EngineParams, error)
}

var _ Resolver = (*Loader)(nil)

// Resolve merges default -> game -> profile -> overrides, validates, and
// normalizes into engine params.
func (l *Loader) Resolve(game, profile string, o Overrides) (RawConfig, EngineParams, error) {
	raw, err := l.LoadMerged(game, profile)
	if err != nil {
		return RawConfig{}, EngineParams{}, err
	}
	raw = applyOverrides(raw, o)
	if err := ValidateRaw(raw); err != nil {
		return raw, EngineParams{}, err
	}
	p := Normalize(raw)
	p.Key = VariantKey(game, profile)
	p.Game = game
	p.Profile = profile
	return raw, p, nil
}

func applyOverrides(raw RawConfig, o Overrides) RawConfig {
	if o.Entropy != nil {
		raw.Engine.Entropy = *o.Entropy
	}
	if o.Seed != nil {
		raw.Engine.Seed = o.Seed
		if o.Entropy == nil {
			raw.Engine.Entropy = engine.EntropySeeded
		}
	}
	if o.MaxAttempts != nil {
		raw.Engine.MaxAttempts = o.MaxAttempts
	}
	return raw
}

// Normalize fills defaults. raw must have passed ValidateRaw.
func Normalize(raw RawConfig) EngineParams {
	p := EngineParams{
		Kind:            raw.Kind,
		Version:         raw.Version,
		MaxAttempts:     engine.DefaultMaxAttempts,
		Entropy:         raw.Engine.Entropy,
		Lock:            DefaultLock,
		HistoryCapacity: DefaultHistoryCapacity,
		DiceCount:       DefaultDiceCount,
	}
	if p.Entropy == "" {
		p.Entropy = engine.EntropyCrypto
	}
	if raw.Engine.MaxAttempts != nil {
		p.MaxAttempts = *raw.Engine.MaxAttempts
	}
	if raw.Engine.Seed != nil {
		p.Seed = *raw.Engine.Seed
	}
	if raw.Cooldown.Lock != nil {
		p.Lock = *raw.Cooldown.Lock
	}
	if raw.History.Capacity != nil {
		p.HistoryCapacity = *raw.History.Capacity
	}
	if raw.Dice != nil && raw.Dice.Count != nil {
		p.DiceCount = *raw.Dice.Count
	}

	if pol := raw.Policy; pol != nil {
		for _, t := range pol.Tiers {
			p.Tiers = append(p.Tiers, engine.Tier{
				Name:        t.Name,
				Probability: t.Probability,
				Attempts:    t.Attempts,
				Outcomes:    append([]string(nil), t.Outcomes...),
			})
		}
		if o := pol.Ordinary; o != nil {
			p.Ordinary.Tier = engine.Tier{
				Name:     o.Tier,
				Attempts: o.Attempts,
				Outcomes: append([]string(nil), o.Outcomes...),
			}
			if o.Prefer != "" {
				p.Ordinary.Prefer = engine.Tier{
					Name:        o.Prefer,
					Probability: o.PreferProbability,
					Attempts:    o.PreferAttempts,
					Outcomes:    append([]string(nil), o.PreferOutcomes...),
				}
			}
		}
	}

	if raw.Wheel != nil {
		for _, s := range raw.Wheel.Slots {
			m := decimal.Zero
			if s.Multiplier != "" {
				m, _ = decimal.NewFromString(s.Multiplier)
			}
			name := s.Name
			if name == "" {
				name = s.ID
			}
			p.Slots = append(p.Slots, Slot{ID: s.ID, Name: name, Weight: s.Weight, Multiplier: m, Color: s.Color})
		}
	}
	return p
}
