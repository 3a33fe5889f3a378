package dice

import (
	"fmt"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/variants"
)

// New builds a dice game. Short rolls (fewer than six dice) are never
// classified, so their policy is always a plain uniform roll and tier
// requests are refused.
func New(p game.EngineParams, o variants.Options) (*variants.Game[Draw], error) {
	if p.DiceCount < 1 || p.DiceCount > Full {
		return nil, fmt.Errorf("%w: dice count %d out of range", engine.ErrConfiguration, p.DiceCount)
	}
	full := p.DiceCount == Full

	var direct map[string]engine.Constructor[Draw]
	policy, err := engine.NewPolicy(nil, engine.Ordinary{})
	if full {
		direct = Constructors()
		policy, err = variants.NewPolicy(p)
	} else if len(p.Tiers) > 0 {
		o.Logger.Info().Str("variant", p.Key).Int("dice", p.DiceCount).
			Msg("ignoring rarity tiers for a short roll")
	}
	if err != nil {
		return nil, err
	}
	if err := variants.CheckTiers(Table, policy); err != nil {
		return nil, err
	}

	return &variants.Game[Draw]{
		ID:           p.Key,
		Family:       game.KindDice,
		Sampler:      variants.NewSampler(p, o, Table, Uniform(p.DiceCount), direct),
		Policy:       policy,
		MaxAttempts:  p.MaxAttempts,
		Classifiable: func(d Draw) bool { return len(d) == Full },
		Describe:     describe,
	}, nil
}

func describe(d Draw, o engine.Outcome, classified bool) string {
	if !classified {
		return fmt.Sprintf("Total: %d", d.Sum())
	}
	return fmt.Sprintf("%s %s", d, o.Name)
}
