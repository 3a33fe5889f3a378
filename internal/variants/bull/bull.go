package bull

import (
	"fmt"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/variants"
)

// New builds a bull game from its rarity chain.
func New(p game.EngineParams, o variants.Options) (*variants.Game[Hand], error) {
	policy, err := variants.NewPolicy(p)
	if err != nil {
		return nil, err
	}
	if err := variants.CheckTiers(Table, policy); err != nil {
		return nil, err
	}
	return &variants.Game[Hand]{
		ID:          p.Key,
		Family:      game.KindBull,
		Sampler:     variants.NewSampler(p, o, Table, Deal, Constructors()),
		Policy:      policy,
		MaxAttempts: p.MaxAttempts,
		Describe: func(h Hand, oc engine.Outcome, _ bool) string {
			return fmt.Sprintf("%s  %s x%s", h, oc.Name, oc.Multiplier)
		},
	}, nil
}
