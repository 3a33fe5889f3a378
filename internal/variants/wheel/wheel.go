// Package wheel is the prize wheel: a weighted pick over slots, with the
// presentation rotation computed up front.
package wheel

import (
	"fmt"
	"math"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/variants"
)

// OffWheel is the fallback outcome. No valid spin classifies as it.
const OffWheel = "off_wheel"

const (
	pointer   = 270.0 // degrees, where the pointer sits
	minRounds = 5
	maxRounds = 8
)

// Spin is where the wheel stops.
type Spin struct {
	Slot     int     `json:"slot"`
	ID       string  `json:"id"`
	Rotation float64 `json:"rotation"` // total degrees turned, ends on the slot centre
}

// Wheel holds the slot layout.
type Wheel struct {
	Slots   []game.Slot
	Table   *engine.Table[Spin]
	Weights *engine.WeightedPolicy
	index   map[string]int
}

// NewWheel validates the layout. Rarer slots rank higher.
func NewWheel(slots []game.Slot) (*Wheel, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: wheel has no slots", engine.ErrConfiguration)
	}
	weights := make([]float64, len(slots))
	for i, s := range slots {
		weights[i] = s.Weight
	}
	wp, err := engine.NewWeightedPolicy(weights)
	if err != nil {
		return nil, err
	}
	w := &Wheel{Slots: slots, Weights: wp, index: make(map[string]int, len(slots))}

	rules := make([]engine.Rule[Spin], len(slots))
	for i, s := range slots {
		if _, dup := w.index[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate wheel slot %q", engine.ErrConfiguration, s.ID)
		}
		w.index[s.ID] = i
		rank := 0
		for _, other := range slots {
			if other.Weight > s.Weight {
				rank++
			}
		}
		rules[i] = engine.Rule[Spin]{
			Outcome: engine.Outcome{ID: s.ID, Name: s.Name, Rank: rank, Multiplier: s.Multiplier, Color: s.Color},
			Match:   func(sp Spin) bool { return sp.Slot == i },
		}
	}
	w.Table, err = engine.NewTable(engine.Outcome{ID: OffWheel, Name: "Off the wheel", Rank: -1}, rules...)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Land builds the spin that stops on slot i.
func (w *Wheel) Land(rng engine.RandomSource, i int) Spin {
	seg := 360.0 / float64(len(w.Slots))
	middle := float64(i)*seg + seg/2
	alpha := math.Mod(pointer-middle+360, 360)
	rounds := minRounds + rng.IntN(maxRounds-minRounds+1)
	return Spin{Slot: i, ID: w.Slots[i].ID, Rotation: float64(rounds)*360 + alpha}
}

// Random spins by weight.
func (w *Wheel) Random(rng engine.RandomSource) Spin {
	return w.Land(rng, w.Weights.Choose(rng))
}

// Classify maps a spin to its prize. Landing on a zero-weight slot means
// something bypassed the weights.
func (w *Wheel) Classify(sp Spin) (engine.Outcome, error) {
	if !w.Weights.Allowed(sp.Slot) {
		return engine.Outcome{}, fmt.Errorf("%w: spin landed on unreachable slot %d", engine.ErrIntegrity, sp.Slot)
	}
	return w.Table.Classify(sp), nil
}

// ChooseTier leaves the pick to the weights. Explicit requests name a slot ID.
func (w *Wheel) ChooseTier(engine.RandomSource) string { return "" }

func (w *Wheel) Tier(name string) (engine.Tier, bool) {
	if name == "" {
		return engine.Tier{}, true
	}
	i, ok := w.index[name]
	if !ok {
		return engine.Tier{}, false
	}
	return engine.Tier{Name: name, Probability: w.Weights.Probability(i), Attempts: 1}, true
}

func (w *Wheel) Request(name string) (engine.Tier, error) {
	t, ok := w.Tier(name)
	switch {
	case !ok:
		return engine.Tier{}, fmt.Errorf("%w: unknown slot %q", engine.ErrIllegalAttempt, name)
	case name != "" && t.Probability <= 0:
		return engine.Tier{}, fmt.Errorf("%w: slot %q has zero weight", engine.ErrIllegalAttempt, name)
	}
	return t, nil
}

func (w *Wheel) Tiers() []engine.Tier {
	out := make([]engine.Tier, len(w.Slots))
	for i, s := range w.Slots {
		out[i], _ = w.Tier(s.ID)
	}
	return out
}

var _ variants.TierPolicy = (*Wheel)(nil)

func (w *Wheel) constructors() map[string]engine.Constructor[Spin] {
	m := make(map[string]engine.Constructor[Spin], len(w.Slots))
	for i, s := range w.Slots {
		m[s.ID] = func(rng engine.RandomSource) Spin { return w.Land(rng, i) }
	}
	return m
}

// New builds a wheel game.
func New(p game.EngineParams, o variants.Options) (*variants.Game[Spin], error) {
	w, err := NewWheel(p.Slots)
	if err != nil {
		return nil, err
	}
	return &variants.Game[Spin]{
		ID:          p.Key,
		Family:      game.KindWheel,
		Sampler:     variants.NewSampler(p, o, w.Table, w.Random, w.constructors()),
		Policy:      w,
		MaxAttempts: p.MaxAttempts,
		Verify: func(sp Spin, _ engine.Outcome) error {
			_, err := w.Classify(sp)
			return err
		},
		Describe: func(sp Spin, oc engine.Outcome, _ bool) string { return oc.Name },
	}, nil
}
