package variants

import (
	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
)

// Options carries the collaborators a variant is built with.
type Options struct {
	RNG         engine.RandomSource // nil: from the config's entropy setting
	Logger      zerolog.Logger
	OnExhausted func(*engine.ExhaustedError)
}

// Source returns o.RNG or the source p asks for.
func (o Options) Source(p game.EngineParams) engine.RandomSource {
	if o.RNG != nil {
		return o.RNG
	}
	return engine.NewRNG(p.Entropy, p.Seed)
}

// NewSampler wires the shared sampler fields.
func NewSampler[D any](p game.EngineParams, o Options, table *engine.Table[D], random engine.Constructor[D], direct map[string]engine.Constructor[D]) *engine.Sampler[D] {
	return &engine.Sampler[D]{
		Name:        p.Key,
		Table:       table,
		Random:      random,
		Direct:      direct,
		RNG:         o.Source(p),
		Logger:      o.Logger,
		OnExhausted: o.OnExhausted,
	}
}

// NewPolicy builds the Bernoulli chain described by p.
func NewPolicy(p game.EngineParams) (*engine.Policy, error) {
	return engine.NewPolicy(p.Tiers, p.Ordinary)
}
