package engine

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds rejection sampling when neither the caller nor
// the tier sets a budget.
const DefaultMaxAttempts = 100

// Constructor produces one draw.
type Constructor[D any] func(rng RandomSource) D

// SampleStats records how a draw was produced.
type SampleStats struct {
	Tier      string `json:"tier"`
	Attempts  int    `json:"attempts"` // classifications performed
	Direct    bool   `json:"direct,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

// Sampler produces draws whose classification falls in a requested tier.
// Tiers with a Direct constructor are built in one step; the rest are
// rejection-sampled from Random with a bounded budget.
type Sampler[D any] struct {
	Name   string // variant key, for logs
	Table  *Table[D]
	Random Constructor[D]
	Direct map[string]Constructor[D]
	RNG    RandomSource
	Logger zerolog.Logger

	// OnExhausted is called whenever a rejection run gives up.
	OnExhausted func(*ExhaustedError)
}

// Sample draws for tier t. maxAttempts <= 0 uses t.Attempts, then
// DefaultMaxAttempts. On exhaustion the last draw is returned with
// stats.Exhausted set; that is not an error.
func (s *Sampler[D]) Sample(t Tier, maxAttempts int) (D, Outcome, SampleStats, error) {
	var zero D
	if s.Table == nil || s.Random == nil {
		return zero, Outcome{}, SampleStats{}, configErr("sampler %q needs a table and a random constructor", s.Name)
	}
	rng := s.RNG
	if rng == nil {
		rng = DefaultRNG()
	}
	stats := SampleStats{Tier: t.Name}

	if t.Unconstrained() {
		d := s.Random(rng)
		stats.Attempts = 1
		return d, s.Table.Classify(d), stats, nil
	}

	members := t.Members()
	if err := s.Table.Require(members...); err != nil {
		return zero, Outcome{}, stats, fmt.Errorf("tier %q: %w", t.Name, err)
	}

	if build, ok := s.Direct[t.Name]; ok {
		d := build(rng)
		stats.Attempts = 1
		stats.Direct = true
		return d, s.Table.Classify(d), stats, nil
	}

	if maxAttempts <= 0 {
		maxAttempts = t.Attempts
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var (
		d D
		o Outcome
	)
	for stats.Attempts < maxAttempts {
		d = s.Random(rng)
		o = s.Table.Classify(d)
		stats.Attempts++
		if slices.Contains(members, o.ID) {
			return d, o, stats, nil
		}
	}

	stats.Exhausted = true
	ex := &ExhaustedError{Tier: t.Name, Attempts: stats.Attempts, Got: o.ID}
	s.Logger.Warn().
		Str("variant", s.Name).
		Str("tier", t.Name).
		Int("attempts", stats.Attempts).
		Str("got", o.ID).
		Msg("rejection sampling exhausted, keeping last draw")
	if s.OnExhausted != nil {
		s.OnExhausted(ex)
	}
	return d, o, stats, nil
}
