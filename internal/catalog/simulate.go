package catalog

import (
	"fmt"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/variants"
)

// MaxTrials caps a single calibration run.
const MaxTrials = 1_000_000

// Unclassified tallies rounds the rule table does not apply to, such as
// short dice rolls.
const Unclassified = "unclassified"

// ErrTooManyTrials is returned for runs above MaxTrials.
var ErrTooManyTrials = fmt.Errorf("%w: at most %d trials per run", engine.ErrIllegalAttempt, MaxTrials)

// Simulate plays trials rounds of a fresh copy of key and reports the
// realized frequencies. A non-empty tier forces every round into it.
func (c *Catalog) Simulate(key string, trials int, tier string, o game.Overrides) (engine.Report, error) {
	if trials > MaxTrials {
		return engine.Report{}, ErrTooManyTrials
	}
	e, err := c.Fresh(key, o)
	if err != nil {
		return engine.Report{}, err
	}
	v := e.Variant
	roll := v.Roll
	if tier != "" {
		if _, err := v.RollTier(tier); err != nil {
			return engine.Report{}, err
		}
		roll = func() (variants.Round, error) { return v.RollTier(tier) }
	}
	return engine.Simulate(trials, func() (engine.Trial, error) {
		r, err := roll()
		if err != nil {
			return engine.Trial{}, err
		}
		id := r.Outcome.ID
		if !r.Classified {
			id = Unclassified
		}
		return engine.Trial{Tier: r.Tier, Outcome: id, Attempts: r.Stats.Attempts, Exhausted: r.Stats.Exhausted}, nil
	})
}
