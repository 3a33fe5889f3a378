package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Outcome is the named, ranked classification of one draw.
type Outcome struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Rank        int             `json:"rank"`  // higher = rarer / better
	Order       int             `json:"order"` // position in the rule table, tie-break for Rank
	Multiplier  decimal.Decimal `json:"multiplier"`
	Description string          `json:"description,omitempty"`
	Color       string          `json:"color,omitempty"` // presentation hint
}

// Better reports whether o outranks other. Equal ranks fall back to
// declaration order, earlier wins.
func (o Outcome) Better(other Outcome) bool {
	if o.Rank != other.Rank {
		return o.Rank > other.Rank
	}
	return o.Order < other.Order
}

// Payout returns stake * multiplier.
func (o Outcome) Payout(stake decimal.Decimal) decimal.Decimal {
	return stake.Mul(o.Multiplier)
}

// Rule pairs a predicate over a draw with the outcome it yields.
type Rule[D any] struct {
	Outcome Outcome
	Match   func(D) bool
}

// Table classifies draws by walking its rules in declaration order. The
// first match wins; draws matching nothing get the fallback outcome.
type Table[D any] struct {
	rules    []Rule[D]
	fallback Outcome
	byID     map[string]Outcome
}

// NewTable builds a table. Rule IDs must be unique and the fallback must rank
// strictly below every rule.
func NewTable[D any](fallback Outcome, rules ...Rule[D]) (*Table[D], error) {
	t := &Table[D]{
		rules: make([]Rule[D], len(rules)),
		byID:  make(map[string]Outcome, len(rules)+1),
	}
	for i, r := range rules {
		if r.Outcome.ID == "" {
			return nil, configErr("rule %d has no outcome id", i)
		}
		if r.Match == nil {
			return nil, configErr("rule %q has no predicate", r.Outcome.ID)
		}
		if _, dup := t.byID[r.Outcome.ID]; dup {
			return nil, configErr("duplicate rule %q", r.Outcome.ID)
		}
		if r.Outcome.Rank <= fallback.Rank {
			return nil, configErr("rule %q rank %d must be above fallback rank %d", r.Outcome.ID, r.Outcome.Rank, fallback.Rank)
		}
		r.Outcome.Order = i
		t.rules[i] = r
		t.byID[r.Outcome.ID] = r.Outcome
	}
	if fallback.ID == "" {
		return nil, configErr("fallback outcome has no id")
	}
	if _, dup := t.byID[fallback.ID]; dup {
		return nil, configErr("fallback %q shadows a rule", fallback.ID)
	}
	fallback.Order = len(rules)
	t.fallback = fallback
	t.byID[fallback.ID] = fallback
	return t, nil
}

// MustTable is NewTable for package-level rule tables.
func MustTable[D any](fallback Outcome, rules ...Rule[D]) *Table[D] {
	t, err := NewTable(fallback, rules...)
	if err != nil {
		panic(err)
	}
	return t
}

// Classify returns the outcome of the first matching rule.
func (t *Table[D]) Classify(d D) Outcome {
	for _, r := range t.rules {
		if r.Match(d) {
			return r.Outcome
		}
	}
	return t.fallback
}

// Outcome looks up an outcome by ID.
func (t *Table[D]) Outcome(id string) (Outcome, bool) {
	o, ok := t.byID[id]
	return o, ok
}

// Fallback returns the no-match outcome.
func (t *Table[D]) Fallback() Outcome { return t.fallback }

// Outcomes lists every outcome in declaration order, fallback last.
func (t *Table[D]) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(t.rules)+1)
	for _, r := range t.rules {
		out = append(out, r.Outcome)
	}
	return append(out, t.fallback)
}

// Require fails with ErrConfiguration unless every id names an outcome.
func (t *Table[D]) Require(ids ...string) error {
	for _, id := range ids {
		if _, ok := t.byID[id]; !ok {
			return fmt.Errorf("%w: no classifier rule for %q", ErrConfiguration, id)
		}
	}
	return nil
}
