// Package bull is the five-card bull game: find three cards summing to a
// multiple of ten, the other two give the point.
package bull

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xtding233/outcome-engine/internal/engine"
)

const (
	Bomb      = "bomb"
	FiveSmall = "five_small"
	FiveFace  = "five_face"
	BullBull  = "bull_bull"
	NoBull    = "no_bull"
)

// BullN is the outcome ID for point n (1..9).
func BullN(n int) string { return fmt.Sprintf("bull_%d", n) }

// Payout multipliers by outcome.
var multipliers = map[string]int64{
	Bomb:      17,
	FiveSmall: 20,
	FiveFace:  15,
	BullBull:  10,
	NoBull:    0,
}

func multiplier(id string, point int) decimal.Decimal {
	if m, ok := multipliers[id]; ok {
		return decimal.NewFromInt(m)
	}
	return decimal.NewFromInt(int64(point))
}

const (
	good  = "#059669"
	minor = "#6b7280"
)

func rankCounts(h Hand) map[string]int {
	c := make(map[string]int, HandSize)
	for _, card := range h {
		c[card.Rank]++
	}
	return c
}

func isBomb(h Hand) bool {
	for _, n := range rankCounts(h) {
		if n >= 4 {
			return true
		}
	}
	return false
}

func isFiveSmall(h Hand) bool {
	v, sum := h.values()
	for _, x := range v {
		if x > 5 {
			return false
		}
	}
	return sum <= 10
}

func isFiveFace(h Hand) bool {
	for _, c := range h {
		if !c.Face() {
			return false
		}
	}
	return true
}

func hasPoint(n int) func(Hand) bool {
	return func(h Hand) bool {
		p, ok := h.Point()
		return ok && p == n
	}
}

func buildTable() *engine.Table[Hand] {
	rules := []engine.Rule[Hand]{
		{Outcome: engine.Outcome{ID: Bomb, Name: "Bomb", Rank: 13, Description: "Four of a kind, unstoppable!", Color: "#dc2626"}, Match: isBomb},
		{Outcome: engine.Outcome{ID: FiveSmall, Name: "Five Small", Rank: 12, Description: "Small cards, big brains.", Color: "#f59e0b"}, Match: isFiveSmall},
		{Outcome: engine.Outcome{ID: FiveFace, Name: "Five Faces", Rank: 11, Description: "A full bloom of faces.", Color: "#7c3aed"}, Match: isFiveFace},
		{Outcome: engine.Outcome{ID: BullBull, Name: "Bull Bull", Rank: 10, Description: "Perfect combination!", Color: good}, Match: hasPoint(0)},
	}
	for n := 9; n >= 1; n-- {
		o := engine.Outcome{ID: BullN(n), Name: fmt.Sprintf("Bull %d", n), Rank: n, Description: "A small win.", Color: minor}
		if n >= 7 {
			o.Description, o.Color = "Big bull!", good
		}
		rules = append(rules, engine.Rule[Hand]{Outcome: o, Match: hasPoint(n)})
	}
	for i := range rules {
		rules[i].Outcome.Multiplier = multiplier(rules[i].Outcome.ID, rules[i].Outcome.Rank)
	}
	fallback := engine.Outcome{ID: NoBull, Name: "No Bull", Rank: -1, Multiplier: multiplier(NoBull, 0), Description: "Try again!", Color: "#9ca3af"}
	return engine.MustTable(fallback, rules...)
}

// Table ranks hands: bomb, five small, five faces, then bull points.
var Table = buildTable()
