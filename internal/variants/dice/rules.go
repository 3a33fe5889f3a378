// Package dice is the six-dice "lucky pattern" game. Only rolls of exactly
// six dice are classified; shorter rolls report their total.
package dice

import (
	"strconv"
	"strings"

	"github.com/xtding233/outcome-engine/internal/engine"
)

// Faces of a die; 4 is the lucky face.
const (
	Faces = 6
	Lucky = 4
	Full  = 6 // dice needed for a classified roll
)

// Outcome IDs, best first.
const (
	SixFours     = "six_fours"
	SixOnes      = "six_ones"
	SixKind      = "six_kind"
	InsertFlower = "insert_flower"
	FiveFours    = "five_fours"
	FiveKind     = "five_kind"
	FourFours    = "four_fours"
	Straight     = "straight"
	ThreeFours   = "three_fours"
	FourKind     = "four_kind"
	TwoFours     = "two_fours"
	OneFour      = "one_four"
	None         = "none"
)

// Draw is one roll, values 1..6.
type Draw []int

func (d Draw) Sum() int {
	s := 0
	for _, v := range d {
		s += v
	}
	return s
}

func (d Draw) String() string {
	parts := make([]string, len(d))
	for i, v := range d {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// counts[v] is how many dice show v.
func (d Draw) counts() (c [Faces + 1]int) {
	for _, v := range d {
		if v >= 1 && v <= Faces {
			c[v]++
		}
	}
	return c
}

// rule builds a predicate that only looks at full rolls.
func rule(id, name, desc, color string, rank int, match func(c [Faces + 1]int) bool) engine.Rule[Draw] {
	return engine.Rule[Draw]{
		Outcome: engine.Outcome{ID: id, Name: name, Rank: rank, Description: desc, Color: color},
		Match: func(d Draw) bool {
			return len(d) == Full && match(d.counts())
		},
	}
}

// anyNonLucky reports whether some face other than 4 shows exactly n times.
func anyNonLucky(c [Faces + 1]int, n int, faces ...int) bool {
	for _, f := range faces {
		if c[f] == n {
			return true
		}
	}
	return false
}

const (
	red   = "#dc2626"
	black = "#1f2937"
	gold  = "#f59e0b"
	royal = "#7c3aed"
	grey  = "#6b7280"
)

// Table ranks full rolls. Order matters: four 4s with two 1s is
// insert_flower, not four_fours; four 1s with two 4s is four_kind, not
// two_fours.
var Table = engine.MustTable(
	engine.Outcome{ID: None, Name: "No Prize", Rank: -1, Description: "Better luck next roll.", Color: grey},

	rule(SixFours, "Champion: Six Reds", "Six fours, the highest honour.", red, 10,
		func(c [Faces + 1]int) bool { return c[4] == 6 }),
	rule(SixOnes, "Champion: Carpet of Brocade", "Six ones, rarer than rare.", red, 9,
		func(c [Faces + 1]int) bool { return c[1] == 6 }),
	rule(SixKind, "Champion: Six Blacks", "Six of a kind.", black, 8,
		func(c [Faces + 1]int) bool { return anyNonLucky(c, 6, 2, 3, 5, 6) }),
	rule(InsertFlower, "Champion: Golden Flowers", "Four fours and two ones.", gold, 7,
		func(c [Faces + 1]int) bool { return c[4] == 4 && c[1] == 2 }),
	rule(FiveFours, "Champion: Five Reds", "Five fours.", red, 6,
		func(c [Faces + 1]int) bool { return c[4] == 5 }),
	rule(FiveKind, "Champion: Five of a Kind", "Five of the same face.", red, 6,
		func(c [Faces + 1]int) bool { return anyNonLucky(c, 5, 1, 2, 3, 5, 6) }),
	rule(FourFours, "Champion: Four Reds", "Four fours.", red, 5,
		func(c [Faces + 1]int) bool { return c[4] == 4 }),
	rule(Straight, "Runner-up: Straight", "One to six in a row.", royal, 4,
		func(c [Faces + 1]int) bool {
			for f := 1; f <= Faces; f++ {
				if c[f] != 1 {
					return false
				}
			}
			return true
		}),
	rule(ThreeFours, "Third Place: Three Reds", "Three fours.", red, 3,
		func(c [Faces + 1]int) bool { return c[4] == 3 }),
	rule(FourKind, "Scholar: Four of a Kind", "Four of the same face.", black, 2,
		func(c [Faces + 1]int) bool { return anyNonLucky(c, 4, 1, 2, 3, 5, 6) }),
	rule(TwoFours, "Graduate: Two Reds", "Two fours.", red, 1,
		func(c [Faces + 1]int) bool { return c[4] == 2 }),
	rule(OneFour, "Licentiate: One Red", "One four.", red, 0,
		func(c [Faces + 1]int) bool { return c[4] == 1 }),
)

// Classify ranks a full roll. ok is false for rolls of fewer than six dice.
func Classify(d Draw) (o engine.Outcome, ok bool) {
	if len(d) != Full {
		return engine.Outcome{}, false
	}
	return Table.Classify(d), true
}
