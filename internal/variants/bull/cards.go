package bull

import (
	"strconv"
	"strings"

	"github.com/xtding233/outcome-engine/internal/engine"
)

var (
	Suits = []string{"♠", "♥", "♦", "♣"}
	Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

// HandSize is the number of cards dealt.
const HandSize = 5

// Card is one playing card. Cards are drawn independently, so a hand may
// repeat a card.
type Card struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

func (c Card) String() string { return c.Rank + c.Suit }

// Value counts A as 1 and J, Q, K as 10.
func (c Card) Value() int {
	switch c.Rank {
	case "A":
		return 1
	case "J", "Q", "K":
		return 10
	}
	v, _ := strconv.Atoi(c.Rank)
	return v
}

// Face reports J, Q or K.
func (c Card) Face() bool {
	return c.Rank == "J" || c.Rank == "Q" || c.Rank == "K"
}

// Hand is one deal.
type Hand [HandSize]Card

func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func (h Hand) values() (v [HandSize]int, sum int) {
	for i, c := range h {
		v[i] = c.Value()
		sum += v[i]
	}
	return v, sum
}

// Point searches every three-card group whose value sum is a multiple of
// ten and returns the highest (sum of the other two) mod 10. ok is false
// when no group qualifies.
func (h Hand) Point() (point int, ok bool) {
	v, sum := h.values()
	point = -1
	for i := 0; i < HandSize-2; i++ {
		for j := i + 1; j < HandSize-1; j++ {
			for k := j + 1; k < HandSize; k++ {
				three := v[i] + v[j] + v[k]
				if three%10 != 0 {
					continue
				}
				if p := (sum - three) % 10; p > point {
					point = p
				}
			}
		}
	}
	return point, point >= 0
}

func randomCard(rng engine.RandomSource) Card {
	return Card{Suit: engine.Pick(rng, Suits), Rank: engine.Pick(rng, Ranks)}
}

// Deal draws five independent cards.
func Deal(rng engine.RandomSource) Hand {
	var h Hand
	for i := range h {
		h[i] = randomCard(rng)
	}
	return h
}

// Parse reads a hand like "4♠ 4♥ 4♦ 4♣ 7♠".
func Parse(s string) (Hand, bool) {
	var h Hand
	fields := strings.Fields(s)
	if len(fields) != HandSize {
		return h, false
	}
	for i, f := range fields {
		ok := false
		for _, suit := range Suits {
			if rank, found := strings.CutSuffix(f, suit); found {
				h[i] = Card{Suit: suit, Rank: rank}
				ok = validRank(rank)
				break
			}
		}
		if !ok {
			return h, false
		}
	}
	return h, true
}

func validRank(r string) bool {
	for _, x := range Ranks {
		if x == r {
			return true
		}
	}
	return false
}
