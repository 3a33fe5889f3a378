package bull

import (
	"github.com/xtding233/outcome-engine/internal/engine"
)

// Rank pools for the directly built tiers. Four or more of one rank is
// a bomb, which outranks both, so those tuples are left out.
var (
	fiveSmallRanks = rankTuples([]string{"A", "2", "3", "4", "5"}, func(r [HandSize]string) bool {
		sum := 0
		for _, x := range r {
			sum += Card{Rank: x}.Value()
		}
		return sum <= 10
	})
	fiveFaceRanks = rankTuples([]string{"J", "Q", "K"}, nil)
)

func rankTuples(ranks []string, keep func([HandSize]string) bool) [][HandSize]string {
	var out [][HandSize]string
	var cur [HandSize]string
	var walk func(i int)
	walk = func(i int) {
		if i == HandSize {
			counts := map[string]int{}
			for _, r := range cur {
				counts[r]++
				if counts[r] >= 4 {
					return
				}
			}
			if keep == nil || keep(cur) {
				out = append(out, cur)
			}
			return
		}
		for _, r := range ranks {
			cur[i] = r
			walk(i + 1)
		}
	}
	walk(0)
	return out
}

func fromRanks(rng engine.RandomSource, ranks [HandSize]string) Hand {
	var h Hand
	for i, r := range ranks {
		h[i] = Card{Suit: engine.Pick(rng, Suits), Rank: r}
	}
	return h
}

// Constructors builds the rare tiers directly. Bull points and no_bull are
// rejection-sampled.
func Constructors() map[string]engine.Constructor[Hand] {
	return map[string]engine.Constructor[Hand]{
		Bomb: func(rng engine.RandomSource) Hand {
			rank := engine.Pick(rng, Ranks)
			cards := make([]Card, 0, HandSize)
			for _, s := range Suits {
				cards = append(cards, Card{Suit: s, Rank: rank})
			}
			cards = append(cards, randomCard(rng))
			engine.Shuffle(rng, cards)
			var h Hand
			copy(h[:], cards)
			return h
		},
		FiveSmall: func(rng engine.RandomSource) Hand {
			return fromRanks(rng, engine.Pick(rng, fiveSmallRanks))
		},
		FiveFace: func(rng engine.RandomSource) Hand {
			return fromRanks(rng, engine.Pick(rng, fiveFaceRanks))
		},
	}
}
