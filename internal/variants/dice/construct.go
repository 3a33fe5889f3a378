package dice

import (
	"github.com/xtding233/outcome-engine/internal/engine"
)

var nonLucky = []int{1, 2, 3, 5, 6}

// Filler pools: every way to fill the free positions of a tier without
// promoting the roll into a higher rule. Built once.
var (
	fourFoursFill = fillers(2, nonLucky, func(f []int) bool {
		return !(f[0] == 1 && f[1] == 1) // would be insert_flower
	})
	threeFoursFill = fillers(3, nonLucky, nil)
	twoFoursFill   = fillers(4, nonLucky, func(f []int) bool {
		return !allEqual(f) // would be four_kind
	})
	oneFourFill = fillers(5, nonLucky, func(f []int) bool {
		var c [Faces + 1]int
		for _, v := range f {
			c[v]++
			if c[v] >= 4 { // four_kind or five_kind
				return false
			}
		}
		// 1,2,3,5,6 plus the 4 is a straight
		return !(c[1] == 1 && c[2] == 1 && c[3] == 1 && c[5] == 1 && c[6] == 1)
	})
)

// fillers enumerates all n-tuples over faces accepted by keep.
func fillers(n int, faces []int, keep func([]int) bool) [][]int {
	var out [][]int
	cur := make([]int, n)
	var walk func(i int)
	walk = func(i int) {
		if i == n {
			if keep == nil || keep(cur) {
				out = append(out, append([]int(nil), cur...))
			}
			return
		}
		for _, f := range faces {
			cur[i] = f
			walk(i + 1)
		}
	}
	walk(0)
	return out
}

func allEqual(xs []int) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// assemble joins fixed faces and fillers, then shuffles so the lucky dice
// are not always in front.
func assemble(rng engine.RandomSource, fixed []int, fill []int) Draw {
	d := make(Draw, 0, Full)
	d = append(d, fixed...)
	d = append(d, fill...)
	engine.Shuffle(rng, d)
	return d
}

// Uniform rolls n independent dice.
func Uniform(n int) engine.Constructor[Draw] {
	return func(rng engine.RandomSource) Draw {
		d := make(Draw, n)
		for i := range d {
			d[i] = rng.IntN(Faces) + 1
		}
		return d
	}
}

// Constructors builds every positive tier directly. "none" has no
// constructor and is rejection-sampled.
func Constructors() map[string]engine.Constructor[Draw] {
	return map[string]engine.Constructor[Draw]{
		SixFours: func(rng engine.RandomSource) Draw { return Draw(repeat(4, Full)) },
		SixOnes:  func(rng engine.RandomSource) Draw { return Draw(repeat(1, Full)) },
		SixKind: func(rng engine.RandomSource) Draw {
			return Draw(repeat(engine.Pick(rng, []int{2, 3, 5, 6}), Full))
		},
		InsertFlower: func(rng engine.RandomSource) Draw {
			return assemble(rng, repeat(4, 4), []int{1, 1})
		},
		FiveFours: func(rng engine.RandomSource) Draw {
			return assemble(rng, repeat(4, 5), []int{engine.Pick(rng, nonLucky)})
		},
		FiveKind: func(rng engine.RandomSource) Draw {
			v := engine.Pick(rng, nonLucky)
			f := rng.IntN(Faces-1) + 1 // 1..5, skip v
			if f >= v {
				f++
			}
			return assemble(rng, repeat(v, 5), []int{f})
		},
		FourFours: func(rng engine.RandomSource) Draw {
			return assemble(rng, repeat(4, 4), engine.Pick(rng, fourFoursFill))
		},
		Straight: func(rng engine.RandomSource) Draw {
			return assemble(rng, []int{1, 2, 3, 4, 5, 6}, nil)
		},
		ThreeFours: func(rng engine.RandomSource) Draw {
			return assemble(rng, repeat(4, 3), engine.Pick(rng, threeFoursFill))
		},
		FourKind: func(rng engine.RandomSource) Draw {
			v := engine.Pick(rng, nonLucky)
			var others []int
			for f := 1; f <= Faces; f++ {
				if f != v {
					others = append(others, f)
				}
			}
			return assemble(rng, repeat(v, 4), []int{engine.Pick(rng, others), engine.Pick(rng, others)})
		},
		TwoFours: func(rng engine.RandomSource) Draw {
			return assemble(rng, repeat(4, 2), engine.Pick(rng, twoFoursFill))
		},
		OneFour: func(rng engine.RandomSource) Draw {
			return assemble(rng, []int{4}, engine.Pick(rng, oneFourFill))
		},
	}
}
