package engine

import (
	"math"
	"sort"
)

// Trial is what one simulated round reports back.
type Trial struct {
	Tier      string
	Outcome   string
	Attempts  int
	Exhausted bool
}

// Frequency is a count with its share of all trials.
type Frequency struct {
	Count int     `json:"count"`
	Rate  float64 `json:"rate"`
}

// Stats summarizes integer samples.
type Stats struct {
	Mean   float64 `json:"mean"`
	Var    float64 `json:"var"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	Max    int     `json:"max"`
}

// Report is the result of a calibration run.
type Report struct {
	Trials    int                  `json:"trials"`
	Outcomes  map[string]Frequency `json:"outcomes"`
	Tiers     map[string]Frequency `json:"tiers"`
	Exhausted Frequency            `json:"exhausted"`
	Attempts  Stats                `json:"attempts"` // classifications per round
}

// Simulate plays trials rounds through roll and tallies realized outcome and
// tier frequencies. It is the way to check what an order-dependent policy
// actually yields.
func Simulate(trials int, roll func() (Trial, error)) (Report, error) {
	rep := Report{
		Outcomes: map[string]Frequency{},
		Tiers:    map[string]Frequency{},
	}
	if trials <= 0 {
		return rep, nil
	}
	attempts := make([]int, 0, trials)
	for i := 0; i < trials; i++ {
		tr, err := roll()
		if err != nil {
			return Report{}, err
		}
		bump(rep.Outcomes, tr.Outcome)
		tier := tr.Tier
		if tier == "" {
			tier = "*"
		}
		bump(rep.Tiers, tier)
		if tr.Exhausted {
			rep.Exhausted.Count++
		}
		attempts = append(attempts, tr.Attempts)
	}
	rep.Trials = trials
	n := float64(trials)
	for k, f := range rep.Outcomes {
		f.Rate = float64(f.Count) / n
		rep.Outcomes[k] = f
	}
	for k, f := range rep.Tiers {
		f.Rate = float64(f.Count) / n
		rep.Tiers[k] = f
	}
	rep.Exhausted.Rate = float64(rep.Exhausted.Count) / n
	rep.Attempts = calcStats(attempts)
	return rep, nil
}

func bump(m map[string]Frequency, k string) {
	f := m[k]
	f.Count++
	m[k] = f
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// population variance
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		if i+1 >= n {
			return float64(cp[n-1])
		}
		f := pos - float64(i)
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:   mean,
		Var:    variance,
		StdDev: math.Sqrt(variance),
		P50:    percentile(0.50),
		P90:    percentile(0.90),
		P99:    percentile(0.99),
		Max:    cp[n-1],
	}
}
