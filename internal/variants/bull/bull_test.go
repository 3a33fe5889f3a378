package bull

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/variants"
)

func mustParse(t *testing.T, s string) Hand {
	t.Helper()
	h, ok := Parse(s)
	if !ok {
		t.Fatalf("bad hand %q", s)
	}
	return h
}

func TestClassifyScenarios(t *testing.T) {
	cases := []struct {
		hand string
		id   string
		mult int64
	}{
		{"4♠ 4♥ 4♦ 4♣ 7♠", Bomb, 17},
		{"A♠ A♥ A♦ A♣ 2♠", Bomb, 17}, // also five small; bomb wins
		{"K♠ K♥ K♦ K♣ K♠", Bomb, 17},
		{"A♠ 2♥ 3♦ A♣ 2♠", FiveSmall, 20},
		{"J♠ Q♥ K♦ J♣ Q♠", FiveFace, 15},
		{"10♠ J♥ Q♦ 5♣ 5♠", BullBull, 10},
		{"3♠ 7♥ K♦ 2♣ 5♠", BullN(7), 7},
		{"9♠ A♥ K♦ 4♣ 5♠", BullN(9), 9},
		{"6♠ 4♥ K♦ A♣ 2♠", BullN(3), 3},
		{"A♠ 2♥ 4♦ 6♣ 9♠", NoBull, 0},
	}
	for _, tc := range cases {
		o := Table.Classify(mustParse(t, tc.hand))
		if o.ID != tc.id || !o.Multiplier.Equal(decimal.NewFromInt(tc.mult)) {
			t.Fatalf("%s: got %s x%s, want %s x%d", tc.hand, o.ID, o.Multiplier, tc.id, tc.mult)
		}
	}
}

func TestRanksAndColors(t *testing.T) {
	want := map[string]int{Bomb: 13, FiveSmall: 12, FiveFace: 11, BullBull: 10, BullN(9): 9, BullN(1): 1, NoBull: -1}
	for id, rank := range want {
		o, ok := Table.Outcome(id)
		if !ok || o.Rank != rank {
			t.Fatalf("%s rank = %d ok=%v", id, o.Rank, ok)
		}
	}
	b7, _ := Table.Outcome(BullN(7))
	b6, _ := Table.Outcome(BullN(6))
	if b7.Color != good || b6.Color != minor {
		t.Fatalf("bull 7 should be good and bull 6 minor: %s %s", b7.Color, b6.Color)
	}
}

func TestPointAgreesWithClassifier(t *testing.T) {
	rng := engine.NewSeededRNG(4)
	for i := 0; i < 20000; i++ {
		h := Deal(rng)
		o := Table.Classify(h)
		if o.Rank > 10 {
			continue
		}
		p, ok := h.Point()
		switch {
		case !ok && o.ID != NoBull:
			t.Fatalf("%s has no bull but classified %s", h, o.ID)
		case ok && p == 0 && o.ID != BullBull:
			t.Fatalf("%s point 0 classified %s", h, o.ID)
		case ok && p > 0 && o.ID != BullN(p):
			t.Fatalf("%s point %d classified %s", h, p, o.ID)
		}
	}
}

func TestConstructorsRoundTrip(t *testing.T) {
	rng := engine.NewSeededRNG(6)
	for id, build := range Constructors() {
		for i := 0; i < 500; i++ {
			h := build(rng)
			if got := Table.Classify(h); got.ID != id {
				t.Fatalf("%s built %s which classifies as %s", id, h, got.ID)
			}
		}
	}
	if n := len(fiveFaceRanks); n != 210 {
		t.Fatalf("five face pool = %d", n)
	}
}

func bullParams() game.EngineParams {
	return game.EngineParams{
		Key: "bull", Kind: game.KindBull, MaxAttempts: 100,
		Tiers: []engine.Tier{
			{Name: Bomb, Probability: 0.0002},
			{Name: FiveSmall, Probability: 0.000005},
			{Name: FiveFace, Probability: 0.0003},
			{Name: NoBull, Probability: 0.2, Attempts: 50},
			{Name: BullBull, Probability: 0.03},
			{Name: BullN(9), Probability: 0.05},
			{Name: BullN(8), Probability: 0},
		},
		Ordinary: engine.Ordinary{Tier: engine.Tier{Name: "ordinary", Outcomes: []string{
			BullN(1), BullN(2), BullN(3), BullN(4), BullN(5), BullN(6), BullN(7), NoBull,
		}}},
	}
}

func TestGameForcedTiers(t *testing.T) {
	g, err := New(bullParams(), variants.Options{RNG: engine.NewSeededRNG(10)})
	if err != nil {
		t.Fatal(err)
	}
	r, err := g.RollTier(Bomb)
	if err != nil {
		t.Fatal(err)
	}
	if r.Outcome.ID != Bomb || r.Stats.Attempts != 1 || !r.Stats.Direct {
		t.Fatalf("bomb round %+v", r)
	}
	r, err = g.RollTier(NoBull)
	if err != nil {
		t.Fatal(err)
	}
	if r.Stats.Attempts > 50 || (!r.Stats.Exhausted && r.Outcome.ID != NoBull) {
		t.Fatalf("no_bull round %+v", r)
	}
	if _, err := g.RollTier(BullN(8)); !errors.Is(err, engine.ErrIllegalAttempt) {
		t.Fatalf("zero-probability tier: want ErrIllegalAttempt, got %v", err)
	}
}

func TestGameOrdinaryStaysOrdinary(t *testing.T) {
	g, err := New(bullParams(), variants.Options{RNG: engine.NewSeededRNG(12)})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 300; i++ {
		r, err := g.RollTier("ordinary")
		if err != nil {
			t.Fatal(err)
		}
		if r.Stats.Exhausted {
			continue
		}
		if r.Outcome.Rank > 7 {
			t.Fatalf("ordinary round produced %s", r.Outcome.ID)
		}
	}
}

func TestNewRejectsUnknownTier(t *testing.T) {
	p := bullParams()
	p.Tiers = append(p.Tiers, engine.Tier{Name: "royal_flush", Probability: 0.1})
	if _, err := New(p, variants.Options{}); !errors.Is(err, engine.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}
