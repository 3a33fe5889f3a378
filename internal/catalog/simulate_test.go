package catalog

import (
	"errors"
	"math"
	"testing"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
)

func TestSimulateWheel(t *testing.T) {
	c := shipped(t)
	seed := uint64(2024)
	rep, err := c.Simulate("wheel", 10000, "", game.Overrides{Seed: &seed})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Trials != 10000 {
		t.Fatalf("trials %d", rep.Trials)
	}
	for _, id := range []string{"red_packet", "heart_of_africa"} {
		if f := rep.Outcomes[id]; f.Count != 0 {
			t.Fatalf("zero-weight slot %s hit %d times", id, f.Count)
		}
	}
	if got := rep.Outcomes["floor_188"].Rate; math.Abs(got-0.70) > 0.03 {
		t.Fatalf("floor_188 rate %.3f, want about 0.70", got)
	}
	if rep.Tiers["*"].Count != 10000 {
		t.Fatalf("wheel rounds are unconstrained: %+v", rep.Tiers)
	}
}

func TestSimulateShortDice(t *testing.T) {
	c := shipped(t)
	rep, err := c.Simulate("dice-three", 500, "", game.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Outcomes[Unclassified].Count != 500 {
		t.Fatalf("three dice are never classified: %+v", rep.Outcomes)
	}
}

func TestSimulateForcedTier(t *testing.T) {
	c := shipped(t)
	seed := uint64(5)
	rep, err := c.Simulate("bull", 200, "bomb", game.Overrides{Seed: &seed})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Outcomes["bomb"].Count != 200 || rep.Exhausted.Count != 0 {
		t.Fatalf("forced bomb: %+v exhausted=%d", rep.Outcomes, rep.Exhausted.Count)
	}

	if _, err := c.Simulate("wheel", 10, "heart_of_africa", game.Overrides{}); !errors.Is(err, engine.ErrIllegalAttempt) {
		t.Fatalf("zero-weight tier: %v", err)
	}
	if _, err := c.Simulate("wheel", MaxTrials+1, "", game.Overrides{}); !errors.Is(err, ErrTooManyTrials) {
		t.Fatalf("trial cap: %v", err)
	}
	if _, err := c.Simulate("poker", 10, "", game.Overrides{}); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("unknown variant: %v", err)
	}
}
