package game

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xtding233/outcome-engine/internal/engine"
)

func ptr[T any](v T) *T { return &v }

func TestValidateRawCollectsEverything(t *testing.T) {
	cfg := RawConfig{
		Kind:     KindWheel,
		Engine:   EngineConfig{MaxAttempts: ptr(0), Entropy: "seeded"},
		Cooldown: CooldownConfig{Lock: ptr(-time.Second)},
		History:  HistoryConfig{Capacity: ptr(0)},
		Policy: &PolicyConfig{Tiers: []TierConfig{
			{Name: "a", Probability: 2},
			{Name: "a", Attempts: -1},
		}},
		Wheel: &WheelConfig{Slots: []SlotConfig{
			{ID: "x", Weight: 0, Multiplier: "ten"},
			{ID: "x", Weight: -1},
		}},
	}
	err := ValidateRaw(cfg)
	if !errors.Is(err, engine.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
	for _, want := range []string{
		"engine.max_attempts",
		"engine.seed is required",
		"cooldown.lock",
		"history.capacity",
		"not used by wheel",
		"policy.tiers[0].probability",
		"policy.tiers[1].name \"a\" is duplicated",
		"policy.tiers[1].attempts",
		"wheel.slots[0].multiplier",
		"wheel.slots[1].id \"x\" is duplicated",
		"wheel.slots[1].weight",
		"at least one positive weight",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestValidateRawKinds(t *testing.T) {
	if err := ValidateRaw(RawConfig{}); err == nil || !strings.Contains(err.Error(), "kind is required") {
		t.Fatalf("empty kind: %v", err)
	}
	if err := ValidateRaw(RawConfig{Kind: "poker"}); err == nil {
		t.Fatalf("unknown kind must fail")
	}
	if err := ValidateRaw(RawConfig{Kind: KindWheel}); err == nil || !strings.Contains(err.Error(), "wheel.slots is required") {
		t.Fatalf("wheel without slots: %v", err)
	}
	if err := ValidateRaw(RawConfig{Kind: KindDice, Dice: &DiceConfig{Count: ptr(7)}}); err == nil {
		t.Fatalf("seven dice must fail")
	}
	ok := RawConfig{Kind: KindBull, Policy: &PolicyConfig{
		Tiers:    []TierConfig{{Name: "bomb", Probability: 0.1}},
		Ordinary: &OrdinaryConfig{Tier: "ordinary", Outcomes: []string{"no_bull"}, Prefer: "no_bull_pref", PreferProbability: 0.5},
	}}
	if err := ValidateRaw(ok); err != nil {
		t.Fatalf("valid bull config rejected: %v", err)
	}
}
