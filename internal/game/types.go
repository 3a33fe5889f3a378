// types.go
package game

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xtding233/outcome-engine/internal/engine"
)

// Kinds of variant a config can describe.
const (
	KindDice  = "dice"
	KindBull  = "bull"
	KindWheel = "wheel"
)

// RawConfig is one YAML layer (default, game or profile).
type RawConfig struct {
	Version  string         `yaml:"version"`
	Kind     string         `yaml:"kind"`
	Engine   EngineConfig   `yaml:"engine"`
	Cooldown CooldownConfig `yaml:"cooldown"`
	History  HistoryConfig  `yaml:"history"`
	Policy   *PolicyConfig  `yaml:"policy,omitempty"`
	Dice     *DiceConfig    `yaml:"dice,omitempty"`
	Wheel    *WheelConfig   `yaml:"wheel,omitempty"`
	Notes    string         `yaml:"notes,omitempty"`
}

type EngineConfig struct {
	MaxAttempts *int    `yaml:"max_attempts"`
	Entropy     string  `yaml:"entropy"` // crypto | fast | seeded
	Seed        *uint64 `yaml:"seed"`
}

type CooldownConfig struct {
	Lock *time.Duration `yaml:"lock"` // 0 disables the gate
}

type HistoryConfig struct {
	Capacity *int `yaml:"capacity"`
}

// PolicyConfig is replaced as a whole by later layers.
type PolicyConfig struct {
	Tiers    []TierConfig    `yaml:"tiers"`
	Ordinary *OrdinaryConfig `yaml:"ordinary,omitempty"`
}

type TierConfig struct {
	Name        string   `yaml:"name"`
	Probability float64  `yaml:"probability"`
	Attempts    int      `yaml:"attempts,omitempty"`
	Outcomes    []string `yaml:"outcomes,omitempty"`
}

type OrdinaryConfig struct {
	Tier              string   `yaml:"tier"` // empty = unconstrained draw
	Outcomes          []string `yaml:"outcomes,omitempty"`
	Attempts          int      `yaml:"attempts,omitempty"`
	Prefer            string   `yaml:"prefer,omitempty"`
	PreferOutcomes    []string `yaml:"prefer_outcomes,omitempty"`
	PreferProbability float64  `yaml:"prefer_probability,omitempty"`
	PreferAttempts    int      `yaml:"prefer_attempts,omitempty"`
}

type DiceConfig struct {
	Count *int `yaml:"count"`
}

type WheelConfig struct {
	Slots []SlotConfig `yaml:"slots"`
}

type SlotConfig struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Weight     float64 `yaml:"weight"`
	Multiplier string  `yaml:"multiplier,omitempty"` // decimal, e.g. "1.5"
	Color      string  `yaml:"color,omitempty"`
}

// EngineParams is the normalized form consumed when building a variant.
type EngineParams struct {
	Key     string // game, or game-profile
	Game    string
	Profile string
	Kind    string
	Version string // effective config version for tracing

	MaxAttempts int
	Entropy     string
	Seed        uint64

	Lock            time.Duration
	HistoryCapacity int

	Tiers    []engine.Tier
	Ordinary engine.Ordinary

	DiceCount int
	Slots     []Slot
}

// Slot is one wheel segment.
type Slot struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Weight     float64         `json:"weight"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Color      string          `json:"color,omitempty"`
}
