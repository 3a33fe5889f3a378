package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownGame    = errors.New("unknown game")
	ErrUnknownProfile = errors.New("unknown profile")
)

// Paths locates default/game/profile files under BaseDir.
type Paths struct {
	BaseDir string // e.g. ./configs
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "games", "default.yaml")
}
func (p Paths) GamePath(game string) string {
	return filepath.Join(p.BaseDir, "games", game+".yaml")
}
func (p Paths) ProfilePath(game, profile string) string {
	return filepath.Join(p.BaseDir, "games", game, "profiles", profile+".yaml")
}

// Loader reads YAML configs and merges default -> game -> profile.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // "game" or "game/profile"
}

func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

// VariantKey names the variant built from game and profile.
func VariantKey(game, profile string) string {
	if profile == "" {
		return game
	}
	return game + "-" + profile
}

// LoadMerged returns the merged (not yet validated) config. The game file
// must exist; the profile file must exist when a profile is named.
func (l *Loader) LoadMerged(game, profile string) (RawConfig, error) {
	key := game
	if profile != "" {
		key += "/" + profile
	}
	l.mu.RLock()
	cfg, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	if game == "" || strings.ContainsAny(game, `/\.`) {
		return RawConfig{}, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	defCfg, _, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	gameCfg, found, err := readYAML(l.paths.GamePath(game))
	if err != nil {
		return RawConfig{}, fmt.Errorf("read game %s: %w", game, err)
	}
	if !found {
		return RawConfig{}, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	merged := mergeRaw(defCfg, gameCfg)

	if profile != "" {
		if strings.ContainsAny(profile, `/\.`) {
			return RawConfig{}, fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
		}
		profCfg, found, err := readYAML(l.paths.ProfilePath(game, profile))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read profile %s/%s: %w", game, profile, err)
		}
		if !found {
			return RawConfig{}, fmt.Errorf("%w: %s/%s", ErrUnknownProfile, game, profile)
		}
		merged = mergeRaw(merged, profCfg)
	}

	l.mu.Lock()
	l.cache[key] = merged
	l.mu.Unlock()
	return merged, nil
}

// Profiles lists the profile names available for game.
func (l *Loader) Profiles(game string) []string {
	matches, _ := filepath.Glob(filepath.Join(l.paths.BaseDir, "games", game, "profiles", "*.yaml"))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".yaml"))
	}
	sort.Strings(out)
	return out
}

// Files lists every config file that can affect games, for the watcher.
func (l *Loader) Files(games []string) []string {
	files := []string{l.paths.DefaultPath()}
	for _, g := range games {
		files = append(files, l.paths.GamePath(g))
		for _, p := range l.Profiles(g) {
			files = append(files, l.paths.ProfilePath(g, p))
		}
	}
	return files
}

// Invalidate clears the cache. Call after the watcher reports changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads one layer. A missing file is not an error.
func readYAML(path string) (RawConfig, bool, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, false, nil
		}
		return RawConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, true, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, true, nil
}

// mergeRaw overlays b on a: set scalars and non-nil pointers in b win,
// sections given as a whole (policy, wheel slots) replace a's.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Kind != "" {
		out.Kind = b.Kind
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// engine
	if b.Engine.MaxAttempts != nil {
		out.Engine.MaxAttempts = b.Engine.MaxAttempts
	}
	if b.Engine.Entropy != "" {
		out.Engine.Entropy = b.Engine.Entropy
	}
	if b.Engine.Seed != nil {
		out.Engine.Seed = b.Engine.Seed
	}

	if b.Cooldown.Lock != nil {
		out.Cooldown.Lock = b.Cooldown.Lock
	}
	if b.History.Capacity != nil {
		out.History.Capacity = b.History.Capacity
	}

	if b.Policy != nil {
		c := *b.Policy
		c.Tiers = append([]TierConfig(nil), b.Policy.Tiers...)
		out.Policy = &c
	}
	if b.Dice != nil {
		switch {
		case out.Dice == nil:
			c := *b.Dice
			out.Dice = &c
		case b.Dice.Count != nil:
			c := *out.Dice
			c.Count = b.Dice.Count
			out.Dice = &c
		}
	}
	if b.Wheel != nil && len(b.Wheel.Slots) > 0 {
		out.Wheel = &WheelConfig{Slots: append([]SlotConfig(nil), b.Wheel.Slots...)}
	}

	return out
}
