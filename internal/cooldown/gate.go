// Package cooldown locks a variant for a while after each terminal play.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/kv"
)

// ErrLocked is wrapped by every *LockedError.
var ErrLocked = errors.New("variant is locked")

// LockedError is returned when a play is attempted during the lock.
type LockedError struct {
	Variant   string
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s is locked, %s left", e.Variant, Countdown(language.English, e.Remaining))
}

func (e *LockedError) Unwrap() error { return ErrLocked }

// Status is the gate state at one instant.
type Status struct {
	Locked    bool          `json:"locked"`
	Remaining time.Duration `json:"remaining"`
	LastPlay  time.Time     `json:"last_play,omitempty"`
	Lock      time.Duration `json:"lock"`
}

// Gate remembers the last terminal play of one variant. State is recomputed
// from the stored timestamp on every check; there are no timers.
type Gate struct {
	Store  kv.Store
	Key    string
	Lock   time.Duration // 0 disables the gate
	Now    func() time.Time
	Logger zerolog.Logger
}

// Key is the storage key for variant's last play.
func Key(variant string) string { return variant + "_last_play" }

func New(store kv.Store, variant string, lock time.Duration, log zerolog.Logger) *Gate {
	return &Gate{Store: store, Key: Key(variant), Lock: lock, Now: time.Now, Logger: log}
}

func (g *Gate) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// Status reports whether the gate is locked and for how much longer.
func (g *Gate) Status(ctx context.Context) (Status, error) {
	st := Status{Lock: g.Lock}
	if g.Lock <= 0 {
		return st, nil
	}
	last, ok, err := g.last(ctx)
	if err != nil || !ok {
		return st, err
	}
	st.LastPlay = last
	elapsed := g.now().Sub(last)
	if elapsed >= g.Lock {
		return st, nil
	}
	st.Locked = true
	st.Remaining = min(g.Lock-elapsed, g.Lock)
	return st, nil
}

// CanPlay is (true, 0) when unlocked and (false, remaining) otherwise.
func (g *Gate) CanPlay(ctx context.Context) (bool, time.Duration, error) {
	st, err := g.Status(ctx)
	if err != nil {
		return false, 0, err
	}
	return !st.Locked, st.Remaining, nil
}

// Check returns a *LockedError while the gate is locked.
func (g *Gate) Check(ctx context.Context, variant string) error {
	ok, remaining, err := g.CanPlay(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return &LockedError{Variant: variant, Remaining: remaining}
	}
	return nil
}

// RecordPlay arms the gate as of now. A disabled gate records nothing.
func (g *Gate) RecordPlay(ctx context.Context, now time.Time) error {
	if g.Lock <= 0 {
		return nil
	}
	v := strconv.FormatInt(now.UnixMilli(), 10)
	if err := g.Store.Set(ctx, g.Key, []byte(v)); err != nil {
		return fmt.Errorf("record play %s: %w", g.Key, err)
	}
	return nil
}

// Reset forces the gate open.
func (g *Gate) Reset(ctx context.Context) error {
	if err := g.Store.Remove(ctx, g.Key); err != nil {
		return fmt.Errorf("reset %s: %w", g.Key, err)
	}
	return nil
}

// last reads the stored timestamp. Malformed values count as absent.
func (g *Gate) last(ctx context.Context) (time.Time, bool, error) {
	raw, err := g.Store.Get(ctx, g.Key)
	if errors.Is(err, kv.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read %s: %w", g.Key, err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		g.Logger.Warn().
			Err(fmt.Errorf("%w: %v", engine.ErrPersistenceRead, err)).
			Str("key", g.Key).
			Msg("ignoring malformed last-play timestamp")
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}
