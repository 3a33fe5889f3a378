package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/cooldown"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/history"
	"github.com/xtding233/outcome-engine/internal/integrity"
	"github.com/xtding233/outcome-engine/internal/kv"
	"github.com/xtding233/outcome-engine/internal/variants"
	"github.com/xtding233/outcome-engine/internal/variants/dice"
	"github.com/xtding233/outcome-engine/internal/variants/wheel"
)

type fixed map[string]catalog.Entry

func (f fixed) Get(key string) (catalog.Entry, error) {
	e, ok := f[key]
	if !ok {
		return catalog.Entry{}, fmt.Errorf("%w: %q", catalog.ErrUnknownVariant, key)
	}
	return e, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func wheelParams() game.EngineParams {
	ws := []float64{70, 24, 4, 1, 0, 0}
	ids := []string{"floor_188", "floor_388", "gold_288", "insurance_388", "red_packet", "heart_of_africa"}
	p := game.EngineParams{Key: "wheel", Game: "wheel", Kind: game.KindWheel, MaxAttempts: 100, Lock: 24 * time.Hour, HistoryCapacity: 10}
	for i := range ws {
		p.Slots = append(p.Slots, game.Slot{ID: ids[i], Name: ids[i], Weight: ws[i], Multiplier: decimal.NewFromInt(int64(i + 1))})
	}
	return p
}

func diceParams() game.EngineParams {
	return game.EngineParams{Key: "dice", Game: "dice", Kind: game.KindDice, MaxAttempts: 100, DiceCount: 6, HistoryCapacity: 10}
}

func entries(t *testing.T, seed uint64) fixed {
	t.Helper()
	o := variants.Options{RNG: engine.Locked(engine.NewSeededRNG(seed))}
	w, err := wheel.New(wheelParams(), o)
	if err != nil {
		t.Fatal(err)
	}
	d, err := dice.New(diceParams(), o)
	if err != nil {
		t.Fatal(err)
	}
	return fixed{
		"wheel": {Variant: w, Params: wheelParams()},
		"dice":  {Variant: d, Params: diceParams()},
	}
}

func newRegistry(t *testing.T) (*Registry, *clock, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	c := &clock{t: time.Date(2024, 2, 10, 20, 0, 0, 0, time.UTC)}
	r := NewRegistry(entries(t, 7), store, zerolog.Nop())
	r.Now = c.Now
	return r, c, store
}

func TestPlayLocksWheel(t *testing.T) {
	ctx := context.Background()
	r, c, _ := newRegistry(t)
	s, err := r.Session(ctx, "alice", "wheel")
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Play(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Terminal || res.Cooldown != 24*time.Hour || res.Variant != "wheel" {
		t.Fatalf("result %+v", res)
	}

	_, err = s.Draw(ctx)
	var locked *cooldown.LockedError
	if !errors.As(err, &locked) || locked.Remaining != 24*time.Hour {
		t.Fatalf("second play must be locked, got %v", err)
	}

	c.Advance(24 * time.Hour)
	if _, err := s.Play(ctx); err != nil {
		t.Fatalf("lock should have expired: %v", err)
	}
	if got := s.History(0); len(got) != 2 || got[0].Time.Before(got[1].Time) {
		t.Fatalf("history %+v", got)
	}
}

func TestStagedReveal(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	s, _ := r.Session(ctx, "bob", "wheel")

	p, err := s.Draw(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first := p.Result()
	if _, err := s.Draw(ctx); !errors.Is(err, ErrDrawInFlight) {
		t.Fatalf("want ErrDrawInFlight, got %v", err)
	}
	if again := p.Result(); again.ID != first.ID || string(again.Draw) != string(first.Draw) {
		t.Fatalf("pending result changed between reads")
	}
	if _, err := s.Commit(ctx, uuid.New()); !errors.Is(err, ErrNoPendingDraw) {
		t.Fatalf("commit of a foreign id: %v", err)
	}

	res, err := s.Commit(ctx, p.ID())
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != first.ID || res.Outcome.ID != first.Outcome.ID || string(res.Draw) != string(first.Draw) {
		t.Fatalf("commit re-randomized: %+v vs %+v", res, first)
	}
	if _, err := s.Commit(ctx, p.ID()); !errors.Is(err, ErrNoPendingDraw) {
		t.Fatalf("double commit: %v", err)
	}
}

func TestAbandonLeavesGateOpen(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	s, _ := r.Session(ctx, "carol", "wheel")

	p, _ := s.Draw(ctx)
	res, err := s.Abandon(ctx, p.ID())
	if err != nil {
		t.Fatal(err)
	}
	if res.Terminal {
		t.Fatalf("abandoned draw marked terminal")
	}
	if st, _ := s.Cooldown(ctx); st.Locked {
		t.Fatalf("abandon must not arm the gate")
	}
	h := s.History(0)
	if len(h) != 1 || h[0].Terminal || h[0].ID != p.ID() {
		t.Fatalf("history %+v", h)
	}
	if _, err := s.Draw(ctx); err != nil {
		t.Fatalf("draw after abandon: %v", err)
	}
}

func TestResetCooldown(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	s, _ := r.Session(ctx, "dan", "wheel")
	if _, err := s.Play(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.ResetCooldown(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(ctx); err != nil {
		t.Fatalf("play after reset: %v", err)
	}
}

func TestDiceHasNoLock(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	s, _ := r.Session(ctx, "erin", "dice")
	for i := 0; i < 12; i++ {
		res, err := s.Play(ctx)
		if err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
		if res.Cooldown != 0 || !res.Classified {
			t.Fatalf("result %+v", res)
		}
	}
	if got := len(s.History(0)); got != history.DefaultCapacity {
		t.Fatalf("history len %d", got)
	}
	if got := len(s.History(5)); got != 5 {
		t.Fatalf("collapsed history len %d", got)
	}
}

func TestDrawTier(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	s, _ := r.Session(ctx, "fay", "wheel")

	if _, err := s.DrawTier(ctx, "heart_of_africa"); !errors.Is(err, engine.ErrIllegalAttempt) {
		t.Fatalf("zero-weight slot: %v", err)
	}
	p, err := s.DrawTier(ctx, "insurance_388")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Result().Outcome.ID; got != "insurance_388" {
		t.Fatalf("forced tier landed on %s", got)
	}
}

func TestPlayersAreIsolated(t *testing.T) {
	ctx := context.Background()
	r, _, store := newRegistry(t)
	a, _ := r.Session(ctx, "tg:1", "wheel")
	b, _ := r.Session(ctx, "tg:2", "wheel")
	if _, err := a.Play(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Play(ctx); err != nil {
		t.Fatalf("other player must not share the lock: %v", err)
	}
	if _, err := store.Get(ctx, "tg:1:wheel_last_play"); err != nil {
		t.Fatalf("namespaced key missing: %v", err)
	}
	same, _ := r.Session(ctx, "tg:1", "wheel")
	if same != a || r.Len() != 2 {
		t.Fatalf("registry must reuse sessions")
	}
}

func TestSessionReloadsHistory(t *testing.T) {
	ctx := context.Background()
	r, _, store := newRegistry(t)
	s, _ := r.Session(ctx, "gus", "dice")
	for i := 0; i < 3; i++ {
		_, _ = s.Play(ctx)
	}
	r.Close()

	fresh := NewRegistry(r.Variants, store, zerolog.Nop())
	s2, err := fresh.Session(ctx, "gus", "dice")
	if err != nil {
		t.Fatal(err)
	}
	if len(s2.History(0)) != 3 {
		t.Fatalf("history not restored: %d", len(s2.History(0)))
	}
}

func TestUnknownVariantAndPlayer(t *testing.T) {
	r, _, _ := newRegistry(t)
	if _, err := r.Session(context.Background(), "hal", "slots"); !errors.Is(err, catalog.ErrUnknownVariant) {
		t.Fatalf("unknown variant: %v", err)
	}
	if _, err := r.Session(context.Background(), " ", "dice"); err == nil {
		t.Fatalf("blank player must fail")
	}
}

func TestMonitorLifecycle(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	factory, active := integrity.NewLogged(zerolog.Nop())
	r.Monitor = factory
	_, _ = r.Session(ctx, "ivy", "dice")
	_, _ = r.Session(ctx, "ivy", "wheel")
	if active.Load() != 2 {
		t.Fatalf("active monitors %d", active.Load())
	}
	r.Close()
	if active.Load() != 0 || r.Len() != 0 {
		t.Fatalf("close left %d monitors", active.Load())
	}
}

func TestRebindAfterReload(t *testing.T) {
	ctx := context.Background()
	vs := entries(t, 1)
	r := NewRegistry(vs, kv.NewMemory(), zerolog.Nop())
	s, _ := r.Session(ctx, "jo", "dice")
	p, _ := s.Draw(ctx)

	reloaded := entries(t, 2)
	e := reloaded["dice"]
	e.Params.HistoryCapacity = 3
	vs["dice"] = e

	if got, _ := r.Session(ctx, "jo", "dice"); got.Variant() == e.Variant {
		t.Fatalf("variant swapped under a pending draw")
	}
	_, _ = s.Commit(ctx, p.ID())
	if got, _ := r.Session(ctx, "jo", "dice"); got.Variant() != e.Variant {
		t.Fatalf("variant not swapped after commit")
	}
}

func TestConcurrentPlays(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Session(ctx, "kim", "dice")
			if err == nil {
				_, err = s.Play(ctx)
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	s, _ := r.Session(ctx, "kim", "dice")
	if got := len(s.History(0)); got != history.DefaultCapacity {
		t.Fatalf("history len %d after 40 plays", got)
	}
}

type brokenGate struct {
	kv.Store
	fail atomic.Bool
}

func (b *brokenGate) Set(ctx context.Context, key string, value []byte) error {
	if b.fail.Load() && strings.HasSuffix(key, "_last_play") {
		return errors.New("disk full")
	}
	return b.Store.Set(ctx, key, value)
}

func TestCommitKeepsDrawWhenGateWriteFails(t *testing.T) {
	ctx := context.Background()
	store := &brokenGate{Store: kv.NewMemory()}
	store.fail.Store(true)
	r := NewRegistry(entries(t, 3), store, zerolog.Nop())
	s, err := r.Session(ctx, "lee", "wheel")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Play(ctx); err == nil {
		t.Fatal("play succeeded without arming the gate")
	}
	if got := len(s.History(0)); got != 0 {
		t.Fatalf("failed play recorded %d entries", got)
	}
	if _, ok := s.Pending(); !ok {
		t.Fatal("draw dropped after a failed commit")
	}
	if _, err := s.Play(ctx); !errors.Is(err, ErrDrawInFlight) {
		t.Fatalf("second play: %v", err)
	}

	store.fail.Store(false)
	res, err := s.Commit(ctx, uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if h := s.History(0); len(h) != 1 || h[0].ID != res.ID || !h[0].Terminal {
		t.Fatalf("history %+v", h)
	}
	var locked *cooldown.LockedError
	if _, err := s.Draw(ctx); !errors.As(err, &locked) {
		t.Fatalf("gate not armed after retry: %v", err)
	}
}

func TestShortDiceNotRecorded(t *testing.T) {
	ctx := context.Background()
	p := diceParams()
	p.Key, p.Profile, p.DiceCount = "dice-three", "three", 3
	d, err := dice.New(p, variants.Options{RNG: engine.NewSeededRNG(4)})
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(fixed{"dice-three": {Variant: d, Params: p}}, kv.NewMemory(), zerolog.Nop())
	s, err := r.Session(ctx, "max", "dice-three")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		res, err := s.Play(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if res.Classified || !res.Terminal || res.Summary == "" {
			t.Fatalf("short roll %+v", res)
		}
	}
	if got := len(s.History(0)); got != 0 {
		t.Fatalf("short rolls kept %d history entries", got)
	}
}

func TestReadsDuringRebind(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	s, err := r.Session(ctx, "ned", "wheel")
	if err != nil {
		t.Fatal(err)
	}
	v := s.Variant()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.rebind(v, time.Duration(i)*time.Minute, 5+i%5)
		}
	}()
	for i := 0; i < 200; i++ {
		if _, err := s.Cooldown(ctx); err != nil {
			t.Fatal(err)
		}
		_ = s.History(0)
	}
	<-done
}
