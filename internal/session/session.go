// Package session runs the draw, reveal and commit cycle of one player on
// one variant.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xtding233/outcome-engine/internal/cooldown"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/history"
	"github.com/xtding233/outcome-engine/internal/integrity"
	"github.com/xtding233/outcome-engine/internal/variants"
)

var (
	ErrDrawInFlight  = errors.New("a draw is already pending")
	ErrNoPendingDraw = errors.New("no pending draw")
)

const tracerName = "github.com/xtding233/outcome-engine/internal/session"

// Result is the frozen record of one draw.
type Result struct {
	ID         uuid.UUID          `json:"id"`
	Variant    string             `json:"variant"`
	Tier       string             `json:"tier,omitempty"`
	Draw       json.RawMessage    `json:"draw"`
	Outcome    engine.Outcome     `json:"outcome"`
	Classified bool               `json:"classified"`
	Summary    string             `json:"summary"`
	Stats      engine.SampleStats `json:"stats"`
	Terminal   bool               `json:"terminal"`
	Cooldown   time.Duration      `json:"cooldown"` // lock armed by this result
	Time       time.Time          `json:"time"`
}

func (r Result) entry() history.Entry {
	return history.Entry{
		ID:       r.ID,
		Variant:  r.Variant,
		Tier:     r.Tier,
		Draw:     r.Draw,
		Summary:  r.Summary,
		Outcome:  r.Outcome,
		Terminal: r.Terminal,
		Time:     r.Time,
	}
}

// Pending is a computed draw waiting to be committed or abandoned. Its
// result never changes.
type Pending struct {
	result Result
}

func (p *Pending) ID() uuid.UUID { return p.result.ID }

// Result returns a copy of the frozen record.
func (p *Pending) Result() Result {
	r := p.result
	r.Draw = append(json.RawMessage(nil), p.result.Draw...)
	return r
}

// Config wires a Session.
type Config struct {
	Variant variants.Variant
	Gate    *cooldown.Gate
	History *history.Log
	Monitor integrity.Monitor
	Tracer  trace.Tracer
	Now     func() time.Time
	Logger  zerolog.Logger
}

// Session serializes every operation of one player on one variant.
type Session struct {
	mu      sync.Mutex
	variant variants.Variant
	gate    *cooldown.Gate
	history *history.Log
	monitor integrity.Monitor
	tracer  trace.Tracer
	now     func() time.Time
	log     zerolog.Logger
	pending *Pending
	closed  bool
}

// New starts a session and its integrity monitor.
func New(c Config) *Session {
	s := &Session{
		variant: c.Variant,
		gate:    c.Gate,
		history: c.History,
		monitor: c.Monitor,
		tracer:  c.Tracer,
		now:     c.Now,
		log:     c.Logger,
	}
	if s.monitor == nil {
		s.monitor = integrity.Nop{}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.monitor.Start()
	return s
}

func (s *Session) Variant() variants.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant
}

// Draw computes the next result. It fails with *cooldown.LockedError while
// the gate is locked and with ErrDrawInFlight while a draw is pending.
func (s *Session) Draw(ctx context.Context) (*Pending, error) {
	return s.draw(ctx, "", false)
}

// DrawTier is Draw with the tier forced. Tiers the variant can never yield
// are rejected with engine.ErrIllegalAttempt.
func (s *Session) DrawTier(ctx context.Context, tier string) (*Pending, error) {
	return s.draw(ctx, tier, true)
}

func (s *Session) draw(ctx context.Context, tier string, forced bool) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked(ctx, tier, forced)
}

func (s *Session) drawLocked(ctx context.Context, tier string, forced bool) (_ *Pending, err error) {
	ctx, span := s.tracer.Start(ctx, "session.Draw", trace.WithAttributes(
		attribute.String("variant", s.variant.Key()),
		attribute.Bool("forced", forced),
	))
	defer func() { end(span, err) }()

	if s.pending != nil {
		return nil, fmt.Errorf("%w: %s", ErrDrawInFlight, s.pending.result.ID)
	}
	if err := s.gate.Check(ctx, s.variant.Key()); err != nil {
		return nil, err
	}

	var round variants.Round
	if forced {
		round, err = s.variant.RollTier(tier)
	} else {
		round, err = s.variant.Roll()
	}
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(round.Draw)
	if err != nil {
		return nil, fmt.Errorf("encode draw: %w", err)
	}
	s.pending = &Pending{result: Result{
		ID:         uuid.New(),
		Variant:    round.Variant,
		Tier:       round.Tier,
		Draw:       raw,
		Outcome:    round.Outcome,
		Classified: round.Classified,
		Summary:    round.Summary,
		Stats:      round.Stats,
		Time:       s.now(),
	}}
	span.SetAttributes(
		attribute.String("tier", round.Tier),
		attribute.String("outcome", round.Outcome.ID),
		attribute.Int("attempts", round.Stats.Attempts),
		attribute.Bool("exhausted", round.Stats.Exhausted),
	)
	s.log.Debug().
		Str("variant", round.Variant).
		Str("tier", round.Tier).
		Str("outcome", round.Outcome.ID).
		Int("attempts", round.Stats.Attempts).
		Msg("draw computed")
	return s.pending, nil
}

// Pending returns the draw awaiting commit, if any.
func (s *Session) Pending() (*Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pending != nil
}

func (s *Session) take(id uuid.UUID) (Result, error) {
	if s.pending == nil {
		return Result{}, ErrNoPendingDraw
	}
	if id != uuid.Nil && id != s.pending.result.ID {
		return Result{}, fmt.Errorf("%w: %s", ErrNoPendingDraw, id)
	}
	return s.pending.Result(), nil
}

// Commit makes the pending draw terminal: the cooldown gate is armed and the
// draw is appended to history. uuid.Nil commits whatever is pending.
func (s *Session) Commit(ctx context.Context, id uuid.UUID) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, id)
}

func (s *Session) commitLocked(ctx context.Context, id uuid.UUID) (_ Result, err error) {
	ctx, span := s.tracer.Start(ctx, "session.Commit", trace.WithAttributes(
		attribute.String("variant", s.variant.Key()),
	))
	defer func() { end(span, err) }()

	r, err := s.take(id)
	if err != nil {
		return Result{}, err
	}
	r.Terminal = true
	if s.gate.Lock > 0 {
		r.Cooldown = s.gate.Lock
	}
	// the gate is armed first; on any failure the draw stays pending
	if err := s.gate.RecordPlay(ctx, r.Time); err != nil {
		return Result{}, err
	}
	if err := s.record(ctx, r); err != nil {
		return Result{}, err
	}
	s.pending = nil
	span.SetAttributes(attribute.String("outcome", r.Outcome.ID))
	return r, nil
}

// Abandon discards the pending draw. It is still recorded, as non-terminal,
// and the gate is left alone.
func (s *Session) Abandon(ctx context.Context, id uuid.UUID) (_ Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, span := s.tracer.Start(ctx, "session.Abandon", trace.WithAttributes(
		attribute.String("variant", s.variant.Key()),
	))
	defer func() { end(span, err) }()

	r, err := s.take(id)
	if err != nil {
		return Result{}, err
	}
	if err := s.record(ctx, r); err != nil {
		return Result{}, err
	}
	s.pending = nil
	return r, nil
}

// record appends r to history. Unclassified rounds (short dice rolls) only
// report a total and are not kept.
func (s *Session) record(ctx context.Context, r Result) error {
	if !r.Classified {
		return nil
	}
	return s.history.Append(ctx, r.entry())
}

// Play draws and commits in one step.
func (s *Session) Play(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.drawLocked(ctx, "", false)
	if err != nil {
		return Result{}, err
	}
	return s.commitLocked(ctx, p.ID())
}

// History returns up to n entries, newest first; n <= 0 returns all.
func (s *Session) History(n int) []history.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent(n)
}

func (s *Session) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Clear(ctx)
}

func (s *Session) Cooldown(ctx context.Context) (cooldown.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Status(ctx)
}

func (s *Session) ResetCooldown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Reset(ctx)
}

// rebind swaps in a reloaded variant. It is skipped while a draw is
// pending so the frozen result stays consistent with its variant.
func (s *Session) rebind(v variants.Variant, lock time.Duration, capacity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return false
	}
	s.variant = v
	s.gate.Lock = lock
	s.history.Resize(capacity)
	return true
}

// Close stops the integrity monitor. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.monitor.Stop()
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
