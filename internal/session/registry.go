package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/cooldown"
	"github.com/xtding233/outcome-engine/internal/history"
	"github.com/xtding233/outcome-engine/internal/integrity"
	"github.com/xtding233/outcome-engine/internal/kv"
)

// ErrNoPlayer is returned for a blank player id.
var ErrNoPlayer = errors.New("player is required")

// Variants resolves variant keys. *catalog.Catalog implements it.
type Variants interface {
	Get(key string) (catalog.Entry, error)
}

// Registry hands out one Session per (player, variant). Each player's state
// lives under its own key prefix in Store.
type Registry struct {
	Variants Variants
	Store    kv.Store
	Logger   zerolog.Logger
	Tracer   trace.Tracer
	Now      func() time.Time
	// Monitor builds the integrity monitor of a new session; nil uses
	// integrity.Nop.
	Monitor func(name string) integrity.Monitor

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(v Variants, store kv.Store, log zerolog.Logger) *Registry {
	return &Registry{Variants: v, Store: store, Logger: log, sessions: map[string]*Session{}}
}

// Prefix is the storage namespace of a player.
func Prefix(player string) string { return player + ":" }

// Session returns the session of player on variant, opening it on first
// use. A session opened before a config reload picks up the new variant
// once it has no pending draw.
func (r *Registry) Session(ctx context.Context, player, variant string) (*Session, error) {
	if strings.TrimSpace(player) == "" {
		return nil, ErrNoPlayer
	}
	e, err := r.Variants.Get(variant)
	if err != nil {
		return nil, err
	}
	name := player + "/" + variant

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions == nil {
		r.sessions = map[string]*Session{}
	}
	if s, ok := r.sessions[name]; ok {
		if s.Variant() != e.Variant && s.rebind(e.Variant, e.Params.Lock, e.Params.HistoryCapacity) {
			r.Logger.Info().Str("session", name).Msg("session picked up reloaded variant")
		}
		return s, nil
	}

	store := kv.WithPrefix(r.Store, Prefix(player))
	log := r.Logger.With().Str("player", player).Str("variant", variant).Logger()
	h, err := history.Open(ctx, store, variant, e.Params.HistoryCapacity, log)
	if err != nil {
		return nil, err
	}
	gate := cooldown.New(store, variant, e.Params.Lock, log)
	if r.Now != nil {
		gate.Now = r.Now
	}
	var mon integrity.Monitor = integrity.Nop{}
	if r.Monitor != nil {
		mon = r.Monitor(name)
	}
	s := New(Config{
		Variant: e.Variant,
		Gate:    gate,
		History: h,
		Monitor: mon,
		Tracer:  r.Tracer,
		Now:     r.Now,
		Logger:  log,
	})
	r.sessions[name] = s
	return s, nil
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.sessions {
		s.Close()
		delete(r.sessions, name)
	}
}
