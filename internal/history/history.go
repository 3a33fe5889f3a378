// Package history keeps the last few results of a variant.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/kv"
)

// DefaultCapacity is how many entries a log keeps when none is configured.
const DefaultCapacity = 10

// Entry is one recorded result.
type Entry struct {
	ID       uuid.UUID       `json:"id"`
	Variant  string          `json:"variant"`
	Tier     string          `json:"tier,omitempty"`
	Draw     json.RawMessage `json:"draw"`
	Summary  string          `json:"summary,omitempty"`
	Outcome  engine.Outcome  `json:"outcome"`
	Terminal bool            `json:"terminal"`
	Time     time.Time       `json:"time"`
}

// Key is the storage key for variant's history.
func Key(variant string) string { return variant + "_history" }

// Log is a bounded, persisted list of entries. The oldest entry is evicted
// once capacity is reached. It is safe for concurrent use.
type Log struct {
	store  kv.Store
	key    string
	logger zerolog.Logger

	mu       sync.Mutex
	capacity int
	entries  []Entry // oldest first
}

// Open loads the stored history of variant. An unreadable record is logged
// and treated as empty.
func Open(ctx context.Context, store kv.Store, variant string, capacity int, log zerolog.Logger) (*Log, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{store: store, key: Key(variant), logger: log, capacity: capacity}
	raw, err := store.Get(ctx, l.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", l.key, err)
	}
	if err := json.Unmarshal(raw, &l.entries); err != nil {
		l.logger.Warn().
			Err(fmt.Errorf("%w: %v", engine.ErrPersistenceRead, err)).
			Str("key", l.key).
			Msg("ignoring unreadable history")
		l.entries = nil
	}
	l.entries = trim(l.entries, capacity)
	return l, nil
}

func trim(es []Entry, capacity int) []Entry {
	if len(es) <= capacity {
		return es
	}
	return append([]Entry(nil), es[len(es)-capacity:]...)
}

// Append records e and writes the log through to the store. The in-memory
// log is unchanged if the write fails.
func (l *Log) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]Entry, 0, min(len(l.entries)+1, l.capacity))
	next = append(next, l.entries...)
	next = trim(append(next, e), l.capacity)
	if err := l.save(ctx, next); err != nil {
		return err
	}
	l.entries = next
	return nil
}

func (l *Log) save(ctx context.Context, es []Entry) error {
	raw, err := json.Marshal(es)
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.key, err)
	}
	if err := l.store.Set(ctx, l.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", l.key, err)
	}
	return nil
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Clear drops every entry.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Remove(ctx, l.key); err != nil {
		return fmt.Errorf("clear %s: %w", l.key, err)
	}
	l.entries = nil
	return nil
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity
}

// Resize changes the capacity, evicting the oldest entries if it shrinks.
// The store is rewritten on the next Append.
func (l *Log) Resize(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capacity = capacity
	l.entries = trim(l.entries, capacity)
}
