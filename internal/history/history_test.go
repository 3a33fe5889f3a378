package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/kv"
)

func entry(i int) Entry {
	return Entry{
		ID:       uuid.New(),
		Variant:  "dice",
		Draw:     json.RawMessage(fmt.Sprintf("[%d]", i)),
		Outcome:  engine.Outcome{ID: fmt.Sprintf("o%d", i), Rank: i},
		Terminal: true,
		Time:     time.Unix(int64(i), 0).UTC(),
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, kv.NewMemory(), "dice", 10, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 13; i++ {
		if err := l.Append(ctx, entry(i)); err != nil {
			t.Fatal(err)
		}
	}
	if l.Len() != 10 {
		t.Fatalf("len=%d want 10", l.Len())
	}
	all := l.Recent(0)
	if all[0].Outcome.ID != "o13" || all[9].Outcome.ID != "o4" {
		t.Fatalf("newest first, oldest evicted: first=%s last=%s", all[0].Outcome.ID, all[9].Outcome.ID)
	}
	top := l.Recent(5)
	if len(top) != 5 || top[4].Outcome.ID != "o9" {
		t.Fatalf("Recent(5) = %d entries, last %s", len(top), top[4].Outcome.ID)
	}
	if got := l.Recent(50); len(got) != 10 {
		t.Fatalf("Recent over len = %d", len(got))
	}
}

func TestReopenRestores(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	l, _ := Open(ctx, store, "bull", 3, zerolog.Nop())
	for i := 1; i <= 4; i++ {
		_ = l.Append(ctx, entry(i))
	}

	again, err := Open(ctx, store, "bull", 3, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got := again.Recent(0)
	if len(got) != 3 || got[0].Outcome.ID != "o4" || got[2].Outcome.ID != "o2" {
		t.Fatalf("reloaded %+v", got)
	}
	if string(got[0].Draw) != "[4]" {
		t.Fatalf("draw %s", got[0].Draw)
	}

	smaller, _ := Open(ctx, store, "bull", 2, zerolog.Nop())
	if smaller.Len() != 2 || smaller.Recent(1)[0].Outcome.ID != "o4" {
		t.Fatalf("smaller capacity keeps the newest")
	}
}

func TestUnreadableHistoryIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	_ = store.Set(ctx, Key("wheel"), []byte("not json"))
	l, err := Open(ctx, store, "wheel", 0, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 || l.Capacity() != DefaultCapacity {
		t.Fatalf("len=%d cap=%d", l.Len(), l.Capacity())
	}
	if err := l.Append(ctx, entry(1)); err != nil {
		t.Fatal(err)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	l, _ := Open(ctx, store, "dice", 10, zerolog.Nop())
	_ = l.Append(ctx, entry(1))
	if err := l.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Fatalf("len after clear = %d", l.Len())
	}
	if _, err := store.Get(ctx, Key("dice")); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("store still holds history: %v", err)
	}
}

type failing struct{ kv.Store }

func (failing) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestFailedWriteKeepsLog(t *testing.T) {
	ctx := context.Background()
	l, _ := Open(ctx, failing{kv.NewMemory()}, "dice", 10, zerolog.Nop())
	if err := l.Append(ctx, entry(1)); err == nil {
		t.Fatalf("want write error")
	}
	if l.Len() != 0 {
		t.Fatalf("failed append must not change the log")
	}
}

func TestResize(t *testing.T) {
	ctx := context.Background()
	l, _ := Open(ctx, kv.NewMemory(), "dice", 5, zerolog.Nop())
	for i := 1; i <= 5; i++ {
		_ = l.Append(ctx, entry(i))
	}
	l.Resize(2)
	if l.Len() != 2 || l.Recent(0)[1].Outcome.ID != "o4" {
		t.Fatalf("resize kept %+v", l.Recent(0))
	}
}
