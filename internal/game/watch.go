package game

import (
	"context"
	"os"
	"time"
)

// FileWatcher polls modification times and reports the files that changed
// since the previous tick in one batch. Files that appear or disappear count
// as changed.
type FileWatcher struct {
	Interval time.Duration
	Paths    func() []string // re-evaluated every tick so new profiles are picked up
	OnChange func(changed []string)

	seen map[string]time.Time // zero time = missing
}

func NewFileWatcher(paths func() []string, interval time.Duration, onChange func([]string)) *FileWatcher {
	return &FileWatcher{Paths: paths, Interval: interval, OnChange: onChange}
}

// Run polls until ctx is done.
func (w *FileWatcher) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	w.Scan() // prime
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if changed := w.Scan(); len(changed) > 0 && w.OnChange != nil {
				w.OnChange(changed)
			}
		}
	}
}

// Scan compares current mtimes with the last scan. The first scan only
// records state and reports nothing.
func (w *FileWatcher) Scan() []string {
	prime := w.seen == nil
	if prime {
		w.seen = make(map[string]time.Time)
	}
	var changed []string
	current := make(map[string]bool)
	for _, p := range w.Paths() {
		current[p] = true
		var mt time.Time
		if fi, err := os.Stat(p); err == nil {
			mt = fi.ModTime()
		}
		last, ok := w.seen[p]
		w.seen[p] = mt
		if !prime && (!ok || !mt.Equal(last)) {
			changed = append(changed, p)
		}
	}
	for p := range w.seen {
		if !current[p] {
			delete(w.seen, p)
			if !prime {
				changed = append(changed, p)
			}
		}
	}
	return changed
}
