// Package kv is the persistence boundary: opaque values by string key.
package kv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// Store reads and writes values by key. Writes are last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend       string
	Path          string // bolt and sqlite file
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the configured store. The returned closer releases it.
func Open(ctx context.Context, s Settings) (Store, io.Closer, error) {
	switch strings.ToLower(s.Backend) {
	case "", BackendMemory:
		m := NewMemory()
		return m, m, nil
	case BackendRedis:
		r, err := NewRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case BackendBolt:
		b, err := OpenBolt(s.Path)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case BackendSQLite:
		q, err := OpenSQLite(s.Path)
		if err != nil {
			return nil, nil, err
		}
		return q, q, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", s.Backend)
}

func requireKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	return nil
}
