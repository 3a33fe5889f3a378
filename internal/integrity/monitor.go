// Package integrity hosts tamper monitors that run alongside a session.
package integrity

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Monitor is started when a session opens and stopped when it closes.
type Monitor interface {
	Start()
	Stop()
}

// Nop does nothing.
type Nop struct{}

func (Nop) Start() {}
func (Nop) Stop()  {}

// Logged records session starts and stops at debug level and counts the
// sessions currently being watched.
type Logged struct {
	Logger zerolog.Logger
	Name   string

	active *atomic.Int64
}

// NewLogged returns a factory whose monitors share one active counter.
func NewLogged(log zerolog.Logger) (func(name string) Monitor, *atomic.Int64) {
	var active atomic.Int64
	return func(name string) Monitor {
		return &Logged{Logger: log, Name: name, active: &active}
	}, &active
}

func (m *Logged) Start() {
	n := m.active.Add(1)
	m.Logger.Debug().Str("session", m.Name).Int64("active", n).Msg("integrity monitor started")
}

func (m *Logged) Stop() {
	n := m.active.Add(-1)
	m.Logger.Debug().Str("session", m.Name).Int64("active", n).Msg("integrity monitor stopped")
}
