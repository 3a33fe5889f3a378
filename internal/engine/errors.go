package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidProb = errors.New("invalid probability p; must be 0..1")

	// ErrConfiguration marks a rule table, policy or slot layout that cannot
	// be served. It is returned while building a variant, never mid-draw.
	ErrConfiguration = errors.New("configuration error")

	// ErrIllegalAttempt rejects a request for a tier whose configured
	// probability is zero.
	ErrIllegalAttempt = errors.New("illegal draw attempt")

	// ErrIntegrity is returned when a draw lands somewhere the
	// configuration says is unreachable.
	ErrIntegrity = errors.New("integrity violation")

	// ErrExhaustedSampling is wrapped by ExhaustedError. The sampler never
	// returns it as a failure; it is handed to hooks and logs.
	ErrExhaustedSampling = errors.New("sampling attempts exhausted")

	// ErrPersistenceRead is logged when stored state cannot be decoded.
	// Callers recover by treating the state as absent.
	ErrPersistenceRead = errors.New("persistence read error")
)

// ExhaustedError describes one rejection-sampling run that gave up.
type ExhaustedError struct {
	Tier     string
	Attempts int
	Got      string // outcome ID of the best-effort draw
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("tier %q not reached after %d attempts (returned %q)", e.Tier, e.Attempts, e.Got)
}

func (e *ExhaustedError) Unwrap() error { return ErrExhaustedSampling }

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
