package sampling

import (
	"errors"
	"fmt"
)

var (
	// ErrSamplingExhausted is the kind of every negative sampling failure
	ErrSamplingExhausted = errors.New("negative sampling exhausted")
	// ErrEmptyPool is returned when a partition has no vertices to draw from
	ErrEmptyPool = errors.New("empty sampling pool")
)

// ExhaustedError reports a negative sampling call that could not collect the
// requested number of non-edges. The edges that were found are returned
// alongside it.
type ExhaustedError struct {
	Requested int
	Found     int
	Attempts  int
	// Capacity is the number of non-edges available in the pools, or -1
	// when the attempt cap was hit before capacity mattered.
	Capacity int
}

func (e *ExhaustedError) Error() string {
	if e.Capacity >= 0 {
		return fmt.Sprintf("%v: requested %d non-edges, only %d exist",
			ErrSamplingExhausted, e.Requested, e.Capacity)
	}
	return fmt.Sprintf("%v: found %d of %d non-edges after %d attempts",
		ErrSamplingExhausted, e.Found, e.Requested, e.Attempts)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrSamplingExhausted
}
