package domain

import "errors"

// Error taxonomy for the capital governance core. Every recoverable failure
// maps onto one of these; callers match with errors.Is and apply the
// documented fallback instead of aborting the cycle.
var (
	// ErrInputUnavailable means an upstream feed is missing or unreachable.
	// Recovery: reuse the last-known-good document for that input.
	ErrInputUnavailable = errors.New("input unavailable")

	// ErrValidation means a single record failed an invariant (NaN,
	// out-of-range, non-finite). Recovery: drop the record, keep the rest.
	ErrValidation = errors.New("validation failed")

	// ErrComputation means an unexpected failure inside one metric or check.
	// Recovery: substitute the metric's documented neutral default.
	ErrComputation = errors.New("computation failed")
)
