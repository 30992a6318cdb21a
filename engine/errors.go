package engine

import "errors"

// Validation failures shared by every math package. None of them are retryable and none are
// recovered internally: a failed quote must never be treated as a zero quote.
var (
	// ErrInvalidReserves is returned when a reserve or balance set is zero or empty.
	ErrInvalidReserves = errors.New("invalid reserves")
	// ErrAmountExceedsReserve is returned when an exact-output request would drain the pool.
	ErrAmountExceedsReserve = errors.New("amount out exceeds reserve")
	// ErrTickNotFound is returned when a fee-growth query references an absent tick boundary.
	ErrTickNotFound = errors.New("tick not found")
	// ErrArithmeticOverflow is returned when a value or result does not fit in 128 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrInvalidFee is returned for a fee outside [0, FeeDenominator).
	ErrInvalidFee = errors.New("invalid fee")
	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
)
