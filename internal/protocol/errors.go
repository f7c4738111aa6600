// errors.go - Validation and lifecycle error taxonomy.

package protocol

import (
	"errors"

	"voile/internal/commitment"
)

var (
	// ErrInvalidAmount is returned for non-positive request amounts.
	// Invalid amounts are rejected, never coerced.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRange is returned when offer bounds or cooldown durations
	// are out of range.
	ErrInvalidRange = errors.New("invalid range")

	// ErrInvalidKeyMaterial mirrors the commitment package sentinel so
	// callers can match it at this layer.
	ErrInvalidKeyMaterial = commitment.ErrInvalidKeyMaterial

	// ErrInvalidStateTransition is returned for out-of-order deal or
	// request transitions.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInsufficientLiquidity is returned when an explicitly pinned offer
	// cannot cover the requested advance. Absence of any match is not an
	// error; this sentinel only applies to pinned offers.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)
