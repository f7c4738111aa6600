// request.go - Private unlock request construction.
//
// A request is created on the user's device. The nullifier secret never
// leaves the device before settlement; only the commitment is shared with
// the matching engine.

package protocol

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"voile/internal/commitment"
	"voile/internal/pricing"
)

// UnlockRequest is a user's private intent to convert a cooling-down
// position into an immediate advance.
type UnlockRequest struct {
	RequestID       uint64
	Amount          *big.Int
	CooldownEnd     int64
	NullifierSecret []byte
	UserAccountID   AccountID
	Commitment      commitment.Word
	CreatedAt       time.Time
	Status          RequestStatus
}

// NewUnlockRequest builds a private unlock request. The request identifier
// and nullifier secret are sampled from rnd, which must be a
// cryptographically secure source.
func NewUnlockRequest(rnd io.Reader, user AccountID, amount *big.Int, cooldownDays int64) (*UnlockRequest, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("request amount must be positive: %w", ErrInvalidAmount)
	}
	if !pricing.IsValidCooldown(cooldownDays) {
		return nil, fmt.Errorf("cooldown of %d days outside [%d, %d]: %w",
			cooldownDays, pricing.MinCooldownDays, pricing.MaxCooldownDays, ErrInvalidRange)
	}

	requestID, err := commitment.NewFieldID(rnd)
	if err != nil {
		return nil, err
	}
	secret, err := commitment.NewSecret(rnd)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cooldownEnd := now.Unix() + cooldownDays*pricing.SecondsPerDay
	cm, err := commitment.ForRequest(amount, cooldownEnd, secret, string(user))
	if err != nil {
		return nil, err
	}

	return &UnlockRequest{
		RequestID:       requestID,
		Amount:          new(big.Int).Set(amount),
		CooldownEnd:     cooldownEnd,
		NullifierSecret: secret,
		UserAccountID:   user,
		Commitment:      cm,
		CreatedAt:       now,
		Status:          RequestStatusPending,
	}, nil
}

// Nullifier derives the request's double-spend nullifier.
func (r *UnlockRequest) Nullifier() (*big.Int, error) {
	return commitment.Nullifier(r.RequestID, r.NullifierSecret)
}

// Cancel marks a pending request as cancelled. After a match, cancellation
// is a settlement-layer concern and is rejected here.
func (r *UnlockRequest) Cancel() error {
	if r.Status != RequestStatusPending {
		return fmt.Errorf("cannot cancel request in status %s: %w", r.Status, ErrInvalidStateTransition)
	}
	r.Status = RequestStatusCancelled
	return nil
}
