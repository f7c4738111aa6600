// offer.go - LP liquidity offer construction.

package protocol

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"voile/internal/commitment"
	"voile/internal/pricing"
)

// AprPolicy selects how an offer prices interest. The policy is resolved
// exactly once, when the offer is built; after that the offer carries a
// concrete AprBps and the policy is never consulted again.
type AprPolicy struct {
	custom bool
	bps    int64
}

// DefaultApr prices the offer at the protocol default APR.
func DefaultApr() AprPolicy {
	return AprPolicy{}
}

// CustomApr prices the offer at an LP-chosen APR in basis points.
func CustomApr(bps int64) AprPolicy {
	return AprPolicy{custom: true, bps: bps}
}

func (p AprPolicy) resolve() int64 {
	if p.custom {
		return p.bps
	}
	return pricing.DefaultAprBps
}

// LpOffer is a liquidity provider's standing offer to fund advances.
// AvailableLiquidity is owned by the matching engine after registration;
// nothing else may mutate it.
type LpOffer struct {
	OfferID            uint64
	LpAccountID        AccountID
	MaxAmount          *big.Int
	MinAmount          *big.Int
	AprBps             int64
	AvailableLiquidity *big.Int
	Commitment         commitment.Word
	CreatedAt          time.Time
	Active             bool

	// TotalEarned accumulates the LP fee share plus interest across all
	// settled deals funded by this offer.
	TotalEarned *big.Int
}

// NewLpOffer builds a liquidity offer. The offer identifier is sampled
// from rnd. AvailableLiquidity starts at MaxAmount.
func NewLpOffer(rnd io.Reader, lp AccountID, minAmount, maxAmount *big.Int, policy AprPolicy) (*LpOffer, error) {
	if minAmount == nil || maxAmount == nil || minAmount.Sign() <= 0 || maxAmount.Sign() <= 0 {
		return nil, fmt.Errorf("offer bounds must be positive: %w", ErrInvalidAmount)
	}
	if minAmount.Cmp(maxAmount) > 0 {
		return nil, fmt.Errorf("offer min %s exceeds max %s: %w", minAmount, maxAmount, ErrInvalidRange)
	}
	aprBps := policy.resolve()
	if aprBps <= 0 {
		return nil, fmt.Errorf("offer APR must be positive: %w", ErrInvalidRange)
	}

	offerID, err := commitment.NewFieldID(rnd)
	if err != nil {
		return nil, err
	}
	cm := commitment.ForOffer(offerID, string(lp), maxAmount, minAmount)

	return &LpOffer{
		OfferID:            offerID,
		LpAccountID:        lp,
		MaxAmount:          new(big.Int).Set(maxAmount),
		MinAmount:          new(big.Int).Set(minAmount),
		AprBps:             aprBps,
		AvailableLiquidity: new(big.Int).Set(maxAmount),
		Commitment:         cm,
		CreatedAt:          time.Now(),
		Active:             true,
		TotalEarned:        new(big.Int),
	}, nil
}
