// deal.go - Matched deal records.

package protocol

import (
	"io"
	"math/big"

	"voile/internal/commitment"
	"voile/internal/pricing"
)

// MatchedDeal records a request matched against an offer. All money fields
// are fixed at match time; settlement consumes them unchanged.
//
// Conservation invariant: AdvanceAmount + AdvanceFee == StakedAmount.
type MatchedDeal struct {
	DealID            commitment.Word
	RequestCommitment commitment.Word
	OfferCommitment   commitment.Word
	RequestID         uint64
	OfferID           uint64
	UserAccountID     AccountID
	LpAccountID       AccountID

	StakedAmount     *big.Int
	AdvanceAmount    *big.Int
	AdvanceFee       *big.Int
	ExpectedInterest *big.Int

	// AdvanceNoteID and SettlementNoteID are assigned by the settlement
	// driver as the corresponding notes are created.
	AdvanceNoteID    string
	SettlementNoteID string

	MatchedAt   int64
	CooldownEnd int64
	Status      DealStatus
}

// NewMatchedDeal fixes the deal economics from a request and the offer it
// matched against, charging the advance fee at feeBps. The deal identifier
// commits to both commitments plus a fresh blinding value, so two deals
// over identical terms remain unlinkable.
func NewMatchedDeal(rnd io.Reader, req *UnlockRequest, offer *LpOffer, matchedAt int64, feeBps int64) (*MatchedDeal, error) {
	blinding, err := commitment.NewSecret(rnd)
	if err != nil {
		return nil, err
	}
	dealID, err := commitment.DealID(req.Commitment, offer.Commitment, matchedAt, blinding)
	if err != nil {
		return nil, err
	}

	days := pricing.ClampDays((req.CooldownEnd - matchedAt) / pricing.SecondsPerDay)
	fee := pricing.Fee(req.Amount, feeBps)

	return &MatchedDeal{
		DealID:            dealID,
		RequestCommitment: req.Commitment,
		OfferCommitment:   offer.Commitment,
		RequestID:         req.RequestID,
		OfferID:           offer.OfferID,
		UserAccountID:     req.UserAccountID,
		LpAccountID:       offer.LpAccountID,
		StakedAmount:      new(big.Int).Set(req.Amount),
		AdvanceAmount:     new(big.Int).Sub(req.Amount, fee),
		AdvanceFee:        fee,
		ExpectedInterest:  pricing.AprInterest(req.Amount, days, offer.AprBps),
		MatchedAt:         matchedAt,
		CooldownEnd:       req.CooldownEnd,
		Status:            DealStatusPendingAdvance,
	}, nil
}

// LpEarnings returns the LP's total take on this deal: its share of the
// advance fee plus the expected interest.
func (d *MatchedDeal) LpEarnings() *big.Int {
	lpFee := pricing.LpShare(d.AdvanceFee)
	return lpFee.Add(lpFee, d.ExpectedInterest)
}

// ProtocolEarnings returns the protocol's share of the advance fee.
func (d *MatchedDeal) ProtocolEarnings() *big.Int {
	return pricing.ProtocolShare(d.AdvanceFee)
}
