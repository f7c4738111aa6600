// driver.go - On-chain settlement boundary contract.

package settlement

import (
	"context"
	"math/big"

	"voile/internal/commitment"
	"voile/internal/protocol"
)

// TxStatus is the lifecycle of a submitted chain transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TransactionStatus is the driver's report for one submitted transaction.
type TransactionStatus struct {
	TxID        string
	Status      TxStatus
	BlockNumber uint64
	Err         string
}

// AdvanceNoteInputs is everything the chain needs to mint the advance note
// paid to the user. The request stays hidden behind its commitment.
type AdvanceNoteInputs struct {
	DealID            commitment.Word
	RequestCommitment commitment.Word
	OfferID           uint64
	AdvanceAmount     *big.Int
}

// SettlementNoteInputs is everything the chain needs to mint the note that
// repays the LP once the cooldown expires.
type SettlementNoteInputs struct {
	RequestID   uint64
	Amount      *big.Int
	CooldownEnd int64
	DealID      commitment.Word
}

// Driver is implemented by the on-chain execution layer. All calls may
// block on network I/O and honor ctx cancellation. Implementations must
// reject a nullifier that has already been submitted.
type Driver interface {
	CreateAdvanceNote(ctx context.Context, in AdvanceNoteInputs) (noteID string, status TransactionStatus, err error)
	CreateSettlementNote(ctx context.Context, in SettlementNoteInputs) (noteID string, status TransactionStatus, err error)
	ConsumeNote(ctx context.Context, noteID string) (TransactionStatus, error)
	SubmitNullifier(ctx context.Context, nullifier *big.Int) (TransactionStatus, error)
}

// AdvanceInputs extracts the advance-note inputs from a matched deal.
func AdvanceInputs(deal *protocol.MatchedDeal) AdvanceNoteInputs {
	return AdvanceNoteInputs{
		DealID:            deal.DealID,
		RequestCommitment: deal.RequestCommitment,
		OfferID:           deal.OfferID,
		AdvanceAmount:     deal.AdvanceAmount,
	}
}

// SettlementInputs extracts the settlement-note inputs from a matched deal.
func SettlementInputs(deal *protocol.MatchedDeal) SettlementNoteInputs {
	return SettlementNoteInputs{
		RequestID:   deal.RequestID,
		Amount:      deal.StakedAmount,
		CooldownEnd: deal.CooldownEnd,
		DealID:      deal.DealID,
	}
}
