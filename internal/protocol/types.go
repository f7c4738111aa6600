// types.go - Shared identifiers and status enumerations.

package protocol

// AccountID is an opaque account identifier supplied by the account layer.
// The core never inspects its structure.
type AccountID string

// RequestStatus tracks an unlock request through its lifetime.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusMatched   RequestStatus = "MATCHED"
	RequestStatusAdvanced  RequestStatus = "ADVANCED"
	RequestStatusSettled   RequestStatus = "SETTLED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// DealStatus tracks a matched deal from match to settlement.
type DealStatus string

const (
	DealStatusPendingAdvance    DealStatus = "PENDING_ADVANCE"
	DealStatusAdvanceCreated    DealStatus = "ADVANCE_CREATED"
	DealStatusAdvanced          DealStatus = "ADVANCED"
	DealStatusPendingSettlement DealStatus = "PENDING_SETTLEMENT"
	DealStatusSettled           DealStatus = "SETTLED"
	DealStatusFailed            DealStatus = "FAILED"
)

// IsTerminal reports whether a deal status is final.
func (s DealStatus) IsTerminal() bool {
	return s == DealStatusSettled || s == DealStatusFailed
}
