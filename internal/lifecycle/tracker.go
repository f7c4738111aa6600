// tracker.go - Deal state machine.

package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voile/internal/protocol"
)

// Tracker owns every matched deal after the engine hands it over. Only
// status and note-id fields are ever mutated; deal economics stay fixed.
type Tracker struct {
	mu    sync.Mutex
	deals map[string]*trackedDeal
	log   zerolog.Logger
}

// trackedDeal couples the deal with the request and offer it settles, so
// the tracker can mirror request status and credit LP earnings.
type trackedDeal struct {
	deal    *protocol.MatchedDeal
	request *protocol.UnlockRequest
	offer   *protocol.LpOffer
}

func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		deals: make(map[string]*trackedDeal),
		log:   log.With().Str("component", "lifecycle").Logger(),
	}
}

// Track takes ownership of a freshly matched deal.
func (t *Tracker) Track(deal *protocol.MatchedDeal, req *protocol.UnlockRequest, offer *protocol.LpOffer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deals[deal.DealID.Hex()] = &trackedDeal{deal: deal, request: req, offer: offer}
}

// Deal returns a tracked deal by its identifier, or nil.
func (t *Tracker) Deal(dealID string) *protocol.MatchedDeal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if td, ok := t.deals[dealID]; ok {
		return td.deal
	}
	return nil
}

func (t *Tracker) lookup(dealID string) (*trackedDeal, error) {
	td, ok := t.deals[dealID]
	if !ok {
		return nil, fmt.Errorf("unknown deal %s: %w", dealID, protocol.ErrInvalidStateTransition)
	}
	return td, nil
}

func transitionErr(dealID string, from, to protocol.DealStatus) error {
	return fmt.Errorf("deal %s cannot move %s -> %s: %w", dealID, from, to, protocol.ErrInvalidStateTransition)
}

// AdvanceCreated records that the advance note exists on chain.
// PENDING_ADVANCE -> ADVANCE_CREATED.
func (t *Tracker) AdvanceCreated(dealID, advanceNoteID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	td, err := t.lookup(dealID)
	if err != nil {
		return err
	}
	if td.deal.Status != protocol.DealStatusPendingAdvance {
		return transitionErr(dealID, td.deal.Status, protocol.DealStatusAdvanceCreated)
	}
	td.deal.Status = protocol.DealStatusAdvanceCreated
	td.deal.AdvanceNoteID = advanceNoteID
	t.log.Info().Str("deal_id", dealID).Str("advance_note", advanceNoteID).Msg("advance note created")
	return nil
}

// AdvanceConsumed records that the user claimed the advance note.
// ADVANCE_CREATED -> ADVANCED -> PENDING_SETTLEMENT; the second hop is
// automatic. The request status mirrors to ADVANCED.
func (t *Tracker) AdvanceConsumed(dealID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	td, err := t.lookup(dealID)
	if err != nil {
		return err
	}
	if td.deal.Status != protocol.DealStatusAdvanceCreated {
		return transitionErr(dealID, td.deal.Status, protocol.DealStatusAdvanced)
	}
	// The ADVANCED state is passed through implicitly: consuming the
	// advance immediately queues the deal for settlement, so no caller
	// ever observes DealStatusAdvanced between calls.
	td.deal.Status = protocol.DealStatusPendingSettlement
	td.request.Status = protocol.RequestStatusAdvanced
	t.log.Info().Str("deal_id", dealID).Msg("advance consumed, awaiting settlement")
	return nil
}

// SetSettlementNote attaches the settlement note identifier while the deal
// waits out its cooldown.
func (t *Tracker) SetSettlementNote(dealID, noteID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	td, err := t.lookup(dealID)
	if err != nil {
		return err
	}
	if td.deal.Status != protocol.DealStatusPendingSettlement {
		return transitionErr(dealID, td.deal.Status, protocol.DealStatusPendingSettlement)
	}
	td.deal.SettlementNoteID = noteID
	return nil
}

// IsReadyForSettlement reports whether the deal's cooldown has expired.
func (t *Tracker) IsReadyForSettlement(dealID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	td, ok := t.deals[dealID]
	return ok && now.Unix() >= td.deal.CooldownEnd
}

// Settle finalizes a deal once its cooldown has expired. Calling before
// expiry is a no-op that reports the remaining wait, not an error. On
// settlement the LP is credited its fee share plus interest and the
// request moves to SETTLED.
func (t *Tracker) Settle(dealID string, now time.Time) (settled bool, remaining time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	td, err := t.lookup(dealID)
	if err != nil {
		return false, 0, err
	}
	if td.deal.Status != protocol.DealStatusPendingSettlement {
		return false, 0, transitionErr(dealID, td.deal.Status, protocol.DealStatusSettled)
	}
	if now.Unix() < td.deal.CooldownEnd {
		remaining = time.Duration(td.deal.CooldownEnd-now.Unix()) * time.Second
		t.log.Debug().Str("deal_id", dealID).Dur("remaining", remaining).Msg("cooldown not expired")
		return false, remaining, nil
	}

	td.deal.Status = protocol.DealStatusSettled
	td.request.Status = protocol.RequestStatusSettled
	td.offer.TotalEarned.Add(td.offer.TotalEarned, td.deal.LpEarnings())

	t.log.Info().
		Str("deal_id", dealID).
		Str("lp_earnings", td.deal.LpEarnings().String()).
		Msg("deal settled")
	return true, 0, nil
}

// Fail moves a non-terminal deal to FAILED after an external settlement
// error.
func (t *Tracker) Fail(dealID, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	td, err := t.lookup(dealID)
	if err != nil {
		return err
	}
	if td.deal.Status.IsTerminal() {
		return transitionErr(dealID, td.deal.Status, protocol.DealStatusFailed)
	}
	td.deal.Status = protocol.DealStatusFailed
	t.log.Warn().Str("deal_id", dealID).Str("reason", reason).Msg("deal failed")
	return nil
}
