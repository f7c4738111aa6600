// engine.go - Offer registry and private match selection.

package matching

import (
	"fmt"
	"io"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voile/internal/pricing"
	"voile/internal/protocol"
)

// Engine owns the set of active LP offers. All liquidity mutation goes
// through the engine lock; callers must not decrement offer liquidity
// themselves.
type Engine struct {
	mu     sync.Mutex
	offers map[uint64]*protocol.LpOffer
	order  []uint64

	rnd    io.Reader
	feeBps int64
	now    func() time.Time
	log    zerolog.Logger
}

// NewEngine builds a matching engine around a cryptographically secure
// random source. The source is used for deal blinding factors. feeBps is
// the advance fee all deals struck by this engine are priced at.
func NewEngine(rnd io.Reader, feeBps int64, log zerolog.Logger) *Engine {
	return &Engine{
		offers: make(map[uint64]*protocol.LpOffer),
		rnd:    rnd,
		feeBps: feeBps,
		now:    time.Now,
		log:    log.With().Str("component", "matching").Logger(),
	}
}

// netAdvance is the liquidity a match against amount reserves.
func (e *Engine) netAdvance(amount *big.Int) *big.Int {
	return new(big.Int).Sub(amount, pricing.Fee(amount, e.feeBps))
}

// AddOffer registers an offer with the engine. Registration order is the
// tie break when two offers quote the same APR.
func (e *Engine) AddOffer(offer *protocol.LpOffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.offers[offer.OfferID]; ok {
		return
	}
	e.offers[offer.OfferID] = offer
	e.order = append(e.order, offer.OfferID)
	e.log.Info().
		Uint64("offer_id", offer.OfferID).
		Int64("apr_bps", offer.AprBps).
		Str("max_amount", offer.MaxAmount.String()).
		Msg("offer registered")
}

// RemoveOffer drops an offer from the registry entirely.
func (e *Engine) RemoveOffer(offerID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.offers[offerID]; !ok {
		return
	}
	delete(e.offers, offerID)
	for i, id := range e.order {
		if id == offerID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.log.Info().Uint64("offer_id", offerID).Msg("offer removed")
}

// Deactivate keeps the offer registered but excludes it from matching.
// Already reserved liquidity is unaffected.
func (e *Engine) Deactivate(offerID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if offer, ok := e.offers[offerID]; ok {
		offer.Active = false
	}
}

// Offer returns a registered offer, or nil.
func (e *Engine) Offer(offerID uint64) *protocol.LpOffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offers[offerID]
}

// canMatch is evaluated under the engine lock.
func (e *Engine) canMatch(offer *protocol.LpOffer, req *protocol.UnlockRequest) bool {
	if !offer.Active {
		return false
	}
	if req.Amount.Cmp(offer.MinAmount) < 0 || req.Amount.Cmp(offer.MaxAmount) > 0 {
		return false
	}
	// An offer drained below its own minimum is no longer matchable.
	if offer.AvailableLiquidity.Cmp(offer.MinAmount) < 0 {
		return false
	}
	return offer.AvailableLiquidity.Cmp(e.netAdvance(req.Amount)) >= 0
}

// checkPending rejects requests that are not waiting for a match. Only a
// PENDING request may transition to MATCHED; a CANCELLED or already-matched
// request must never reserve liquidity.
func checkPending(req *protocol.UnlockRequest) error {
	if req.Status != protocol.RequestStatusPending {
		return fmt.Errorf("request %d in status %s cannot be matched: %w",
			req.RequestID, req.Status, protocol.ErrInvalidStateTransition)
	}
	return nil
}

// FindMatches returns every offer able to fund the request, cheapest APR
// first. Ties keep registration order.
func (e *Engine) FindMatches(req *protocol.UnlockRequest) []*protocol.LpOffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findMatchesLocked(req)
}

func (e *Engine) findMatchesLocked(req *protocol.UnlockRequest) []*protocol.LpOffer {
	var out []*protocol.LpOffer
	for _, id := range e.order {
		if offer := e.offers[id]; e.canMatch(offer, req) {
			out = append(out, offer)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AprBps < out[j].AprBps
	})
	return out
}

// MatchRequest pairs a request with the cheapest able offer. A nil deal
// with a nil error means no offer can currently fund the request; absence
// of liquidity is a normal outcome, not a failure.
//
// Liquidity reservation and deal construction are one atomic step: if the
// deal cannot be built, the reservation is rolled back before returning.
func (e *Engine) MatchRequest(req *protocol.UnlockRequest) (*protocol.MatchedDeal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkPending(req); err != nil {
		return nil, err
	}
	candidates := e.findMatchesLocked(req)
	if len(candidates) == 0 {
		e.log.Debug().Str("amount", req.Amount.String()).Msg("no matching offer")
		return nil, nil
	}
	return e.settleMatchLocked(req, candidates[0])
}

// MatchWithOffer pairs a request with a caller-pinned offer. Unlike
// MatchRequest, a pinned offer that cannot cover the advance surfaces
// ErrInsufficientLiquidity; every other canMatch violation is still a
// plain no-match.
func (e *Engine) MatchWithOffer(req *protocol.UnlockRequest, offerID uint64) (*protocol.MatchedDeal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkPending(req); err != nil {
		return nil, err
	}
	offer, ok := e.offers[offerID]
	if !ok {
		return nil, nil
	}
	if !e.canMatch(offer, req) {
		if offer.Active &&
			req.Amount.Cmp(offer.MinAmount) >= 0 && req.Amount.Cmp(offer.MaxAmount) <= 0 {
			return nil, fmt.Errorf("offer %d cannot cover advance of %s: %w",
				offerID, e.netAdvance(req.Amount), protocol.ErrInsufficientLiquidity)
		}
		return nil, nil
	}
	return e.settleMatchLocked(req, offer)
}

// settleMatchLocked reserves liquidity and builds the deal. Caller holds
// the engine lock.
func (e *Engine) settleMatchLocked(req *protocol.UnlockRequest, offer *protocol.LpOffer) (*protocol.MatchedDeal, error) {
	reserved := e.netAdvance(req.Amount)
	offer.AvailableLiquidity.Sub(offer.AvailableLiquidity, reserved)

	deal, err := protocol.NewMatchedDeal(e.rnd, req, offer, e.now().Unix(), e.feeBps)
	if err != nil {
		offer.AvailableLiquidity.Add(offer.AvailableLiquidity, reserved)
		return nil, err
	}
	req.Status = protocol.RequestStatusMatched

	e.log.Info().
		Uint64("offer_id", offer.OfferID).
		Str("advance", deal.AdvanceAmount.String()).
		Str("fee", deal.AdvanceFee.String()).
		Str("remaining_liquidity", offer.AvailableLiquidity.String()).
		Msg("request matched")
	return deal, nil
}

// ReleaseReservation returns previously reserved liquidity to an offer,
// capped at the offer's maximum. Used when a matched deal fails before
// the advance is funded.
func (e *Engine) ReleaseReservation(offerID uint64, amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	offer, ok := e.offers[offerID]
	if !ok {
		return
	}
	offer.AvailableLiquidity.Add(offer.AvailableLiquidity, amount)
	if offer.AvailableLiquidity.Cmp(offer.MaxAmount) > 0 {
		offer.AvailableLiquidity.Set(offer.MaxAmount)
	}
	e.log.Info().
		Uint64("offer_id", offerID).
		Str("released", amount.String()).
		Msg("reservation released")
}
