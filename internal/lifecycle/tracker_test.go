// tracker_test.go - State machine transition and settlement timing tests.

package lifecycle

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voile/internal/pricing"
	"voile/internal/protocol"
)

func newTrackedDeal(t *testing.T) (*Tracker, *protocol.MatchedDeal, *protocol.UnlockRequest, *protocol.LpOffer) {
	t.Helper()
	req, err := protocol.NewUnlockRequest(rand.Reader, "user-1", big.NewInt(10_000), 14)
	if err != nil {
		t.Fatal(err)
	}
	offer, err := protocol.NewLpOffer(rand.Reader, "lp-1", big.NewInt(500), big.NewInt(50_000), protocol.DefaultApr())
	if err != nil {
		t.Fatal(err)
	}
	deal, err := protocol.NewMatchedDeal(rand.Reader, req, offer, time.Now().Unix(), pricing.DefaultAdvanceFeeBps)
	if err != nil {
		t.Fatal(err)
	}
	tr := NewTracker(zerolog.Nop())
	tr.Track(deal, req, offer)
	return tr, deal, req, offer
}

func TestHappyPath(t *testing.T) {
	tr, deal, req, offer := newTrackedDeal(t)
	id := deal.DealID.Hex()

	if err := tr.AdvanceCreated(id, "note-adv-1"); err != nil {
		t.Fatalf("AdvanceCreated: %v", err)
	}
	if deal.Status != protocol.DealStatusAdvanceCreated || deal.AdvanceNoteID != "note-adv-1" {
		t.Fatalf("status=%s note=%s after AdvanceCreated", deal.Status, deal.AdvanceNoteID)
	}

	if err := tr.AdvanceConsumed(id); err != nil {
		t.Fatalf("AdvanceConsumed: %v", err)
	}
	if deal.Status != protocol.DealStatusPendingSettlement {
		t.Fatalf("status = %s, want PENDING_SETTLEMENT", deal.Status)
	}
	if req.Status != protocol.RequestStatusAdvanced {
		t.Fatalf("request status = %s, want ADVANCED", req.Status)
	}

	if err := tr.SetSettlementNote(id, "note-settle-1"); err != nil {
		t.Fatalf("SetSettlementNote: %v", err)
	}

	after := time.Unix(deal.CooldownEnd, 0).Add(time.Hour)
	settled, remaining, err := tr.Settle(id, after)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !settled || remaining != 0 {
		t.Fatalf("settled=%v remaining=%v, want settled with no wait", settled, remaining)
	}
	if deal.Status != protocol.DealStatusSettled || req.Status != protocol.RequestStatusSettled {
		t.Fatalf("deal=%s request=%s after settle", deal.Status, req.Status)
	}
	if offer.TotalEarned.Cmp(deal.LpEarnings()) != 0 {
		t.Errorf("LP earned %s, want %s", offer.TotalEarned, deal.LpEarnings())
	}
}

func TestEarlySettleIsNoOp(t *testing.T) {
	tr, deal, _, offer := newTrackedDeal(t)
	id := deal.DealID.Hex()
	if err := tr.AdvanceCreated(id, "n1"); err != nil {
		t.Fatal(err)
	}
	if err := tr.AdvanceConsumed(id); err != nil {
		t.Fatal(err)
	}

	early := time.Unix(deal.CooldownEnd, 0).Add(-time.Hour)
	settled, remaining, err := tr.Settle(id, early)
	if err != nil {
		t.Fatalf("early Settle returned error: %v", err)
	}
	if settled {
		t.Fatal("deal settled before cooldown expiry")
	}
	if remaining != time.Hour {
		t.Errorf("remaining = %v, want 1h", remaining)
	}
	if deal.Status != protocol.DealStatusPendingSettlement {
		t.Errorf("status = %s, want PENDING_SETTLEMENT", deal.Status)
	}
	if offer.TotalEarned.Sign() != 0 {
		t.Error("LP credited before settlement")
	}
}

func TestOutOfOrderTransitions(t *testing.T) {
	tr, deal, _, _ := newTrackedDeal(t)
	id := deal.DealID.Hex()

	t.Run("consume before create", func(t *testing.T) {
		if err := tr.AdvanceConsumed(id); !errors.Is(err, protocol.ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("settle before advance", func(t *testing.T) {
		_, _, err := tr.Settle(id, time.Unix(deal.CooldownEnd+1, 0))
		if !errors.Is(err, protocol.ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("double advance create", func(t *testing.T) {
		if err := tr.AdvanceCreated(id, "n1"); err != nil {
			t.Fatal(err)
		}
		if err := tr.AdvanceCreated(id, "n2"); !errors.Is(err, protocol.ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("unknown deal", func(t *testing.T) {
		if err := tr.AdvanceCreated("missing", "n1"); !errors.Is(err, protocol.ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})
}

func TestFail(t *testing.T) {
	tr, deal, _, _ := newTrackedDeal(t)
	id := deal.DealID.Hex()

	if err := tr.Fail(id, "advance tx rejected"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if deal.Status != protocol.DealStatusFailed {
		t.Fatalf("status = %s, want FAILED", deal.Status)
	}

	t.Run("terminal deal cannot fail again", func(t *testing.T) {
		if err := tr.Fail(id, "again"); !errors.Is(err, protocol.ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("settled deal cannot fail", func(t *testing.T) {
		tr2, deal2, _, _ := newTrackedDeal(t)
		id2 := deal2.DealID.Hex()
		if err := tr2.AdvanceCreated(id2, "n"); err != nil {
			t.Fatal(err)
		}
		if err := tr2.AdvanceConsumed(id2); err != nil {
			t.Fatal(err)
		}
		if _, _, err := tr2.Settle(id2, time.Unix(deal2.CooldownEnd+1, 0)); err != nil {
			t.Fatal(err)
		}
		if err := tr2.Fail(id2, "late failure"); !errors.Is(err, protocol.ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})
}

func TestIsReadyForSettlement(t *testing.T) {
	tr, deal, _, _ := newTrackedDeal(t)
	id := deal.DealID.Hex()
	if tr.IsReadyForSettlement(id, time.Unix(deal.CooldownEnd-1, 0)) {
		t.Error("ready before cooldown end")
	}
	if !tr.IsReadyForSettlement(id, time.Unix(deal.CooldownEnd, 0)) {
		t.Error("not ready at cooldown end")
	}
	if tr.IsReadyForSettlement("missing", time.Now()) {
		t.Error("unknown deal reported ready")
	}
}
