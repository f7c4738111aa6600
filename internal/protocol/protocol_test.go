// protocol_test.go - Request, offer, and deal builder tests.

package protocol

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"
	"time"

	"voile/internal/pricing"
)

func TestNewUnlockRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		amount := pricing.ToRaw(10_000)
		req, err := NewUnlockRequest(rand.Reader, "user-1", amount, 14)
		if err != nil {
			t.Fatalf("NewUnlockRequest: %v", err)
		}
		if req.Status != RequestStatusPending {
			t.Errorf("status = %s, want PENDING", req.Status)
		}
		if req.RequestID == 0 {
			t.Error("request ID not sampled")
		}
		if len(req.NullifierSecret) != 32 {
			t.Errorf("secret length = %d, want 32", len(req.NullifierSecret))
		}
		wantEnd := time.Now().Unix() + 14*pricing.SecondsPerDay
		if diff := req.CooldownEnd - wantEnd; diff < -2 || diff > 2 {
			t.Errorf("cooldown end %d not near %d", req.CooldownEnd, wantEnd)
		}
	})

	t.Run("amount is copied", func(t *testing.T) {
		amount := big.NewInt(5_000_000)
		req, err := NewUnlockRequest(rand.Reader, "user-1", amount, 14)
		if err != nil {
			t.Fatalf("NewUnlockRequest: %v", err)
		}
		amount.SetInt64(1)
		if req.Amount.Cmp(big.NewInt(5_000_000)) != 0 {
			t.Error("request aliases caller's amount")
		}
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		_, err := NewUnlockRequest(rand.Reader, "user-1", big.NewInt(0), 14)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("err = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		_, err := NewUnlockRequest(rand.Reader, "user-1", big.NewInt(-5), 14)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("err = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("cooldown bounds", func(t *testing.T) {
		for _, days := range []int64{0, -1, 366} {
			if _, err := NewUnlockRequest(rand.Reader, "user-1", big.NewInt(100), days); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("days=%d: err = %v, want ErrInvalidRange", days, err)
			}
		}
		for _, days := range []int64{1, 365} {
			if _, err := NewUnlockRequest(rand.Reader, "user-1", big.NewInt(100), days); err != nil {
				t.Errorf("days=%d: unexpected err %v", days, err)
			}
		}
	})

	t.Run("commitments are unlinkable", func(t *testing.T) {
		amount := big.NewInt(1_000_000)
		a, err := NewUnlockRequest(rand.Reader, "user-1", amount, 14)
		if err != nil {
			t.Fatal(err)
		}
		b, err := NewUnlockRequest(rand.Reader, "user-1", amount, 14)
		if err != nil {
			t.Fatal(err)
		}
		if a.Commitment.Equal(b.Commitment) {
			t.Error("identical commitments for independently sampled requests")
		}
	})
}

func TestRequestCancel(t *testing.T) {
	req, err := NewUnlockRequest(rand.Reader, "user-1", big.NewInt(100), 14)
	if err != nil {
		t.Fatal(err)
	}
	if err := req.Cancel(); err != nil {
		t.Fatalf("cancel pending request: %v", err)
	}
	if req.Status != RequestStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", req.Status)
	}
	if err := req.Cancel(); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("double cancel: err = %v, want ErrInvalidStateTransition", err)
	}

	req2, err := NewUnlockRequest(rand.Reader, "user-2", big.NewInt(100), 14)
	if err != nil {
		t.Fatal(err)
	}
	req2.Status = RequestStatusMatched
	if err := req2.Cancel(); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("cancel matched: err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestNewLpOffer(t *testing.T) {
	t.Run("default apr", func(t *testing.T) {
		offer, err := NewLpOffer(rand.Reader, "lp-1", big.NewInt(100), big.NewInt(1_000), DefaultApr())
		if err != nil {
			t.Fatalf("NewLpOffer: %v", err)
		}
		if offer.AprBps != pricing.DefaultAprBps {
			t.Errorf("apr = %d, want %d", offer.AprBps, pricing.DefaultAprBps)
		}
		if !offer.Active {
			t.Error("new offer not active")
		}
		if offer.AvailableLiquidity.Cmp(offer.MaxAmount) != 0 {
			t.Error("available liquidity does not start at max amount")
		}
		if offer.TotalEarned.Sign() != 0 {
			t.Error("total earned not zero at creation")
		}
	})

	t.Run("custom apr", func(t *testing.T) {
		offer, err := NewLpOffer(rand.Reader, "lp-1", big.NewInt(100), big.NewInt(1_000), CustomApr(750))
		if err != nil {
			t.Fatalf("NewLpOffer: %v", err)
		}
		if offer.AprBps != 750 {
			t.Errorf("apr = %d, want 750", offer.AprBps)
		}
	})

	t.Run("min above max rejected", func(t *testing.T) {
		_, err := NewLpOffer(rand.Reader, "lp-1", big.NewInt(1_000), big.NewInt(100), DefaultApr())
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("err = %v, want ErrInvalidRange", err)
		}
	})

	t.Run("non-positive bounds rejected", func(t *testing.T) {
		_, err := NewLpOffer(rand.Reader, "lp-1", big.NewInt(0), big.NewInt(100), DefaultApr())
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("err = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("non-positive apr rejected", func(t *testing.T) {
		_, err := NewLpOffer(rand.Reader, "lp-1", big.NewInt(100), big.NewInt(1_000), CustomApr(0))
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("err = %v, want ErrInvalidRange", err)
		}
	})
}

func TestNewMatchedDeal(t *testing.T) {
	amount := pricing.ToRaw(10_000)
	req, err := NewUnlockRequest(rand.Reader, "user-1", amount, 14)
	if err != nil {
		t.Fatal(err)
	}
	offer, err := NewLpOffer(rand.Reader, "lp-1", pricing.ToRaw(100), pricing.ToRaw(100_000), DefaultApr())
	if err != nil {
		t.Fatal(err)
	}

	matchedAt := time.Now().Unix()
	deal, err := NewMatchedDeal(rand.Reader, req, offer, matchedAt, pricing.DefaultAdvanceFeeBps)
	if err != nil {
		t.Fatalf("NewMatchedDeal: %v", err)
	}

	t.Run("conservation", func(t *testing.T) {
		sum := new(big.Int).Add(deal.AdvanceAmount, deal.AdvanceFee)
		if sum.Cmp(deal.StakedAmount) != 0 {
			t.Errorf("advance %s + fee %s != staked %s", deal.AdvanceAmount, deal.AdvanceFee, deal.StakedAmount)
		}
	})

	t.Run("economics", func(t *testing.T) {
		if deal.AdvanceFee.Cmp(pricing.AdvanceFee(amount)) != 0 {
			t.Errorf("fee = %s, want %s", deal.AdvanceFee, pricing.AdvanceFee(amount))
		}
		wantInterest := pricing.AprInterest(amount, 14, pricing.DefaultAprBps)
		if deal.ExpectedInterest.Cmp(wantInterest) != 0 {
			t.Errorf("interest = %s, want %s", deal.ExpectedInterest, wantInterest)
		}
	})

	t.Run("initial status", func(t *testing.T) {
		if deal.Status != DealStatusPendingAdvance {
			t.Errorf("status = %s, want PENDING_ADVANCE", deal.Status)
		}
	})

	t.Run("earnings split covers fee", func(t *testing.T) {
		sum := new(big.Int).Add(pricing.LpShare(deal.AdvanceFee), deal.ProtocolEarnings())
		if sum.Cmp(deal.AdvanceFee) != 0 {
			t.Errorf("lp share + protocol share = %s, want %s", sum, deal.AdvanceFee)
		}
	})

	t.Run("configured fee rate", func(t *testing.T) {
		d, err := NewMatchedDeal(rand.Reader, req, offer, matchedAt, 300)
		if err != nil {
			t.Fatal(err)
		}
		if d.AdvanceFee.Cmp(pricing.Fee(amount, 300)) != 0 {
			t.Errorf("fee = %s, want %s at 300 bps", d.AdvanceFee, pricing.Fee(amount, 300))
		}
		sum := new(big.Int).Add(d.AdvanceAmount, d.AdvanceFee)
		if sum.Cmp(d.StakedAmount) != 0 {
			t.Error("conservation broken at configured fee rate")
		}
	})

	t.Run("deal IDs are blinded", func(t *testing.T) {
		again, err := NewMatchedDeal(rand.Reader, req, offer, matchedAt, pricing.DefaultAdvanceFeeBps)
		if err != nil {
			t.Fatal(err)
		}
		if deal.DealID.Equal(again.DealID) {
			t.Error("identical deal IDs over identical terms")
		}
	})
}

func TestDealStatusTerminal(t *testing.T) {
	terminal := map[DealStatus]bool{
		DealStatusPendingAdvance:    false,
		DealStatusAdvanceCreated:    false,
		DealStatusAdvanced:          false,
		DealStatusPendingSettlement: false,
		DealStatusSettled:           true,
		DealStatusFailed:            true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}
