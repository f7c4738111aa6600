// main.go - Demo scenario: three LPs fund an early unlock for one user.
//
// This walks the full private unlock flow end to end:
//   - 3 LPs register liquidity offers at different APRs
//   - a user builds a private unlock request (commitment only leaves the device)
//   - the matching engine pairs the request with the cheapest offer
//   - the user proves knowledge of the commitment preimage with Groth16
//   - deal terms are sealed to the LP's key, never sent in the clear
//   - the in-memory chain mints and consumes the advance note, records the
//     nullifier, and the tracker drives the deal toward settlement
//
// Usage:
//   go run ./cmd/voiled [config.yaml]

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"voile/internal/commitment"
	"voile/internal/config"
	"voile/internal/lifecycle"
	"voile/internal/matching"
	"voile/internal/pricing"
	"voile/internal/protocol"
	"voile/internal/settlement"
)

const version = "0.3.0"

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	if cfg.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}

func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load failed")
	}
	log := newLogger(cfg.Log)
	log.Info().Str("version", version).Msg("voiled starting")

	metrics := NewMetricsCollector()
	health := NewHealthChecker(version)
	limiter := NewAccountRateLimiter(cfg.Limits.RequestBurst, cfg.Limits.RequestsPerSecond, time.Second)

	// Claim circuit setup. Keys are generated on first run and reused after.
	compileStart := time.Now()
	ccs, err := commitment.CompileClaimCircuit()
	if err != nil {
		log.Fatal().Err(err).Msg("claim circuit compilation failed")
	}
	metrics.RecordCircuitCompile(time.Since(compileStart))
	pk, vk, err := commitment.SetupOrLoadKeys(ccs, cfg.Keys.ProvingKeyPath, cfg.Keys.VerifyingKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("claim key setup failed")
	}

	chain := settlement.NewMemChain()
	engine := matching.NewEngine(rand.Reader, cfg.Pricing.AdvanceFeeBps, log)
	tracker := lifecycle.NewTracker(log)

	health.RegisterComponent("claim_keys", func() error {
		if pk == nil || vk == nil {
			return errors.New("claim keys not loaded")
		}
		return nil
	})
	health.RegisterComponent("settlement_chain", func() error {
		f, err := os.OpenFile(cfg.Chain.StatePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("chain state path not writable: %w", err)
		}
		return f.Close()
	})

	// LPs register offers; the cheapest APR should win the match.
	type lpSpec struct {
		id     protocol.AccountID
		min    int64
		max    int64
		policy protocol.AprPolicy
	}
	// lp-gamma quotes the daemon's configured default APR.
	specs := []lpSpec{
		{"lp-alpha", 500, 50_000, protocol.CustomApr(1_200)},
		{"lp-beta", 500, 80_000, protocol.CustomApr(900)},
		{"lp-gamma", 1_000, 30_000, protocol.CustomApr(cfg.Pricing.DefaultAprBps)},
	}
	offers := make(map[uint64]*protocol.LpOffer)
	lpKeys := make(map[protocol.AccountID]*commitment.KeyPair)
	var probeOfferID uint64
	for _, s := range specs {
		offer, err := protocol.NewLpOffer(rand.Reader, s.id, pricing.ToRaw(s.min), pricing.ToRaw(s.max), s.policy)
		if err != nil {
			log.Fatal().Err(err).Str("lp", string(s.id)).Msg("offer construction failed")
		}
		kp, err := commitment.GenerateKeyPair()
		if err != nil {
			log.Fatal().Err(err).Msg("LP key generation failed")
		}
		engine.AddOffer(offer)
		offers[offer.OfferID] = offer
		lpKeys[s.id] = kp
		if probeOfferID == 0 {
			probeOfferID = offer.OfferID
		}
	}
	health.RegisterComponent("matching_engine", func() error {
		if engine.Offer(probeOfferID) == nil {
			return fmt.Errorf("engine lost offer %d", probeOfferID)
		}
		return nil
	})

	// The user builds a private request on their side.
	user := protocol.AccountID("user-1")
	if !limiter.Allow(string(user)) {
		log.Fatal().Str("user", string(user)).Msg("rate limited")
	}
	log.Debug().
		Str("user", string(user)).
		Int("tokens_left", limiter.GetTokens(string(user))).
		Msg("request admitted")
	req, err := protocol.NewUnlockRequest(rand.Reader, user, pricing.ToRaw(10_000), cfg.Pricing.CooldownDays)
	if err != nil {
		log.Fatal().Err(err).Msg("request construction failed")
	}
	metrics.RecordRequest(string(user))
	log.Info().Str("commitment", req.Commitment.Hex()).Msg("unlock request built")

	deal, err := engine.MatchRequest(req)
	if err != nil {
		log.Fatal().Err(err).Msg("match failed")
	}
	if deal == nil {
		metrics.RecordNoMatch()
		log.Info().Msg("no offer can fund the request")
		return
	}
	metrics.RecordMatch(deal.OfferID, len(specs))
	metrics.SetGauge(MetricReservedLiquidity, float64(deal.AdvanceAmount.Int64()), nil)
	tracker.Track(deal, req, offers[deal.OfferID])
	log.Info().
		Str("deal_id", deal.DealID.Hex()).
		Str("lp", string(deal.LpAccountID)).
		Str("advance", deal.AdvanceAmount.String()).
		Str("fee", deal.AdvanceFee.String()).
		Str("expected_interest", deal.ExpectedInterest.String()).
		Msg("deal struck")

	// The user proves the commitment preimage and nullifier without
	// revealing amount, identity, or timing.
	nullifier, err := req.Nullifier()
	if err != nil {
		log.Fatal().Err(err).Msg("nullifier derivation failed")
	}
	proveStart := time.Now()
	proof, err := commitment.ProveClaim(commitment.ClaimWitness{
		Amount:      req.Amount,
		CooldownEnd: req.CooldownEnd,
		Secret:      req.NullifierSecret,
		UserID:      string(req.UserAccountID),
		RequestID:   req.RequestID,
		Commitment:  req.Commitment[0],
		Nullifier:   nullifier,
	}, ccs, pk)
	if err != nil {
		metrics.RecordError("proof_generation")
		log.Fatal().Err(err).Msg("claim proof failed")
	}
	metrics.RecordProofGeneration(time.Since(proveStart))
	if err := commitment.VerifyClaim(proof, req.Commitment[0], nullifier, vk); err != nil {
		metrics.RecordError("proof_verification")
		log.Fatal().Err(err).Msg("claim verification failed")
	}
	log.Info().Int("proof_bytes", len(proof)).Msg("claim proof verified")

	// Deal terms travel to the LP sealed against its key.
	userKeys, err := commitment.GenerateKeyPair()
	if err != nil {
		log.Fatal().Err(err).Msg("user key generation failed")
	}
	lpKey := lpKeys[deal.LpAccountID]
	box, err := commitment.Seal([]byte(deal.DealID.Hex()), userKeys.Sk, lpKey.Pk)
	if err != nil {
		log.Fatal().Err(err).Msg("sealing deal terms failed")
	}
	if _, err := commitment.Open(box, lpKey.Sk, userKeys.Pk); err != nil {
		log.Fatal().Err(err).Msg("LP could not open sealed terms")
	}

	// Settlement against the in-memory chain.
	ctx := context.Background()
	dealID := deal.DealID.Hex()

	advNote, st, err := chain.CreateAdvanceNote(ctx, settlement.AdvanceInputs(deal))
	if err != nil {
		log.Fatal().Err(err).Msg("advance note failed")
	}
	if err := tracker.AdvanceCreated(dealID, advNote); err != nil {
		log.Fatal().Err(err).Msg("advance transition failed")
	}
	log.Info().Str("note", advNote).Uint64("block", st.BlockNumber).Msg("advance note minted")

	if _, err := chain.ConsumeNote(ctx, advNote); err != nil {
		log.Fatal().Err(err).Msg("advance consumption failed")
	}
	if err := tracker.AdvanceConsumed(dealID); err != nil {
		log.Fatal().Err(err).Msg("consume transition failed")
	}

	settleNote, _, err := chain.CreateSettlementNote(ctx, settlement.SettlementInputs(deal))
	if err != nil {
		log.Fatal().Err(err).Msg("settlement note failed")
	}
	if err := tracker.SetSettlementNote(dealID, settleNote); err != nil {
		log.Fatal().Err(err).Msg("settlement note transition failed")
	}
	if _, err := chain.SubmitNullifier(ctx, nullifier); err != nil {
		log.Fatal().Err(err).Msg("nullifier submission failed")
	}

	// Cooldown has not expired yet; Settle reports the remaining wait.
	if settled, remaining, err := tracker.Settle(dealID, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("settle attempt failed")
	} else if !settled {
		log.Info().Dur("remaining", remaining).Msg("cooldown still running, settling at expiry")
	}
	settled, _, err := tracker.Settle(dealID, time.Unix(deal.CooldownEnd, 0))
	if err != nil || !settled {
		log.Fatal().Err(err).Msg("settlement at cooldown expiry failed")
	}
	metrics.RecordSettlement()

	offer := offers[deal.OfferID]
	days := pricing.ClampDays((deal.CooldownEnd - deal.MatchedAt) / pricing.SecondsPerDay)
	apy := pricing.EffectiveAPY(offer.TotalEarned, deal.AdvanceAmount, days)
	log.Info().
		Str("lp", string(deal.LpAccountID)).
		Str("lp_earned", offer.TotalEarned.String()).
		Str("effective_apy_pct", apy.StringFixed(2)).
		Msg("deal settled")

	if err := chain.SaveToFile(cfg.Chain.StatePath); err != nil {
		log.Warn().Err(err).Msg("chain state not persisted")
	}

	report := health.CheckHealth()
	log.Info().
		Str("status", string(report.OverallStatus)).
		Dur("uptime", report.Uptime).
		Interface("metrics", metrics.GetMetricsSummary()).
		Msg("voiled done")
}
