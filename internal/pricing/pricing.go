// pricing.go - Fixed-point fee and interest arithmetic for the Voile protocol.
//
// All money values are integers in raw units (10^-6 of a display token).
// Every settlement-facing quantity is computed with big.Int floor division;
// no floating point ever feeds back into deal records. The single
// display-only exception is EffectiveAPY, which returns a decimal.

package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Protocol pricing constants, in basis points unless noted.
const (
	// DefaultAdvanceFeeBps is the advance fee: 5% = 500 bps.
	DefaultAdvanceFeeBps = 500

	// DefaultAprBps is the default APR charged by LPs: 10% = 1000 bps.
	DefaultAprBps = 1000

	// LpFeeBps is the LP share of the advance fee: 80%.
	LpFeeBps = 8000

	// ProtocolFeeBps is the protocol share of the advance fee: 20%.
	ProtocolFeeBps = 2000

	// DefaultCooldownDays is the standard unstaking cooldown.
	DefaultCooldownDays = 14

	// MinCooldownDays and MaxCooldownDays bound accepted cooldowns.
	MinCooldownDays = 1
	MaxCooldownDays = 365

	// RawUnitsPerToken converts display tokens to raw units (6 decimals).
	RawUnitsPerToken = 1_000_000

	// SecondsPerDay is used when deriving cooldown timestamps.
	SecondsPerDay = 86400
)

var (
	bpsDenominator = big.NewInt(10_000)
	daysPerYear    = big.NewInt(365)
	rawPerToken    = big.NewInt(RawUnitsPerToken)
)

// Fee returns floor(principal * feeBps / 10000).
func Fee(principal *big.Int, feeBps int64) *big.Int {
	fee := new(big.Int).Mul(principal, big.NewInt(feeBps))
	return fee.Quo(fee, bpsDenominator)
}

// AdvanceFee returns the advance fee for a principal at the default fee rate.
func AdvanceFee(principal *big.Int) *big.Int {
	return Fee(principal, DefaultAdvanceFeeBps)
}

// NetAdvance returns the principal minus the default advance fee.
// Conservation holds exactly: NetAdvance(p) + AdvanceFee(p) == p.
func NetAdvance(principal *big.Int) *big.Int {
	return new(big.Int).Sub(principal, AdvanceFee(principal))
}

// AprInterest returns floor(principal * aprBps * days / (10000 * 365)).
func AprInterest(principal *big.Int, days int64, aprBps int64) *big.Int {
	interest := new(big.Int).Mul(principal, big.NewInt(aprBps))
	interest.Mul(interest, big.NewInt(days))
	interest.Quo(interest, new(big.Int).Mul(bpsDenominator, daysPerYear))
	return interest
}

// ProtocolShare returns floor(fee * ProtocolFeeBps / 10000).
func ProtocolShare(fee *big.Int) *big.Int {
	return Fee(fee, ProtocolFeeBps)
}

// LpShare returns the LP portion of the advance fee.
// The flooring remainder of the split goes to the LP, so
// LpShare(fee) + ProtocolShare(fee) == fee holds exactly for all fees.
func LpShare(fee *big.Int) *big.Int {
	return new(big.Int).Sub(fee, ProtocolShare(fee))
}

// ClampDays clamps a day count to a minimum of one, so that a cooldown that
// has already expired at match time never prices a zero-duration advance.
func ClampDays(days int64) int64 {
	if days < 1 {
		return 1
	}
	return days
}

// IsValidCooldown reports whether a cooldown duration is accepted by the
// protocol. Validation happens at the builder boundary; the arithmetic
// functions above never fail.
func IsValidCooldown(days int64) bool {
	return days >= MinCooldownDays && days <= MaxCooldownDays
}

// EffectiveAPY returns the annualized LP yield as a percentage:
//
//	apy = totalLpEarnings / netAdvance * (365/days) * 100
//
// Display only. The result must never be fed back into settlement math.
func EffectiveAPY(totalLpEarnings, netAdvance *big.Int, days int64) decimal.Decimal {
	if netAdvance.Sign() == 0 || days <= 0 {
		return decimal.Zero
	}
	earnings := decimal.NewFromBigInt(totalLpEarnings, 0)
	principal := decimal.NewFromBigInt(netAdvance, 0)
	return earnings.Div(principal).
		Mul(decimal.NewFromInt(365)).
		Div(decimal.NewFromInt(days)).
		Mul(decimal.NewFromInt(100))
}

// ToRaw converts a display-token amount to raw units.
func ToRaw(tokens int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(tokens), rawPerToken)
}

// FromRaw converts raw units to whole display tokens (floor).
func FromRaw(raw *big.Int) int64 {
	return new(big.Int).Quo(raw, rawPerToken).Int64()
}
