package staking

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

const secondsPerDay = 86400

// Seconds needed to accrue one credit with a single token of each kind staked.
const (
	BaseDurationA = 84 * secondsPerDay
	BaseDurationB = 126 * secondsPerDay

	// FloorDuration applies once the per-token discount reaches 100%.
	FloorDuration = secondsPerDay
)

var discountStep = sdkmath.LegacyNewDecWithPrec(1, 1) // 10% per extra token

func baseDuration(kind TokenKind) (uint64, error) {
	switch kind {
	case KindA:
		return BaseDurationA, nil
	case KindB:
		return BaseDurationB, nil
	}
	return 0, fmt.Errorf("%w: unknown token kind %d", ErrInvalidToken, kind)
}

// StakingDuration returns the number of seconds a holder with the given tokens
// needs to accrue exactly one reward credit.
//
// With a single token it is that token's base duration. With N > 1 tokens it is
//
//	((baseA*a + baseB*b) / N / N) * (1 - (N-1)/10)
//
// computed in 18-digit fixed point and truncated to whole seconds, or
// FloorDuration once the discount factor is no longer positive (N >= 11).
func StakingDuration(tokens []TokenRef) (uint64, error) {
	n := len(tokens)
	switch n {
	case 0:
		return 0, ErrAccrualUndefined
	case 1:
		return baseDuration(tokens[0].Kind)
	}

	var a, b int64
	for _, t := range tokens {
		switch t.Kind {
		case KindA:
			a++
		case KindB:
			b++
		default:
			return 0, fmt.Errorf("%w: unknown token kind %d", ErrInvalidToken, t.Kind)
		}
	}

	count := sdkmath.LegacyNewDec(int64(n))

	// count-weighted average of the base durations
	t1 := sdkmath.LegacyNewDec(BaseDurationA * a).QuoTruncate(count).
		Add(sdkmath.LegacyNewDec(BaseDurationB * b).QuoTruncate(count))
	t2 := t1.QuoTruncate(count)

	k := sdkmath.LegacyOneDec().Sub(sdkmath.LegacyNewDec(int64(n - 1)).MulTruncate(discountStep))
	if !k.IsPositive() {
		return FloorDuration, nil
	}
	return uint64(t2.MulTruncate(k).TruncateInt64()), nil
}
