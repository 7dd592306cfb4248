package staking

import (
	sdkmath "cosmossdk.io/math"
)

// Accrue credits h with the reward earned between its checkpoint and now,
// priced at the duration of its current composition, and moves the
// checkpoint to now.
//
// A holder with nothing staked does not accrue and keeps its checkpoint.
// A clock behind the checkpoint is ignored.
func Accrue(h *Holder, now int64) error {
	if len(h.Tokens) == 0 || now < h.LastAccrualTime {
		return nil
	}
	duration, err := StakingDuration(h.Tokens)
	if err != nil {
		return err
	}
	if duration == 0 {
		return ErrAccrualUndefined
	}

	elapsed := now - h.LastAccrualTime
	delta := sdkmath.LegacyNewDec(elapsed).QuoTruncate(sdkmath.LegacyNewDec(int64(duration)))

	h.Earned = h.Earned.Add(delta)
	h.LastAccrualTime = now
	return nil
}
