package staking

import (
	"context"
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"
)

// ClaimReward converts the caller's whole units of unreleased credit into
// reward token mints.
//
// Released credit is advanced and the mint instructions are queued in the same
// transaction; the instructions are dispatched to the issuer only after commit
// and a failed mint never returns the credit.
func (k *Keeper) ClaimReward(ctx context.Context, caller Caller) (*Response, error) {
	staker, err := k.canonical(caller.Principal)
	if err != nil {
		return nil, err
	}
	recipient, err := k.human(staker)
	if err != nil {
		return nil, err
	}

	now := k.now().Unix()
	var mints []MintInstruction
	err = k.update(ctx, caller, func(tx Tx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		h, found, err := tx.Holder(staker)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		if err := Accrue(h, now); err != nil {
			return err
		}
		claimable := wholeUnits(h.Pending())
		if claimable > 0 {
			mints, err = k.issue(tx, cfg, recipient, claimable)
			if err != nil {
				return err
			}
			h.Released = h.Released.Add(sdkmath.LegacyNewDec(int64(claimable)))
		}
		return tx.SetHolder(staker, h)
	})
	if err != nil {
		return nil, err
	}

	k.log.Info("claim reward", "staker", caller.Principal, "minted", len(mints))
	resp := newResponse("claim_reward").
		add("staker", caller.Principal).
		add("reward_num", strconv.Itoa(len(mints)))
	resp.Mints = mints
	return resp, nil
}

// issue advances the global mint sequence once per unit and queues one mint
// instruction per new sequence value.
func (k *Keeper) issue(tx Tx, cfg *Config, recipient string, units uint64) ([]MintInstruction, error) {
	collection, err := k.human(cfg.RewardCollection)
	if err != nil {
		return nil, err
	}
	seq, err := tx.MintSequence()
	if err != nil {
		return nil, err
	}

	mints := make([]MintInstruction, 0, units)
	for i := uint64(0); i < units; i++ {
		seq++
		mints = append(mints, MintInstruction{
			Collection: collection,
			TokenID:    MintTokenID(k.mintPrefix, seq),
			Owner:      recipient,
		})
	}
	if err := tx.SetMintSequence(seq); err != nil {
		return nil, err
	}
	if err := tx.EnqueueMints(mints); err != nil {
		return nil, err
	}
	return mints, nil
}

// MintTokenID derives the reward token id for a mint sequence value.
func MintTokenID(prefix string, seq uint64) string {
	return fmt.Sprintf("%s_%d", prefix, seq)
}

func wholeUnits(d sdkmath.LegacyDec) uint64 {
	if !d.IsPositive() {
		return 0
	}
	return uint64(d.TruncateInt64())
}
