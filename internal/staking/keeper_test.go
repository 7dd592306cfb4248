package staking

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner      = "owner"
	collA      = "monkeez"
	collB      = "kongz"
	rewardColl = "baybe"
	alice      = "alice"
	bob        = "bob"
)

type harness struct {
	store  *memStore
	oracle *fakeOracle
	clock  *testClock
	keeper *Keeper
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(),
		oracle: newFakeOracle(),
		clock:  &testClock{t: time.Unix(t0, 0)},
	}
	h.keeper = NewKeeper(h.store, h.oracle, fakeCodec{}, discardLogger, WithClock(h.clock.now))
	_, err := h.keeper.Instantiate(context.Background(), Caller{Principal: owner}, InstantiateMsg{
		CollectionA:      collA,
		CollectionB:      collB,
		RewardCollection: rewardColl,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) stake(t *testing.T, collection, depositor, tokenID string) error {
	t.Helper()
	h.oracle.set(collection, tokenID, depositor)
	_, err := h.keeper.ReceiveNft(context.Background(), Caller{Principal: collection}, ReceiveMsg{
		Sender:  depositor,
		TokenID: tokenID,
		Msg:     StakeIntent,
	})
	return err
}

func TestInstantiateTwice(t *testing.T) {
	h := newHarness(t)
	_, err := h.keeper.Instantiate(context.Background(), Caller{Principal: bob}, InstantiateMsg{
		CollectionA: "x", CollectionB: "y", RewardCollection: "z",
	})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, owner, h.store.config().Owner)
}

func TestOperationsBeforeInstantiate(t *testing.T) {
	k := NewKeeper(newMemStore(), newFakeOracle(), fakeCodec{}, discardLogger)
	_, err := k.QueryConfig(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = k.ClaimReward(context.Background(), Caller{Principal: alice})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestStakeCreatesHolder(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))

	rec, ok := h.store.holder(alice)
	require.True(t, ok)
	assert.Equal(t, []TokenRef{{Kind: KindA, ID: "1"}}, rec.Tokens)
	assert.Equal(t, t0, rec.LastAccrualTime)
	assert.True(t, rec.Earned.IsZero())
	assert.True(t, rec.Released.IsZero())
}

func TestStakeAccruesAgainstPreviousComposition(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))

	h.clock.advanceSeconds(21 * secondsPerDay)
	require.NoError(t, h.stake(t, collB, alice, "2"))

	rec, _ := h.store.holder(alice)
	assert.Equal(t, "0.250000000000000000", rec.Earned.String())
	assert.Len(t, rec.Tokens, 2)
	assert.Equal(t, h.clock.unix(), rec.LastAccrualTime)
}

func TestStakeRejectsNonOwner(t *testing.T) {
	h := newHarness(t)
	h.oracle.set(collA, "1", bob)

	_, err := h.keeper.ReceiveNft(context.Background(), Caller{Principal: collA}, ReceiveMsg{
		Sender: alice, TokenID: "1", Msg: StakeIntent,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, ok := h.store.holder(alice)
	assert.False(t, ok)
}

func TestStakeOracleFailureAborts(t *testing.T) {
	h := newHarness(t)
	_, err := h.keeper.ReceiveNft(context.Background(), Caller{Principal: collA}, ReceiveMsg{
		Sender: alice, TokenID: "missing", Msg: StakeIntent,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, ok := h.store.holder(alice)
	assert.False(t, ok)
}

func TestStakeFromUnknownCollection(t *testing.T) {
	h := newHarness(t)
	h.oracle.set("other", "1", alice)
	_, err := h.keeper.ReceiveNft(context.Background(), Caller{Principal: "other"}, ReceiveMsg{
		Sender: alice, TokenID: "1", Msg: StakeIntent,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, h.oracle.calls)
}

func TestReceiveWithoutStakeIntent(t *testing.T) {
	h := newHarness(t)
	for _, msg := range [][]byte{nil, []byte(`{}`), []byte(`{"unstake":{}}`), []byte(`not json`)} {
		_, err := h.keeper.ReceiveNft(context.Background(), Caller{Principal: collA}, ReceiveMsg{
			Sender: alice, TokenID: "1", Msg: msg,
		})
		assert.ErrorIs(t, err, ErrMissingIntent, "msg %q", msg)
	}
}

func TestStakeDuplicateRejected(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	h.clock.advanceSeconds(100)

	err := h.stake(t, collA, alice, "1")
	assert.ErrorIs(t, err, ErrInvalidToken)

	rec, _ := h.store.holder(alice)
	assert.Len(t, rec.Tokens, 1)
	assert.Equal(t, t0, rec.LastAccrualTime)

	// same id in the other collection is a different token
	require.NoError(t, h.stake(t, collB, alice, "1"))
}

func TestUnstakeMissingToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	before, _ := h.store.holder(alice)
	h.clock.advanceSeconds(3600)

	_, err := h.keeper.Unstake(context.Background(), Caller{Principal: alice}, KindB, "1")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = h.keeper.Unstake(context.Background(), Caller{Principal: alice}, KindA, "2")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = h.keeper.Unstake(context.Background(), Caller{Principal: bob}, KindA, "1")
	assert.ErrorIs(t, err, ErrInvalidToken)

	after, _ := h.store.holder(alice)
	assert.Equal(t, before.Tokens, after.Tokens)
	assert.Equal(t, before.LastAccrualTime, after.LastAccrualTime)
	assert.True(t, after.Earned.IsZero())
}

func TestUnstakeInvalidKind(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	_, err := h.keeper.Unstake(context.Background(), Caller{Principal: alice}, TokenKind(2), "1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUnstakeCreditsDepartingToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	require.NoError(t, h.stake(t, collB, alice, "2"))

	// two tokens: 47.25 days per credit
	h.clock.advanceSeconds(4082400)
	_, err := h.keeper.Unstake(context.Background(), Caller{Principal: alice}, KindB, "2")
	require.NoError(t, err)

	rec, _ := h.store.holder(alice)
	assert.True(t, rec.Earned.Equal(sdkmath.LegacyOneDec()), "earned %s", rec.Earned)
	assert.Equal(t, []TokenRef{{Kind: KindA, ID: "1"}}, rec.Tokens)
}

func TestRestakeAfterEmptyIsNotCredited(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	h.clock.advanceSeconds(BaseDurationA)
	_, err := h.keeper.Unstake(context.Background(), Caller{Principal: alice}, KindA, "1")
	require.NoError(t, err)

	// idle for a long time with nothing staked
	h.clock.advanceSeconds(10 * BaseDurationA)
	require.NoError(t, h.stake(t, collA, alice, "1"))

	rec, _ := h.store.holder(alice)
	assert.True(t, rec.Earned.Equal(sdkmath.LegacyOneDec()), "earned %s", rec.Earned)
	assert.Equal(t, h.clock.unix(), rec.LastAccrualTime)

	reward, err := h.keeper.QueryReward(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reward.Claimable)
}

func TestClaimWholeUnitsOnly(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))

	rec, _ := h.store.holder(alice)
	rec.Earned = sdkmath.LegacyMustNewDecFromStr("2.7")
	h.store.putHolder(alice, rec)

	resp, err := h.keeper.ClaimReward(context.Background(), Caller{Principal: alice})
	require.NoError(t, err)
	require.Len(t, resp.Mints, 2)
	assert.Equal(t, "baybe_ape_1", resp.Mints[0].TokenID)
	assert.Equal(t, "baybe_ape_2", resp.Mints[1].TokenID)
	for _, m := range resp.Mints {
		assert.Equal(t, "h:"+rewardColl, m.Collection)
		assert.Equal(t, "h:"+alice, m.Owner)
	}
	num, _ := resp.Attr("reward_num")
	assert.Equal(t, "2", num)

	rec, _ = h.store.holder(alice)
	assert.Equal(t, "2.000000000000000000", rec.Released.String())
	assert.Equal(t, "0.700000000000000000", rec.Pending().String())
	assert.Equal(t, resp.Mints, h.store.outbox())
}

func TestClaimBelowOneUnit(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	h.clock.advanceSeconds(BaseDurationA - 1)

	resp, err := h.keeper.ClaimReward(context.Background(), Caller{Principal: alice})
	require.NoError(t, err)
	assert.Empty(t, resp.Mints)
	assert.Empty(t, h.store.outbox())

	rec, _ := h.store.holder(alice)
	assert.True(t, rec.Released.IsZero())
	assert.True(t, rec.Earned.LT(sdkmath.LegacyOneDec()))
}

func TestClaimWithoutHolder(t *testing.T) {
	h := newHarness(t)
	resp, err := h.keeper.ClaimReward(context.Background(), Caller{Principal: bob})
	require.NoError(t, err)
	assert.Empty(t, resp.Mints)
	_, ok := h.store.holder(bob)
	assert.False(t, ok)
}

func TestMintSequenceSharedAcrossHolders(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	require.NoError(t, h.stake(t, collB, bob, "9"))
	h.clock.advanceSeconds(BaseDurationB)

	first, err := h.keeper.ClaimReward(context.Background(), Caller{Principal: alice})
	require.NoError(t, err)
	second, err := h.keeper.ClaimReward(context.Background(), Caller{Principal: bob})
	require.NoError(t, err)

	// alice: 126/84 = 1.5 -> 1 token; bob: 1 token
	require.Len(t, first.Mints, 1)
	require.Len(t, second.Mints, 1)
	assert.Equal(t, "baybe_ape_1", first.Mints[0].TokenID)
	assert.Equal(t, "baybe_ape_2", second.Mints[0].TokenID)
}

func TestClaimDuplicateRequest(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	h.clock.advanceSeconds(3 * BaseDurationA)

	caller := Caller{Principal: alice, RequestID: "req-1"}
	resp, err := h.keeper.ClaimReward(context.Background(), caller)
	require.NoError(t, err)
	assert.Len(t, resp.Mints, 3)

	h.clock.advanceSeconds(BaseDurationA)
	_, err = h.keeper.ClaimReward(context.Background(), caller)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Len(t, h.store.outbox(), 3)
}

func TestUpdateConfigUnauthorized(t *testing.T) {
	h := newHarness(t)
	before := h.store.config()

	newOwner := bob
	_, err := h.keeper.UpdateConfig(context.Background(), Caller{Principal: alice}, UpdateConfigMsg{Owner: &newOwner})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, h.store.config())
}

func TestUpdateConfigPartial(t *testing.T) {
	h := newHarness(t)
	newB := "h:Gorillaz"
	resp, err := h.keeper.UpdateConfig(context.Background(), Caller{Principal: owner}, UpdateConfigMsg{CollectionB: &newB})
	require.NoError(t, err)

	assert.Equal(t, []Attribute{{"action", "update"}, {"collection_b", newB}}, resp.Attributes)
	cfg := h.store.config()
	assert.Equal(t, Config{Owner: owner, CollectionA: collA, CollectionB: "gorillaz", RewardCollection: rewardColl}, cfg)
}

func TestUpdateConfigTransfersOwnership(t *testing.T) {
	h := newHarness(t)
	newOwner := bob
	_, err := h.keeper.UpdateConfig(context.Background(), Caller{Principal: owner}, UpdateConfigMsg{Owner: &newOwner})
	require.NoError(t, err)

	reward := "newreward"
	_, err = h.keeper.UpdateConfig(context.Background(), Caller{Principal: owner}, UpdateConfigMsg{RewardCollection: &reward})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.keeper.UpdateConfig(context.Background(), Caller{Principal: bob}, UpdateConfigMsg{RewardCollection: &reward})
	assert.NoError(t, err)
}

func TestUpdateConfigInvalidAddress(t *testing.T) {
	h := newHarness(t)
	before := h.store.config()
	bad := "not valid!"
	_, err := h.keeper.UpdateConfig(context.Background(), Caller{Principal: owner}, UpdateConfigMsg{CollectionA: &bad})
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Equal(t, before, h.store.config())
}

func TestQueryConfigHumanized(t *testing.T) {
	h := newHarness(t)
	cfg, err := h.keeper.QueryConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ConfigResponse{
		Owner:            "h:owner",
		CollectionA:      "h:monkeez",
		CollectionB:      "h:kongz",
		RewardCollection: "h:baybe",
	}, cfg)
}

func TestQueryRewardDoesNotPersist(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))
	h.clock.advanceSeconds(42 * secondsPerDay)

	reward, err := h.keeper.QueryReward(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "0.500000000000000000", reward.RewardAmount.String())
	assert.Zero(t, reward.Claimable)

	rec, _ := h.store.holder(alice)
	assert.True(t, rec.Earned.IsZero())
	assert.Equal(t, t0, rec.LastAccrualTime)
}

func TestQueryRewardUnknownStaker(t *testing.T) {
	h := newHarness(t)
	reward, err := h.keeper.QueryReward(context.Background(), bob)
	require.NoError(t, err)
	assert.True(t, reward.RewardAmount.IsZero())
	assert.Empty(t, reward.Staked)
}

func TestStakeQueryClaimEndToEnd(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.stake(t, collA, alice, "1"))

	h.clock.advanceSeconds(7257600)
	reward, err := h.keeper.QueryReward(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, reward.RewardAmount.Equal(sdkmath.LegacyOneDec()), "reward %s", reward.RewardAmount)
	assert.Equal(t, uint64(1), reward.Claimable)

	resp, err := h.keeper.ClaimReward(context.Background(), Caller{Principal: alice})
	require.NoError(t, err)
	require.Len(t, resp.Mints, 1)
	assert.Equal(t, "baybe_ape_1", resp.Mints[0].TokenID)

	rec, _ := h.store.holder(alice)
	assert.True(t, rec.Released.Equal(sdkmath.LegacyOneDec()))
	assert.True(t, rec.Pending().IsZero())
}

func TestExecuteDispatch(t *testing.T) {
	h := newHarness(t)
	h.oracle.set(collA, "7", alice)

	data, err := MakeEnvelope(ActionReceiveNft, ReceiveMsg{Sender: alice, TokenID: "7", Msg: StakeIntent})
	require.NoError(t, err)
	resp, err := h.keeper.Execute(context.Background(), Caller{Principal: collA}, data)
	require.NoError(t, err)
	assert.Equal(t, "stake", resp.Action)

	data, err = MakeEnvelope(ActionUnstake, UnstakeMsg{TokenKind: KindA, TokenID: "7"})
	require.NoError(t, err)
	resp, err = h.keeper.Execute(context.Background(), Caller{Principal: alice}, data)
	require.NoError(t, err)
	assert.Equal(t, "unstake", resp.Action)

	data, err = MakeEnvelope(ActionClaimReward, nil)
	require.NoError(t, err)
	resp, err = h.keeper.Execute(context.Background(), Caller{Principal: alice}, data)
	require.NoError(t, err)
	assert.Equal(t, "claim_reward", resp.Action)

	_, err = h.keeper.Execute(context.Background(), Caller{Principal: alice}, []byte(`{"action":"burn"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = h.keeper.Execute(context.Background(), Caller{Principal: alice}, []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "Unauthorized", KindOf(ErrUnauthorized))
	assert.Equal(t, "InvalidToken", KindOf(wrapStorage(ErrInvalidToken)))
	assert.Equal(t, "StorageFailure", KindOf(wrapStorage(context.DeadlineExceeded)))
	assert.Equal(t, "MissingIntent", KindOf(ErrMissingIntent))
}
