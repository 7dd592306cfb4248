package staking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMintPrefix prefixes the id of every minted reward token.
const DefaultMintPrefix = "baybe_ape"

// Keeper executes ledger operations against a Store.
type Keeper struct {
	store  Store
	oracle OwnershipOracle
	codec  AddressCodec
	log    *slog.Logger

	now        func() time.Time
	mintPrefix string
}

// Option customizes a Keeper.
type Option func(*Keeper)

// WithClock overrides the wall clock used for accrual.
func WithClock(now func() time.Time) Option {
	return func(k *Keeper) { k.now = now }
}

// WithMintPrefix overrides DefaultMintPrefix.
func WithMintPrefix(prefix string) Option {
	return func(k *Keeper) {
		if prefix != "" {
			k.mintPrefix = prefix
		}
	}
}

// NewKeeper creates a Keeper.
func NewKeeper(store Store, oracle OwnershipOracle, codec AddressCodec, log *slog.Logger, opts ...Option) *Keeper {
	k := &Keeper{
		store:      store,
		oracle:     oracle,
		codec:      codec,
		log:        log,
		now:        time.Now,
		mintPrefix: DefaultMintPrefix,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Keeper) canonical(addr string) (string, error) {
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := k.codec.Canonicalize(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	return raw, nil
}

func (k *Keeper) human(addr string) (string, error) {
	h, err := k.codec.Humanize(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	return h, nil
}

// update runs fn atomically, rejecting replays of caller.RequestID.
func (k *Keeper) update(ctx context.Context, caller Caller, fn func(Tx) error) error {
	err := k.store.Update(ctx, func(tx Tx) error {
		if caller.RequestID != "" {
			fresh, err := tx.MarkRequest(caller.RequestID)
			if err != nil {
				return wrapStorage(err)
			}
			if !fresh {
				return fmt.Errorf("%w: %s", ErrDuplicateRequest, caller.RequestID)
			}
		}
		return fn(tx)
	})
	return wrapStorage(err)
}

// Instantiate creates the ledger configuration with the caller as owner and
// resets the mint sequence.
func (k *Keeper) Instantiate(ctx context.Context, caller Caller, msg InstantiateMsg) (*Response, error) {
	owner, err := k.canonical(caller.Principal)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Owner: owner}
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&cfg.CollectionA, msg.CollectionA},
		{&cfg.CollectionB, msg.CollectionB},
		{&cfg.RewardCollection, msg.RewardCollection},
	} {
		if *f.dst, err = k.canonical(f.src); err != nil {
			return nil, err
		}
	}

	err = k.update(ctx, caller, func(tx Tx) error {
		if _, err := tx.Config(); err == nil {
			return ErrAlreadyInitialized
		} else if !errors.Is(err, ErrNotInitialized) {
			return err
		}
		if err := tx.SetConfig(cfg); err != nil {
			return err
		}
		return tx.SetMintSequence(0)
	})
	if err != nil {
		return nil, err
	}

	k.log.Info("ledger instantiated", "owner", caller.Principal)
	return newResponse("instantiate").
		add("owner", caller.Principal).
		add("collection_a", msg.CollectionA).
		add("collection_b", msg.CollectionB).
		add("reward_collection", msg.RewardCollection), nil
}

// ReceiveNft handles a custody-receive notification. The caller is the
// collection the token was transferred from.
func (k *Keeper) ReceiveNft(ctx context.Context, caller Caller, msg ReceiveMsg) (*Response, error) {
	collection, err := k.canonical(caller.Principal)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	if err := k.store.View(ctx, func(tx Tx) error {
		var err error
		cfg, err = tx.Config()
		return err
	}); err != nil {
		return nil, wrapStorage(err)
	}

	if !isStakeIntent(msg.Msg) {
		return nil, ErrMissingIntent
	}
	kind, ok := cfg.KindFor(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a stakeable collection", ErrUnauthorized, caller.Principal)
	}
	return k.stake(ctx, caller, collection, kind, msg.Sender, msg.TokenID)
}

func (k *Keeper) stake(ctx context.Context, caller Caller, collection string, kind TokenKind, depositor, tokenID string) (*Response, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("%w: empty token id", ErrInvalidToken)
	}
	staker, err := k.canonical(depositor)
	if err != nil {
		return nil, err
	}

	// Ownership is checked before any write.
	owner, err := k.oracle.OwnerOf(ctx, collection, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: owner of %s: %v", ErrUnauthorized, tokenID, err)
	}
	if ownerRaw, err := k.codec.Canonicalize(owner); err != nil || ownerRaw != staker {
		return nil, fmt.Errorf("%w: %s is not owned by %s", ErrUnauthorized, tokenID, depositor)
	}

	now := k.now().Unix()
	err = k.update(ctx, caller, func(tx Tx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		if current, ok := cfg.KindFor(collection); !ok || current != kind {
			return fmt.Errorf("%w: collection reconfigured", ErrUnauthorized)
		}

		h, _, err := tx.Holder(staker)
		if err != nil {
			return err
		}
		if h.indexOf(kind, tokenID) >= 0 {
			return fmt.Errorf("%w: %s/%s already staked", ErrInvalidToken, kind, tokenID)
		}

		if err := Accrue(h, now); err != nil {
			return err
		}
		// Time spent with nothing staked is never credited.
		if len(h.Tokens) == 0 {
			h.LastAccrualTime = now
		}
		h.Tokens = append(h.Tokens, TokenRef{Kind: kind, ID: tokenID})
		return tx.SetHolder(staker, h)
	})
	if err != nil {
		return nil, err
	}

	k.log.Info("stake", "staker", depositor, "kind", kind, "token_id", tokenID)
	return newResponse("stake").
		add("staker", depositor).
		add("token_kind", fmt.Sprint(uint8(kind))).
		add("token_id", tokenID), nil
}

// Unstake removes one token from the caller's holder record after accruing
// against the composition that still includes it.
func (k *Keeper) Unstake(ctx context.Context, caller Caller, kind TokenKind, tokenID string) (*Response, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: token kind must be 0 or 1, got %d", ErrInvalidToken, kind)
	}
	staker, err := k.canonical(caller.Principal)
	if err != nil {
		return nil, err
	}

	now := k.now().Unix()
	err = k.update(ctx, caller, func(tx Tx) error {
		h, found, err := tx.Holder(staker)
		if err != nil {
			return err
		}
		idx := -1
		if found {
			idx = h.indexOf(kind, tokenID)
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s/%s is not staked by sender", ErrInvalidToken, kind, tokenID)
		}

		if err := Accrue(h, now); err != nil {
			return err
		}
		h.Tokens = append(h.Tokens[:idx], h.Tokens[idx+1:]...)
		return tx.SetHolder(staker, h)
	})
	if err != nil {
		return nil, err
	}

	k.log.Info("unstake", "staker", caller.Principal, "kind", kind, "token_id", tokenID)
	return newResponse("unstake").
		add("staker", caller.Principal).
		add("token_kind", fmt.Sprint(uint8(kind))).
		add("token_id", tokenID), nil
}

// UpdateConfig overwrites the supplied configuration fields. Only the current
// owner may call it.
func (k *Keeper) UpdateConfig(ctx context.Context, caller Caller, msg UpdateConfigMsg) (*Response, error) {
	sender, err := k.canonical(caller.Principal)
	if err != nil {
		return nil, err
	}

	type change struct {
		key   string
		value string
		raw   string
		apply func(*Config, string)
	}
	var changes []change
	for _, f := range []struct {
		key   string
		value *string
		apply func(*Config, string)
	}{
		{"owner", msg.Owner, func(c *Config, v string) { c.Owner = v }},
		{"collection_a", msg.CollectionA, func(c *Config, v string) { c.CollectionA = v }},
		{"collection_b", msg.CollectionB, func(c *Config, v string) { c.CollectionB = v }},
		{"reward_collection", msg.RewardCollection, func(c *Config, v string) { c.RewardCollection = v }},
	} {
		if f.value == nil {
			continue
		}
		raw, err := k.canonical(*f.value)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change{key: f.key, value: *f.value, raw: raw, apply: f.apply})
	}

	err = k.update(ctx, caller, func(tx Tx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		if cfg.Owner != sender {
			return ErrUnauthorized
		}
		for _, c := range changes {
			c.apply(cfg, c.raw)
		}
		return tx.SetConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	resp := newResponse("update")
	for _, c := range changes {
		resp.add(c.key, c.value)
	}
	k.log.Info("config updated", "by", caller.Principal, "fields", len(changes))
	return resp, nil
}

// QueryConfig returns the configuration with identifiers in human form.
func (k *Keeper) QueryConfig(ctx context.Context) (*ConfigResponse, error) {
	var cfg *Config
	err := k.store.View(ctx, func(tx Tx) error {
		var err error
		cfg, err = tx.Config()
		return err
	})
	if err != nil {
		return nil, wrapStorage(err)
	}

	resp := &ConfigResponse{}
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&resp.Owner, cfg.Owner},
		{&resp.CollectionA, cfg.CollectionA},
		{&resp.CollectionB, cfg.CollectionB},
		{&resp.RewardCollection, cfg.RewardCollection},
	} {
		if *f.dst, err = k.human(f.src); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// QueryReward reports earned - released for staker as of now. The accrual is
// applied to a copy and never persisted.
func (k *Keeper) QueryReward(ctx context.Context, staker string) (*RewardResponse, error) {
	raw, err := k.canonical(staker)
	if err != nil {
		return nil, err
	}

	var h *Holder
	err = k.store.View(ctx, func(tx Tx) error {
		stored, _, err := tx.Holder(raw)
		if err != nil {
			return err
		}
		h = stored.Clone()
		return nil
	})
	if err != nil {
		return nil, wrapStorage(err)
	}

	if err := Accrue(h, k.now().Unix()); err != nil {
		return nil, err
	}
	pending := h.Pending()
	return &RewardResponse{
		RewardAmount: pending,
		Claimable:    wholeUnits(pending),
		Staked:       h.Tokens,
	}, nil
}

// Execute decodes a tagged request and dispatches it.
func (k *Keeper) Execute(ctx context.Context, caller Caller, data []byte) (*Response, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Action {
	case ActionReceiveNft:
		var msg ReceiveMsg
		if err := DecodePayload(env, &msg); err != nil {
			return nil, err
		}
		return k.ReceiveNft(ctx, caller, msg)

	case ActionUnstake:
		var msg UnstakeMsg
		if err := DecodePayload(env, &msg); err != nil {
			return nil, err
		}
		return k.Unstake(ctx, caller, msg.TokenKind, msg.TokenID)

	case ActionClaimReward:
		return k.ClaimReward(ctx, caller)

	case ActionUpdateConfig:
		var msg UpdateConfigMsg
		if err := DecodePayload(env, &msg); err != nil {
			return nil, err
		}
		return k.UpdateConfig(ctx, caller, msg)
	}
	return nil, fmt.Errorf("%w: unsupported action %q", ErrInvalidMessage, env.Action)
}
