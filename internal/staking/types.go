// Package staking implements the NFT staking ledger: per-holder accrual of
// reward credit, stake/unstake/claim transitions and reward token issuance.
package staking

import (
	sdkmath "cosmossdk.io/math"
)

// TokenKind identifies which of the two stakeable collections a token comes from.
type TokenKind uint8

const (
	KindA TokenKind = 0
	KindB TokenKind = 1
)

// Valid reports whether k is one of the two stakeable kinds.
func (k TokenKind) Valid() bool {
	return k == KindA || k == KindB
}

func (k TokenKind) String() string {
	switch k {
	case KindA:
		return "a"
	case KindB:
		return "b"
	}
	return "unknown"
}

// TokenRef identifies one staked token.
type TokenRef struct {
	Kind TokenKind `json:"kind"`
	ID   string    `json:"id"`
}

// Matches reports whether the ref points at (kind, id).
func (t TokenRef) Matches(kind TokenKind, id string) bool {
	return t.Kind == kind && t.ID == id
}

// Holder is the per-depositor ledger record.
type Holder struct {
	Tokens          []TokenRef
	LastAccrualTime int64
	Earned          sdkmath.LegacyDec
	Released        sdkmath.LegacyDec
}

// NewHolder returns the all-zero record used for a depositor seen for the first time.
func NewHolder() *Holder {
	return &Holder{
		Tokens:   []TokenRef{},
		Earned:   sdkmath.LegacyZeroDec(),
		Released: sdkmath.LegacyZeroDec(),
	}
}

// Clone returns a deep copy so a query can accrue without touching the stored record.
func (h *Holder) Clone() *Holder {
	tokens := make([]TokenRef, len(h.Tokens))
	copy(tokens, h.Tokens)
	return &Holder{
		Tokens:          tokens,
		LastAccrualTime: h.LastAccrualTime,
		Earned:          h.Earned.Clone(),
		Released:        h.Released.Clone(),
	}
}

// Pending returns earned - released.
func (h *Holder) Pending() sdkmath.LegacyDec {
	return h.Earned.Sub(h.Released)
}

func (h *Holder) indexOf(kind TokenKind, id string) int {
	for i, t := range h.Tokens {
		if t.Matches(kind, id) {
			return i
		}
	}
	return -1
}

// Config is the singleton administrative configuration. All identifiers are
// stored in canonical form.
type Config struct {
	Owner            string
	CollectionA      string
	CollectionB      string
	RewardCollection string
}

// CollectionFor returns the collection a token kind is staked from.
func (c *Config) CollectionFor(kind TokenKind) (string, bool) {
	switch kind {
	case KindA:
		return c.CollectionA, true
	case KindB:
		return c.CollectionB, true
	}
	return "", false
}

// KindFor maps a notifying collection back to its token kind.
func (c *Config) KindFor(collection string) (TokenKind, bool) {
	switch collection {
	case c.CollectionA:
		return KindA, true
	case c.CollectionB:
		return KindB, true
	}
	return 0, false
}

// MintInstruction is one fire-and-forget request to the reward issuer.
type MintInstruction struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Owner      string `json:"owner"`
}

// Attribute is a key/value pair describing an applied transition.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response describes the outcome of a mutating operation.
type Response struct {
	Action     string            `json:"action"`
	Attributes []Attribute       `json:"attributes"`
	Mints      []MintInstruction `json:"mints,omitempty"`
}

func newResponse(action string) *Response {
	return &Response{
		Action:     action,
		Attributes: []Attribute{{Key: "action", Value: action}},
	}
}

func (r *Response) add(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attr returns the value of the first attribute named key.
func (r *Response) Attr(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Caller is the authenticated principal issuing a request.
type Caller struct {
	Principal string
	// RequestID, when set, makes the request idempotent.
	RequestID string
}

// ConfigResponse is the human-readable view of Config.
type ConfigResponse struct {
	Owner            string `json:"owner"`
	CollectionA      string `json:"collection_a"`
	CollectionB      string `json:"collection_b"`
	RewardCollection string `json:"reward_collection"`
}

// RewardResponse reports the unreleased credit of a staker.
type RewardResponse struct {
	RewardAmount sdkmath.LegacyDec `json:"reward_amount"`
	Claimable    uint64            `json:"claimable"`
	Staked       []TokenRef        `json:"staked"`
}
