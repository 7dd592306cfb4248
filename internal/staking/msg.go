package staking

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMessage is returned when an execute envelope cannot be decoded.
var ErrInvalidMessage = errors.New("invalid message")

// ActionKind identifies a mutating ledger operation.
type ActionKind string

const (
	ActionReceiveNft   ActionKind = "receive_nft"
	ActionUnstake      ActionKind = "unstake"
	ActionClaimReward  ActionKind = "claim_reward"
	ActionUpdateConfig ActionKind = "update_config"
)

// Envelope is the tagged request accepted by Keeper.Execute.
type Envelope struct {
	Action  ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InstantiateMsg creates the ledger configuration. The caller becomes owner.
type InstantiateMsg struct {
	CollectionA      string `json:"collection_a"`
	CollectionB      string `json:"collection_b"`
	RewardCollection string `json:"reward_collection"`
}

// ReceiveMsg is the custody-receive notification sent by a collection after
// a token has been transferred into custody. Msg carries the intent.
type ReceiveMsg struct {
	Sender  string `json:"sender"`
	TokenID string `json:"token_id"`
	Msg     []byte `json:"msg"`
}

// UnstakeMsg withdraws one token.
type UnstakeMsg struct {
	TokenKind TokenKind `json:"token_kind"`
	TokenID   string    `json:"token_id"`
}

// UpdateConfigMsg overwrites the supplied fields of Config.
type UpdateConfigMsg struct {
	Owner            *string `json:"owner,omitempty"`
	CollectionA      *string `json:"collection_a,omitempty"`
	CollectionB      *string `json:"collection_b,omitempty"`
	RewardCollection *string `json:"reward_collection,omitempty"`
}

type hookMsg struct {
	Stake *struct{} `json:"stake"`
}

// StakeIntent is the only intent payload recognized on custody receive.
var StakeIntent = []byte(`{"stake":{}}`)

func isStakeIntent(msg []byte) bool {
	if len(msg) == 0 {
		return false
	}
	var hook hookMsg
	if err := json.Unmarshal(msg, &hook); err != nil {
		return false
	}
	return hook.Stake != nil
}

// DecodeEnvelope parses an execute request.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrInvalidMessage)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.Action == "" {
		return nil, fmt.Errorf("%w: missing action field", ErrInvalidMessage)
	}
	return &env, nil
}

// DecodePayload unmarshals env.Payload into dst.
func DecodePayload(env *Envelope, dst interface{}) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidMessage, env.Action, err)
	}
	return nil
}

// MakeEnvelope encodes an action and its payload.
func MakeEnvelope(kind ActionKind, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(&Envelope{Action: kind, Payload: raw})
}
