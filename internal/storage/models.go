package storage

import (
	"time"

	"github.com/suspectuso/nft-staking/internal/staking"
)

// MintStatus is the dispatch state of an outbox row
type MintStatus string

const (
	MintPending MintStatus = "pending"
	MintSent    MintStatus = "sent"
	MintFailed  MintStatus = "failed"
)

// OutboxMint is a queued reward mint waiting to be sent to the issuer
type OutboxMint struct {
	ID        int64
	Mint      staking.MintInstruction
	Status    MintStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MintStats counts outbox rows per status
type MintStats struct {
	Pending int
	Sent    int
	Failed  int
}
