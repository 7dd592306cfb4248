package staking

import "context"

// Store gives each request an atomic view of the ledger.
type Store interface {
	// Update runs fn in a transaction that commits only if fn returns nil.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a transaction that is always discarded.
	View(ctx context.Context, fn func(Tx) error) error
}

// Tx is the ledger state visible inside one transaction.
type Tx interface {
	// Config returns ErrNotInitialized until the ledger has been instantiated.
	Config() (*Config, error)
	SetConfig(cfg *Config) error

	// Holder returns the stored record for principal, or a fresh default
	// record and false if none exists.
	Holder(principal string) (*Holder, bool, error)
	SetHolder(principal string, h *Holder) error

	MintSequence() (uint64, error)
	SetMintSequence(seq uint64) error

	// EnqueueMints records instructions to be dispatched after commit.
	EnqueueMints(mints []MintInstruction) error

	// MarkRequest records a request id and reports whether it was new.
	MarkRequest(id string) (bool, error)
}

// OwnershipOracle answers who currently owns a token of a collection.
type OwnershipOracle interface {
	OwnerOf(ctx context.Context, collection, tokenID string) (string, error)
}

// AddressCodec converts principals between their canonical stored form and
// the human-readable form shown to clients.
type AddressCodec interface {
	Canonicalize(addr string) (string, error)
	Humanize(addr string) (string, error)
}
