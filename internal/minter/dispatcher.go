package minter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/suspectuso/nft-staking/internal/metrics"
	"github.com/suspectuso/nft-staking/internal/staking"
	"github.com/suspectuso/nft-staking/internal/storage"
)

const batchSize = 50

// Outbox is the queue of committed mint instructions.
type Outbox interface {
	PendingMints(ctx context.Context, afterID int64, limit int) ([]storage.OutboxMint, error)
	MarkMintSent(ctx context.Context, id int64) error
	MarkMintFailed(ctx context.Context, id int64, cause error, final bool) error
	MintStats(ctx context.Context) (storage.MintStats, error)
}

// Issuer creates reward tokens.
type Issuer interface {
	Mint(ctx context.Context, m staking.MintInstruction) error
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Mint     staking.MintInstruction
	Attempts int
	Err      error
	// Final is set when the row left the queue without being minted.
	Final bool
}

// Dispatcher drains the outbox into the issuer. Credit released by a claim is
// never returned, whatever happens to its mints here.
type Dispatcher struct {
	outbox      Outbox
	issuer      Issuer
	log         *slog.Logger
	maxAttempts int

	wake chan struct{}

	mu        sync.Mutex
	onOutcome func(ctx context.Context, o Outcome)
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(outbox Outbox, issuer Issuer, maxAttempts int, log *slog.Logger) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		outbox:      outbox,
		issuer:      issuer,
		log:         log,
		maxAttempts: maxAttempts,
		wake:        make(chan struct{}, 1),
	}
}

// OnOutcome registers a callback run after every delivery attempt.
func (d *Dispatcher) OnOutcome(fn func(ctx context.Context, o Outcome)) {
	d.mu.Lock()
	d.onOutcome = fn
	d.mu.Unlock()
}

// Wake schedules an immediate drain. It never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Loop drains the outbox every interval and whenever woken, until ctx is done.
func (d *Dispatcher) Loop(ctx context.Context, interval time.Duration) {
	d.log.Info("mint dispatcher started", "interval", interval, "max_attempts", d.maxAttempts)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := d.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("drain outbox", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// Drain tries every pending row once and returns how many were minted.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	defer d.reportBacklog(ctx)

	sent := 0
	var cursor int64
	for {
		pending, err := d.outbox.PendingMints(ctx, cursor, batchSize)
		if err != nil {
			return sent, err
		}
		if len(pending) == 0 {
			return sent, nil
		}

		for _, row := range pending {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			ok, err := d.deliver(ctx, row)
			if err != nil {
				return sent, err
			}
			if ok {
				sent++
			}
			cursor = row.ID
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, row storage.OutboxMint) (bool, error) {
	attempts := row.Attempts + 1
	mintErr := d.issuer.Mint(ctx, row.Mint)

	if mintErr == nil {
		if err := d.outbox.MarkMintSent(ctx, row.ID); err != nil {
			return false, err
		}
		metrics.MintSent()
		d.log.Info("reward minted", "token_id", row.Mint.TokenID, "owner", row.Mint.Owner, "attempts", attempts)
		d.notify(ctx, Outcome{Mint: row.Mint, Attempts: attempts})
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	final := errors.Is(mintErr, ErrRejected) || attempts >= d.maxAttempts
	if err := d.outbox.MarkMintFailed(ctx, row.ID, mintErr, final); err != nil {
		return false, err
	}
	metrics.MintFailed(final)
	if final {
		d.log.Error("mint abandoned", "token_id", row.Mint.TokenID, "owner", row.Mint.Owner, "attempts", attempts, "error", mintErr)
	} else {
		d.log.Warn("mint failed", "token_id", row.Mint.TokenID, "attempts", attempts, "error", mintErr)
	}
	d.notify(ctx, Outcome{Mint: row.Mint, Attempts: attempts, Err: mintErr, Final: final})
	return false, nil
}

func (d *Dispatcher) notify(ctx context.Context, o Outcome) {
	d.mu.Lock()
	fn := d.onOutcome
	d.mu.Unlock()
	if fn != nil {
		fn(ctx, o)
	}
}

func (d *Dispatcher) reportBacklog(ctx context.Context) {
	stats, err := d.outbox.MintStats(ctx)
	if err != nil {
		return
	}
	metrics.SetOutboxPending(stats.Pending)
}
