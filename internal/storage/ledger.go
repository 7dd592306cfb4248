package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/suspectuso/nft-staking/internal/staking"
)

// ledgerTx implements staking.Tx on top of a sqlite transaction
type ledgerTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// --- Config ---

func (t *ledgerTx) Config() (*staking.Config, error) {
	var cfg staking.Config
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT owner, collection_a, collection_b, reward_collection FROM config WHERE id = 1`,
	).Scan(&cfg.Owner, &cfg.CollectionA, &cfg.CollectionB, &cfg.RewardCollection)

	if err == sql.ErrNoRows {
		return nil, staking.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (t *ledgerTx) SetConfig(cfg *staking.Config) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO config (id, owner, collection_a, collection_b, reward_collection)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			collection_a = excluded.collection_a,
			collection_b = excluded.collection_b,
			reward_collection = excluded.reward_collection`,
		cfg.Owner, cfg.CollectionA, cfg.CollectionB, cfg.RewardCollection,
	)
	return err
}

// --- Holders ---

func (t *ledgerTx) Holder(principal string) (*staking.Holder, bool, error) {
	var tokens, earned, released string
	var last int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT tokens, last_accrual_time, earned, released FROM holders WHERE principal = ?`,
		principal,
	).Scan(&tokens, &last, &earned, &released)

	if err == sql.ErrNoRows {
		return staking.NewHolder(), false, nil
	}
	if err != nil {
		return nil, false, err
	}

	h := staking.NewHolder()
	if err := json.Unmarshal([]byte(tokens), &h.Tokens); err != nil {
		return nil, false, fmt.Errorf("holder %s tokens: %w", principal, err)
	}
	h.LastAccrualTime = last
	if h.Earned, err = sdkmath.LegacyNewDecFromStr(earned); err != nil {
		return nil, false, fmt.Errorf("holder %s earned: %w", principal, err)
	}
	if h.Released, err = sdkmath.LegacyNewDecFromStr(released); err != nil {
		return nil, false, fmt.Errorf("holder %s released: %w", principal, err)
	}
	return h, true, nil
}

func (t *ledgerTx) SetHolder(principal string, h *staking.Holder) error {
	tokens, err := json.Marshal(h.Tokens)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO holders (principal, tokens, last_accrual_time, earned, released)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(principal) DO UPDATE SET
			tokens = excluded.tokens,
			last_accrual_time = excluded.last_accrual_time,
			earned = excluded.earned,
			released = excluded.released`,
		principal, string(tokens), h.LastAccrualTime, h.Earned.String(), h.Released.String(),
	)
	return err
}

// --- Mint sequence ---

func (t *ledgerTx) MintSequence() (uint64, error) {
	var seq int64
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM mint_sequence WHERE id = 1`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

func (t *ledgerTx) SetMintSequence(seq uint64) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO mint_sequence (id, value) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET value = excluded.value`,
		int64(seq),
	)
	return err
}

// --- Outbox ---

func (t *ledgerTx) EnqueueMints(mints []staking.MintInstruction) error {
	if len(mints) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(t.ctx,
		`INSERT INTO mint_outbox (token_id, collection, owner, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, m := range mints {
		if _, err := stmt.ExecContext(t.ctx, m.TokenID, m.Collection, m.Owner, MintPending, now, now); err != nil {
			return fmt.Errorf("enqueue %s: %w", m.TokenID, err)
		}
	}
	return nil
}

// --- Processed requests ---

// MarkRequest records a request id, returns true if it was new
func (t *ledgerTx) MarkRequest(id string) (bool, error) {
	result, err := t.tx.ExecContext(t.ctx,
		`INSERT OR IGNORE INTO processed_requests (request_id, created_at) VALUES (?, ?)`,
		id, time.Now().Unix(),
	)
	if err != nil {
		return false, err
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
