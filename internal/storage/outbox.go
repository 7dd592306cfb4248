package storage

import (
	"context"
	"database/sql"
	"time"
)

// PendingMints returns up to limit outbox rows with ID above afterID still
// waiting for dispatch, oldest first
func (s *Storage) PendingMints(ctx context.Context, afterID int64, limit int) ([]OutboxMint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, token_id, collection, owner, status, attempts, last_error, created_at, updated_at
		 FROM mint_outbox WHERE status = ? AND id > ? ORDER BY id LIMIT ?`,
		MintPending, afterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mints []OutboxMint
	for rows.Next() {
		var m OutboxMint
		var lastError sql.NullString
		var createdAt, updatedAt int64

		err := rows.Scan(&m.ID, &m.Mint.TokenID, &m.Mint.Collection, &m.Mint.Owner,
			&m.Status, &m.Attempts, &lastError, &createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}

		m.LastError = lastError.String
		m.CreatedAt = time.Unix(createdAt, 0)
		m.UpdatedAt = time.Unix(updatedAt, 0)
		mints = append(mints, m)
	}

	return mints, rows.Err()
}

// GetMint returns an outbox row by ID
func (s *Storage) GetMint(ctx context.Context, id int64) (*OutboxMint, error) {
	var m OutboxMint
	var lastError sql.NullString
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, token_id, collection, owner, status, attempts, last_error, created_at, updated_at
		 FROM mint_outbox WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.Mint.TokenID, &m.Mint.Collection, &m.Mint.Owner,
		&m.Status, &m.Attempts, &lastError, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	m.LastError = lastError.String
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return &m, nil
}

// MarkMintSent marks an outbox row as delivered to the issuer
func (s *Storage) MarkMintSent(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE mint_outbox SET status = ?, attempts = attempts + 1, last_error = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		MintSent, time.Now().Unix(), id, MintPending,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkMintFailed records a failed attempt. A final failure takes the row out
// of the pending queue for good.
func (s *Storage) MarkMintFailed(ctx context.Context, id int64, cause error, final bool) error {
	status := MintPending
	if final {
		status = MintFailed
	}
	var msg string
	if cause != nil {
		msg = cause.Error()
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE mint_outbox SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, msg, time.Now().Unix(), id, MintPending,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MintStats counts outbox rows per status
func (s *Storage) MintStats(ctx context.Context) (MintStats, error) {
	var stats MintStats
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM mint_outbox GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status MintStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		switch status {
		case MintPending:
			stats.Pending = n
		case MintSent:
			stats.Sent = n
		case MintFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}
