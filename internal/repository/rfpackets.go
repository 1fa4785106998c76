// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	sq "github.com/Masterminds/squirrel"

	"github.com/meshrank/meshrank/pkg/log"
)

var (
	rfPacketRepoOnce     sync.Once
	rfPacketRepoInstance *RfPacketRepository
)

// pruneEvery is how many inserts pass between prunes of the rolling
// rf_packets table; each prune sweeps out the oldest rows beyond the
// repository's row cap (§4.4).
const pruneEvery = 500

// RfPacketRepository logs every received frame (accepted or not) to the
// bounded rf_packets table, for ingest-rate diagnostics.
type RfPacketRepository struct {
	db       *DBConnection
	cap      int64
	inserted atomic.Int64
}

// GetRfPacketRepository returns the process-wide rf-packet repository,
// bounded to capRows total rows.
func GetRfPacketRepository(capRows int64) *RfPacketRepository {
	rfPacketRepoOnce.Do(func() {
		rfPacketRepoInstance = &RfPacketRepository{db: GetConnection(), cap: capRows}
	})
	return rfPacketRepoInstance
}

// Insert records one received frame. Every pruneEvery inserts it also
// prunes the table back down to r.cap rows.
func (r *RfPacketRepository) Insert(ctx context.Context, ts int64, observerID, frameHash string, payloadLen int, accepted bool) error {
	sqlStr, args, err := sq.Insert("rf_packets").
		Columns("ts", "observer_id", "frame_hash", "payload_len", "accepted").
		Values(ts, observerID, frameHash, payloadLen, accepted).
		ToSql()
	if err != nil {
		return fmt.Errorf("rfpackets: build insert: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("rfpackets: insert: %w", err)
	}

	if r.inserted.Add(1)%pruneEvery == 0 {
		if err := r.prune(ctx); err != nil {
			log.Errorf("rfpackets: prune failed: %v", err)
		}
	}
	return nil
}

// prune deletes the oldest rows in excess of r.cap.
func (r *RfPacketRepository) prune(ctx context.Context) error {
	if r.cap <= 0 {
		return nil
	}
	_, err := r.db.DB.ExecContext(ctx, `
		DELETE FROM rf_packets
		WHERE id IN (
			SELECT id FROM rf_packets
			ORDER BY id DESC
			LIMIT -1 OFFSET ?
		)`, r.cap)
	if err != nil {
		return fmt.Errorf("rfpackets: prune: %w", err)
	}
	return nil
}

// CountSince returns how many frames were logged at or after sinceMs, for
// the health projection's rfPackets24h field.
func (r *RfPacketRepository) CountSince(ctx context.Context, sinceMs int64) (int64, error) {
	sqlStr, args, err := sq.Select("COUNT(*)").From("rf_packets").
		Where(sq.GtOrEq{"ts": sinceMs}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("rfpackets: build count: %w", err)
	}

	var n int64
	if err := r.db.DB.GetContext(ctx, &n, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("rfpackets: count since: %w", err)
	}
	return n, nil
}
