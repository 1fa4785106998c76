// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/meshrank/meshrank/internal/model"
)

var (
	metricsRepoOnce     sync.Once
	metricsRepoInstance *MetricsRepository
)

// MetricsRepository stores small runtime counters (ingest_metrics) and
// assembles the getHealth query API projection.
type MetricsRepository struct {
	db *DBConnection
}

// GetMetricsRepository returns the process-wide metrics repository.
func GetMetricsRepository() *MetricsRepository {
	metricsRepoOnce.Do(func() {
		metricsRepoInstance = &MetricsRepository{db: GetConnection()}
	})
	return metricsRepoInstance
}

// Set records key=value, stamped with the current time.
func (r *MetricsRepository) Set(ctx context.Context, key, value string) error {
	q := sq.Insert("ingest_metrics").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UnixMilli()).
		Suffix(`ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("metrics: build set: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("metrics: set: %w", err)
	}
	return nil
}

// Get returns the value stored at key, or ok=false if unset.
func (r *MetricsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	sqlStr, args, err := sq.Select("value").From("ingest_metrics").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("metrics: build get: %w", err)
	}

	var m model.IngestMetric
	err = r.db.DB.GetContext(ctx, &m.Value, sqlStr, args...)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("metrics: get: %w", err)
	}
	return m.Value, true, nil
}

// Health assembles the getHealth projection (§4.7): recent ingest volume,
// recent rejection volume, and the most recent accepted advert's timestamp.
func (r *MetricsRepository) Health(ctx context.Context, dbPath string, rfPackets *RfPacketRepository, devices *DeviceRepository, now time.Time) (*model.Health, error) {
	h := &model.Health{DBPath: dbPath}

	since24h := now.Add(-24 * time.Hour).UnixMilli()
	rf, err := rfPackets.CountSince(ctx, since24h)
	if err != nil {
		return nil, err
	}
	h.RfPackets24h = rf

	since10m := now.Add(-10 * time.Minute).UnixMilli()
	rej, err := devices.CountRejectedSince(ctx, since10m)
	if err != nil {
		return nil, err
	}
	h.RejectedAdverts10m = rej

	lastMs, err := devices.LastAdvertSeenAt(ctx)
	if err != nil {
		return nil, err
	}
	if lastMs > 0 {
		h.LastAdvertSeenAt = time.UnixMilli(lastMs).UTC().Format(time.RFC3339)
	}

	return h, nil
}
