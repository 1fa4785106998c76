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

	sq "github.com/Masterminds/squirrel"

	"github.com/meshrank/meshrank/internal/model"
)

var (
	deviceRepoOnce     sync.Once
	deviceRepoInstance *DeviceRepository
)

// DeviceRepository implements registry.Store against the devices and
// rejected_adverts tables.
type DeviceRepository struct {
	db *DBConnection
}

// GetDeviceRepository returns the process-wide device repository.
func GetDeviceRepository() *DeviceRepository {
	deviceRepoOnce.Do(func() {
		deviceRepoInstance = &DeviceRepository{db: GetConnection()}
	})
	return deviceRepoInstance
}

// GetNode loads a node by its case-folded-upper public key.
func (r *DeviceRepository) GetNode(ctx context.Context, pub string) (*model.Node, bool, error) {
	q := sq.Select(
		"pub", "name", "role", "has_gps", "lat", "lon",
		"last_advert_heard_ms", "last_seen", "is_observer", "is_repeater",
		"hidden_on_map", "implausible_gps", "gps_manually_set", "raw_last_advert",
	).From("devices").Where(sq.Eq{"pub": pub})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("devices: build query: %w", err)
	}

	var n model.Node
	err = r.db.DB.GetContext(ctx, &n, sqlStr, args...)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("devices: get node: %w", err)
	}
	return &n, true, nil
}

// UpsertNode writes n, replacing whatever row previously existed at n.Pub.
// The registry package already merged evidence against the prior row, so
// this is a plain replace rather than an ON CONFLICT merge.
func (r *DeviceRepository) UpsertNode(ctx context.Context, n *model.Node) error {
	q := sq.Insert("devices").
		Columns(
			"pub", "name", "role", "has_gps", "lat", "lon",
			"last_advert_heard_ms", "last_seen", "is_observer", "is_repeater",
			"hidden_on_map", "implausible_gps", "gps_manually_set", "raw_last_advert",
		).
		Values(
			n.Pub, n.Name, string(n.Role), n.HasGPS, n.Lat, n.Lon,
			n.LastAdvertHeardMs, n.LastSeen, n.IsObserver, n.IsRepeater,
			n.HiddenOnMap, n.ImplausibleGPS, n.GPSManuallySet, n.RawLastAdvert,
		).
		Suffix(`ON CONFLICT(pub) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			has_gps = excluded.has_gps,
			lat = excluded.lat,
			lon = excluded.lon,
			last_advert_heard_ms = excluded.last_advert_heard_ms,
			last_seen = excluded.last_seen,
			is_observer = excluded.is_observer,
			is_repeater = excluded.is_repeater,
			hidden_on_map = excluded.hidden_on_map,
			implausible_gps = excluded.implausible_gps,
			gps_manually_set = excluded.gps_manually_set,
			raw_last_advert = excluded.raw_last_advert`)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("devices: build upsert: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("devices: upsert node: %w", err)
	}
	return nil
}

// InsertRejectedAdvert appends an append-only rejection row.
func (r *DeviceRepository) InsertRejectedAdvert(ctx context.Context, rej *model.RejectedAdvert) error {
	q := sq.Insert("rejected_adverts").
		Columns("pub", "observer_id", "heard_ms", "reason", "sample").
		Values(rej.Pub, rej.ObserverID, rej.HeardMs, rej.Reason, rej.Sample)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("devices: build reject insert: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("devices: insert rejected advert: %w", err)
	}
	return nil
}

// ListNodes returns every node, most recently seen first.
func (r *DeviceRepository) ListNodes(ctx context.Context) ([]model.Node, error) {
	sqlStr, args, err := sq.Select(
		"pub", "name", "role", "has_gps", "lat", "lon",
		"last_advert_heard_ms", "last_seen", "is_observer", "is_repeater",
		"hidden_on_map", "implausible_gps", "gps_manually_set", "raw_last_advert",
	).From("devices").OrderBy("last_seen DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("devices: build list: %w", err)
	}

	var nodes []model.Node
	if err := r.db.DB.SelectContext(ctx, &nodes, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("devices: list nodes: %w", err)
	}
	return nodes, nil
}

// CountRejectedSince returns how many adverts were rejected at or after
// sinceMs, for the health projection's rejectedAdverts10m field.
func (r *DeviceRepository) CountRejectedSince(ctx context.Context, sinceMs int64) (int64, error) {
	sqlStr, args, err := sq.Select("COUNT(*)").From("rejected_adverts").
		Where(sq.GtOrEq{"heard_ms": sinceMs}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("devices: build count rejected: %w", err)
	}

	var n int64
	if err := r.db.DB.GetContext(ctx, &n, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("devices: count rejected: %w", err)
	}
	return n, nil
}

// LastAdvertSeenAt returns the maximum last_advert_heard_ms across all
// nodes, or 0 if the table is empty.
func (r *DeviceRepository) LastAdvertSeenAt(ctx context.Context) (int64, error) {
	sqlStr, args, err := sq.Select("COALESCE(MAX(last_advert_heard_ms), 0)").From("devices").ToSql()
	if err != nil {
		return 0, fmt.Errorf("devices: build last advert seen: %w", err)
	}

	var ms int64
	if err := r.db.DB.GetContext(ctx, &ms, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("devices: last advert seen: %w", err)
	}
	return ms, nil
}
