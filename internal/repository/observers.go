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
	observerRepoOnce     sync.Once
	observerRepoInstance *ObserverRepository
)

// ObserverRepository implements observers.Store against the observers
// table.
type ObserverRepository struct {
	db *DBConnection
}

// GetObserverRepository returns the process-wide observer repository.
func GetObserverRepository() *ObserverRepository {
	observerRepoOnce.Do(func() {
		observerRepoInstance = &ObserverRepository{db: GetConnection()}
	})
	return observerRepoInstance
}

// UpsertObserver records a witness: first_seen is set only on insert,
// last_seen/position take the incoming report's values, and packet_count is
// incremented in place rather than read back from o.
func (r *ObserverRepository) UpsertObserver(ctx context.Context, o *model.Observer) error {
	q := sq.Insert("observers").
		Columns("observer_id", "name", "first_seen", "last_seen", "packet_count", "has_gps", "lat", "lon", "updated_at").
		Values(o.ID, o.Name, o.FirstSeen, o.LastSeen, 1, o.HasGPS, o.Lat, o.Lon, o.UpdatedAt).
		Suffix(`ON CONFLICT(observer_id) DO UPDATE SET
			name         = excluded.name,
			last_seen    = excluded.last_seen,
			packet_count = observers.packet_count + 1,
			has_gps      = excluded.has_gps,
			lat          = excluded.lat,
			lon          = excluded.lon,
			updated_at   = excluded.updated_at`)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("observers: build upsert: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("observers: upsert: %w", err)
	}
	return nil
}

// GetObserver loads a single observer by id, for route-scoring's
// observer-home lookup.
func (r *ObserverRepository) GetObserver(ctx context.Context, observerID string) (*model.Observer, bool, error) {
	sqlStr, args, err := sq.Select("observer_id", "name", "first_seen", "last_seen", "packet_count", "has_gps", "lat", "lon", "updated_at").
		From("observers").Where(sq.Eq{"observer_id": observerID}).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("observers: build get: %w", err)
	}

	var o model.Observer
	err = r.db.DB.GetContext(ctx, &o, sqlStr, args...)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("observers: get: %w", err)
	}
	return &o, true, nil
}

// GetRankedObservers returns observers last seen at or after sinceMs,
// ordered by cumulative packet count descending (getRankedObservers, §4.7).
func (r *ObserverRepository) GetRankedObservers(ctx context.Context, sinceMs int64) ([]model.RankedObserver, error) {
	sqlStr, args, err := sq.Select("observer_id", "name", "packet_count", "last_seen", "has_gps", "lat", "lon").
		From("observers").
		Where(sq.GtOrEq{"last_seen": sinceMs}).
		OrderBy("packet_count DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("observers: build ranked: %w", err)
	}

	rows, err := r.db.DB.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("observers: ranked: %w", err)
	}
	defer rows.Close()

	var out []model.RankedObserver
	for rows.Next() {
		var (
			id, name             string
			packets, lastSeen    int64
			hasGPS               bool
			lat, lon             float64
		)
		if err := rows.Scan(&id, &name, &packets, &lastSeen, &hasGPS, &lat, &lon); err != nil {
			return nil, fmt.Errorf("observers: scan ranked: %w", err)
		}
		ro := model.RankedObserver{ID: id, Name: name, Packets: packets, LastSeen: lastSeen}
		if hasGPS {
			ro.GPS = &model.GPS{Lat: lat, Lon: lon}
		}
		out = append(out, ro)
	}
	return out, rows.Err()
}
