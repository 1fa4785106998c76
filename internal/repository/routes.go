// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/meshrank/meshrank/internal/model"
	"github.com/meshrank/meshrank/internal/routeinfer"
)

var (
	routeRepoOnce     sync.Once
	routeRepoInstance *RouteRepository
)

// RouteRepository persists route-inference output and supplies the
// candidate pools and transition priors that routeinfer.Infer consumes.
type RouteRepository struct {
	db *DBConnection
}

// GetRouteRepository returns the process-wide route repository.
func GetRouteRepository() *RouteRepository {
	routeRepoOnce.Do(func() {
		routeRepoInstance = &RouteRepository{db: GetConnection()}
	})
	return routeRepoInstance
}

// SaveRoute overwrites the stored route for route.MsgKey with a freshly
// scored one; every re-scoring replaces the prior result wholesale.
func (r *RouteRepository) SaveRoute(ctx context.Context, route *model.Route) error {
	pathJSON, err := json.Marshal(route.PathTokens)
	if err != nil {
		return fmt.Errorf("routes: marshal path: %w", err)
	}
	pubJSON, err := json.Marshal(route.InferredPubs)
	if err != nil {
		return fmt.Errorf("routes: marshal inferred pubs: %w", err)
	}
	hopJSON, err := json.Marshal(route.HopConfidences)
	if err != nil {
		return fmt.Errorf("routes: marshal hop confidences: %w", err)
	}
	diagJSON, err := json.Marshal(route.Diagnostics)
	if err != nil {
		return fmt.Errorf("routes: marshal diagnostics: %w", err)
	}

	q := sq.Insert("geoscore_routes").
		Columns(
			"msg_key", "ts_ms", "observer_id", "path_json", "inferred_pub_json",
			"hop_confidence_json", "route_confidence", "unresolved", "teleport_max_km", "diagnostics_json",
		).
		Values(
			route.MsgKey, route.Ts, route.ObserverID, string(pathJSON), string(pubJSON),
			string(hopJSON), route.RouteConfidence, route.Unresolved, route.TeleportMaxKm, string(diagJSON),
		).
		Suffix(`ON CONFLICT(msg_key) DO UPDATE SET
			ts_ms               = excluded.ts_ms,
			observer_id         = excluded.observer_id,
			path_json           = excluded.path_json,
			inferred_pub_json   = excluded.inferred_pub_json,
			hop_confidence_json = excluded.hop_confidence_json,
			route_confidence    = excluded.route_confidence,
			unresolved          = excluded.unresolved,
			teleport_max_km     = excluded.teleport_max_km,
			diagnostics_json    = excluded.diagnostics_json`)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("routes: build upsert: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("routes: save route: %w", err)
	}
	return nil
}

// GetRoute loads the stored route for msgKey, or nil if none exists.
func (r *RouteRepository) GetRoute(ctx context.Context, msgKey string) (*model.Route, error) {
	sqlStr, args, err := sq.Select(
		"msg_key", "ts_ms", "observer_id", "path_json", "inferred_pub_json",
		"hop_confidence_json", "route_confidence", "unresolved", "teleport_max_km", "diagnostics_json",
	).From("geoscore_routes").Where(sq.Eq{"msg_key": msgKey}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("routes: build get: %w", err)
	}

	var route model.Route
	err = r.db.DB.GetContext(ctx, &route, sqlStr, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("routes: get route: %w", err)
	}

	if err := json.Unmarshal([]byte(route.PathJSON), &route.PathTokens); err != nil {
		return nil, fmt.Errorf("routes: unmarshal path: %w", err)
	}
	if err := json.Unmarshal([]byte(route.InferredPubJSON), &route.InferredPubs); err != nil {
		return nil, fmt.Errorf("routes: unmarshal inferred pubs: %w", err)
	}
	if err := json.Unmarshal([]byte(route.HopConfidenceJSON), &route.HopConfidences); err != nil {
		return nil, fmt.Errorf("routes: unmarshal hop confidences: %w", err)
	}
	if err := json.Unmarshal([]byte(route.DiagnosticsJSON), &route.Diagnostics); err != nil {
		return nil, fmt.Errorf("routes: unmarshal diagnostics: %w", err)
	}
	return &route, nil
}

// CandidatesForToken returns every node that could plausibly be the relay
// named by a path token: nodes whose public key ends in the token's last
// byte, since a path token is only that last byte of a hop's public key.
// Used as routeinfer.CandidateFunc.
func (r *RouteRepository) CandidatesForToken(ctx context.Context, token string) []routeinfer.Candidate {
	sqlStr, args, err := sq.Select("pub", "name", "has_gps", "lat", "lon", "last_seen").
		From("devices").
		Where("pub LIKE ?", "%"+token).
		ToSql()
	if err != nil {
		return nil
	}

	rows, err := r.db.DB.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []routeinfer.Candidate
	for rows.Next() {
		var (
			pub, name        string
			hasGPS           bool
			lat, lon         float64
			lastSeen         int64
		)
		if err := rows.Scan(&pub, &name, &hasGPS, &lat, &lon, &lastSeen); err != nil {
			continue
		}
		c := routeinfer.Candidate{Pub: pub, Name: name, LastSeenMs: lastSeen}
		if hasGPS {
			c.GPS = &model.GPS{Lat: lat, Lon: lon}
		}
		out = append(out, c)
	}
	return out
}

// EdgePrior returns how many times a route was previously inferred to pass
// directly from prevPub to nextPub, used as routeinfer.EdgePriorFunc.
func (r *RouteRepository) EdgePrior(ctx context.Context, prevPub, nextPub string) int64 {
	sqlStr, args, err := sq.Select("COUNT(*)").From("geoscore_routes").
		Where("inferred_pub_json LIKE ?", "%\""+prevPub+"\",\""+nextPub+"\"%").ToSql()
	if err != nil {
		return 0
	}
	var n int64
	if err := r.db.DB.GetContext(ctx, &n, sqlStr, args...); err != nil {
		return 0
	}
	return n
}
