// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "encoding/json"

// RouteScoringConfig holds the weights and thresholds used by the route
// inference engine. Fields omitted from the config file keep the defaults
// set in internal/config.Keys; a value present in the file, zero included,
// is used as given.
type RouteScoringConfig struct {
	ObsWeight                float64 `json:"obs-weight"`
	RelWeight                float64 `json:"rel-weight"`
	DistWeight               float64 `json:"dist-weight"`
	EdgeWeight               float64 `json:"edge-weight"`
	RouteConfidenceThreshold float64 `json:"route-confidence-threshold"`
	HopConfidenceThreshold   float64 `json:"hop-confidence-threshold"`
}

// ProgramConfig is the format of the configuration file, overridden field by
// field by the environment variables documented in the external interfaces.
type ProgramConfig struct {
	// Addr is where the read-only query API (and /metrics) listens.
	Addr string `json:"addr"`

	// DBDriver is always "sqlite3" today; kept as a field since the
	// datastore layer is written against database/sql + sqlx.
	DBDriver string `json:"db-driver"`

	// DB is the path to the sqlite3 database file.
	DB string `json:"db"`

	// ArchivePath is where the durable ndjson observer-report archive is
	// appended to.
	ArchivePath string `json:"archive-path"`

	// ChannelKeysPath is the channel-keys JSON file, reloaded on mtime
	// change by a periodic task.
	ChannelKeysPath string `json:"channel-keys-path"`

	// Nats holds the raw JSON passed through to pkg/nats.Init.
	Nats json.RawMessage `json:"nats"`

	RouteScoring RouteScoringConfig `json:"route-scoring"`

	// RfPacketsCap bounds the rolling rf_packets table (default 50000).
	RfPacketsCap int `json:"rf-packets-cap"`
}
