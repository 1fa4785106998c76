// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package model

// Candidate is a full-pub node proposed to fill one path-token position
// during route inference.
type Candidate struct {
	Pub        string
	Name       string
	GPS        *GPS
	LastSeenMs int64
}

// TokenDiagnostic is the diagnostics-blob entry for one path-token position:
// its top scored candidates, or a note that no candidates existed.
type TokenDiagnostic struct {
	Token          string            `json:"token"`
	ZeroCandidates bool              `json:"zeroCandidates,omitempty"`
	TopCandidates  []ScoredCandidate `json:"topCandidates,omitempty"`
}

// ScoredCandidate is one candidate and its emission score at a position, as
// surfaced in route diagnostics.
type ScoredCandidate struct {
	Pub   string  `json:"pub"`
	Score float64 `json:"score"`
}

// Route is the output of one Viterbi sweep over a message's path tokens:
// one inferred relay sequence per message_hash, overwritten on every
// re-scoring.
type Route struct {
	MsgKey     string `json:"msg_key" db:"msg_key"`
	Ts         int64  `json:"ts" db:"ts_ms"`
	ObserverID string `json:"observerId" db:"observer_id"`

	PathTokens []string `json:"pathTokens" db:"-"`
	PathJSON   string   `json:"-" db:"path_json"`

	InferredPubs    []*string `json:"inferredPubs" db:"-"`
	InferredPubJSON string    `json:"-" db:"inferred_pub_json"`

	HopConfidences    []float64 `json:"hopConfidences" db:"-"`
	HopConfidenceJSON string    `json:"-" db:"hop_confidence_json"`

	RouteConfidence float64 `json:"routeConfidence" db:"route_confidence"`
	Unresolved      bool    `json:"unresolved" db:"unresolved"`
	TeleportMaxKm   float64 `json:"teleportMaxKm" db:"teleport_max_km"`

	Diagnostics     []TokenDiagnostic `json:"diagnostics" db:"-"`
	DiagnosticsJSON string            `json:"-" db:"diagnostics_json"`
}
