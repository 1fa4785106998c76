// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package model

// RejectedAdvert is one append-only row logging why an advert was not
// accepted into the node registry. Never updated, only inserted.
type RejectedAdvert struct {
	ID       int64  `db:"id"`
	Pub      string `db:"pub"`
	ObserverID string `db:"observer_id"`
	HeardMs  int64  `db:"heard_ms"`
	Reason   string `db:"reason"`
	Sample   string `db:"sample"`
}

// IngestMetric is a key/value runtime counter, e.g.
// "adverts_in_last_10m" or "last_advert_seen_at".
type IngestMetric struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// Health is the getHealth query API projection.
type Health struct {
	DBPath             string `json:"dbPath"`
	RfPackets24h       int64  `json:"rfPackets24h"`
	RejectedAdverts10m int64  `json:"rejectedAdverts10m"`
	LastAdvertSeenAt   string `json:"lastAdvertSeenAt,omitempty"`
}
