// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package model

// Observer is a registered radio receiver forwarding overheard frames to the
// pipeline, identified by a stable observer-id string (not necessarily a
// mesh pub key).
type Observer struct {
	ID          string  `json:"id" db:"observer_id"`
	Name        string  `json:"name" db:"name"`
	FirstSeen   int64   `json:"firstSeen" db:"first_seen"`
	LastSeen    int64   `json:"lastSeen" db:"last_seen"`
	PacketCount int64   `json:"packets" db:"packet_count"`
	HasGPS      bool    `json:"-" db:"has_gps"`
	Lat         float64 `json:"-" db:"lat"`
	Lon         float64 `json:"-" db:"lon"`
	UpdatedAt   int64   `json:"updatedAt" db:"updated_at"`
}

// GetGPS returns the observer's position, or nil when none is known.
func (o Observer) GetGPS() *GPS {
	if !o.HasGPS {
		return nil
	}
	return &GPS{Lat: o.Lat, Lon: o.Lon}
}

// RankedObserver is the getRankedObservers query API projection.
type RankedObserver struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Packets  int64  `json:"packets"`
	LastSeen int64  `json:"lastSeen"`
	GPS      *GPS   `json:"gps,omitempty"`
}
