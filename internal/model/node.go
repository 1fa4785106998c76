// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package model holds the domain types shared across the ingestion,
// registry, message-store and route-inference components. None of these
// types own persistence; internal/repository maps them to and from sqlite3
// rows.
package model

// Role is a mesh node's advertised function, derived from the low 4 bits of
// an advert's app-flags byte.
type Role string

const (
	RoleSensor     Role = "sensor"
	RoleChat       Role = "chat"
	RoleRepeater   Role = "repeater"
	RoleRoomServer Role = "room-server"
	RoleUnknown    Role = "unknown"
)

// RoleFromFlags maps the low nibble of an advert's app-flags byte to a Role,
// per the canonical table in the node registry design: 0 sensor, 1 chat,
// 2 repeater, 3 room-server, anything else unknown.
func RoleFromFlags(flags byte) Role {
	switch flags & 0x0F {
	case 0:
		return RoleSensor
	case 1:
		return RoleChat
	case 2:
		return RoleRepeater
	case 3:
		return RoleRoomServer
	default:
		return RoleUnknown
	}
}

// GPS is a WGS-84 coordinate pair. A nil *GPS means "no position known",
// distinct from Lat==Lon==0 which is itself an invalid position (§4.2).
type GPS struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// Valid reports whether g is a plausible WGS-84 position: both components
// finite, not the null island (0,0), and within range.
func (g GPS) Valid() bool {
	if g.Lat != g.Lat || g.Lon != g.Lon { // NaN
		return false
	}
	if g.Lat == 0 && g.Lon == 0 {
		return false
	}
	return g.Lat >= -90 && g.Lat <= 90 && g.Lon >= -180 && g.Lon <= 180
}

// Node is the canonical, reconciled view of one mesh radio node, keyed by
// its 64-hex public key (case-folded upper). Equal is used in place of a
// plain == comparison since RawLastAdvert is a slice.
type Node struct {
	Pub  string `json:"pub" db:"pub"`
	Name string `json:"name" db:"name"`
	Role Role   `json:"role" db:"role"`

	HasGPS bool    `json:"-" db:"has_gps"`
	Lat    float64 `json:"-" db:"lat"`
	Lon    float64 `json:"-" db:"lon"`

	LastAdvertHeardMs int64 `json:"lastAdvertHeardMs" db:"last_advert_heard_ms"`
	LastSeen          int64 `json:"lastSeen" db:"last_seen"`

	IsObserver     bool   `json:"isObserver" db:"is_observer"`
	IsRepeater     bool   `json:"isRepeater" db:"is_repeater"`
	HiddenOnMap    bool   `json:"hiddenOnMap" db:"hidden_on_map"`
	ImplausibleGPS bool   `json:"implausibleGPS" db:"implausible_gps"`
	GPSManuallySet bool   `json:"-" db:"gps_manually_set"`
	RawLastAdvert  []byte `json:"-" db:"raw_last_advert"`
}

// GetGPS returns the node's position, or nil when none is known. Named
// GetGPS (not GPS) to leave the field name free for the db/json tags.
func (n Node) GetGPS() *GPS {
	if !n.HasGPS {
		return nil
	}
	return &GPS{Lat: n.Lat, Lon: n.Lon}
}

// Equal reports whether n and other have identical field values. Used in
// place of == since RawLastAdvert is a slice.
func (n Node) Equal(other Node) bool {
	if n.Pub != other.Pub || n.Name != other.Name || n.Role != other.Role {
		return false
	}
	if n.HasGPS != other.HasGPS || n.Lat != other.Lat || n.Lon != other.Lon {
		return false
	}
	if n.LastAdvertHeardMs != other.LastAdvertHeardMs || n.LastSeen != other.LastSeen {
		return false
	}
	if n.IsObserver != other.IsObserver || n.IsRepeater != other.IsRepeater {
		return false
	}
	if n.HiddenOnMap != other.HiddenOnMap || n.ImplausibleGPS != other.ImplausibleGPS {
		return false
	}
	if n.GPSManuallySet != other.GPSManuallySet {
		return false
	}
	return string(n.RawLastAdvert) == string(other.RawLastAdvert)
}
