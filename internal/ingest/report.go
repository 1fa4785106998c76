// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest is the observer-report pipeline (§4.4): archive, registry
// update, observer-liveness update, rf_packets logging, message-store
// update, in that strict order for every report.
package ingest

import (
	"encoding/json"
	"strings"
)

// GPSField is the optional {lat,lon} envelope field giving the reporting
// observer's own position.
type GPSField struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Report is one observer's pub/sub payload, parsed from the
// meshrank/observers/<observerId>/packets topic template (§6). Unknown
// fields are ignored by encoding/json's default behavior.
type Report struct {
	PayloadHex   string    `json:"payloadHex"`
	ObserverID   string    `json:"observerId"`
	ObserverName string    `json:"observerName"`
	ObserverPub  string    `json:"observerPub"`
	RSSI         *float64  `json:"rssi,omitempty"`
	SNR          *float64  `json:"snr,omitempty"`
	CRC          *uint32   `json:"crc,omitempty"`
	FrameHash    string    `json:"frameHash,omitempty"`
	Route        string    `json:"route,omitempty"`
	Path         []string  `json:"path,omitempty"`
	Len          int       `json:"len,omitempty"`
	PayloadLen   int       `json:"payload_len,omitempty"`
	PacketType   string    `json:"packet_type,omitempty"`
	GPS          *GPSField `json:"gps,omitempty"`

	// ArchivedAt is the authoritative heard-time for reconciliation (§4.4
	// "Deduplication"). A live report has no archivedAt yet and gets one
	// stamped by Archive.Append; a replayed archive line already carries
	// one, which Append preserves rather than overwrites.
	ArchivedAt string `json:"archivedAt,omitempty"`
}

// ParseReport decodes one pub/sub payload into a Report and normalizes
// PayloadHex to uppercase.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	r.PayloadHex = strings.ToUpper(strings.TrimSpace(r.PayloadHex))
	return &r, nil
}
