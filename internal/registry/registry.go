// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry reconciles advert evidence into the canonical node
// view. Every evidence source updates the node in monotonic,
// field-independent ways (§4.2); a rejected advert never mutates the node
// and is instead appended to the rejected-adverts log.
package registry

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/meshrank/meshrank/internal/model"
	"github.com/meshrank/meshrank/pkg/log"
)

// Store is the persistence seam the registry needs. internal/repository
// implements it against sqlite3.
type Store interface {
	GetNode(ctx context.Context, pub string) (*model.Node, bool, error)
	UpsertNode(ctx context.Context, n *model.Node) error
	InsertRejectedAdvert(ctx context.Context, r *model.RejectedAdvert) error
}

// AdvertInput is the evidence extracted from one decoded advert frame, plus
// the observer envelope fields the registry needs (who heard it, when).
type AdvertInput struct {
	Pub        string
	ObserverID string
	HeardMs    int64

	HasFlags bool
	Flags    byte

	HasName bool
	Name    string

	HasGPS   bool
	Lat, Lon float64

	// Legacy hint fields, honored only when HasFlags is false.
	LegacyIsRepeater bool
	LegacyRoleHint   string

	RawSample []byte
}

// Outcome is the result of one IngestAdvert call.
type Outcome struct {
	Accepted bool
	Pub      string
	Changed  bool
	Rejected bool
	Reason   string
}

const rejectedSampleMaxBytes = 1024

// Registry reconciles advert evidence against the node store.
type Registry struct {
	store Store
}

// New builds a Registry backed by store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// IngestAdvert applies one advert's evidence. It never returns an error for
// a rejected advert (databases errors aside): rejection is reported through
// Outcome, with a row appended to rejected_adverts describing why.
func (r *Registry) IngestAdvert(ctx context.Context, in AdvertInput) (Outcome, error) {
	pub, ok := normalizePub(in.Pub)
	if !ok {
		return r.reject(ctx, in, ReasonInvalidPub)
	}

	if !in.HasFlags && !in.HasName && !in.HasGPS {
		return r.reject(ctx, in, ReasonMissingStructure)
	}

	existing, found, err := r.store.GetNode(ctx, pub)
	if err != nil {
		return Outcome{}, fmt.Errorf("registry: get node: %w", err)
	}

	var node model.Node
	if found && existing != nil {
		node = *existing
	} else {
		node = model.Node{Pub: pub, Role: model.RoleUnknown}
	}
	before := node

	// Role / isRepeater (§4.2 rule 3).
	switch {
	case in.HasFlags:
		node.Role = model.RoleFromFlags(in.Flags)
		node.IsRepeater = node.Role == model.RoleRepeater
	case in.LegacyIsRepeater || in.LegacyRoleHint == "repeater":
		node.Role = model.RoleRepeater
		node.IsRepeater = true
	case node.Role == "":
		node.Role = model.RoleUnknown
	}

	// Name (§4.2 rule 4). A failed validation rejects the whole advert and
	// never touches the previously stored name.
	if in.HasName {
		name, reason, ok := validateName(in.Name)
		if !ok {
			return r.reject(ctx, in, reason)
		}
		node.Name = name
	}

	// GPS (§4.2 rule 5).
	if in.HasGPS {
		g, reason, ok := validateGPS(in.Lat, in.Lon)
		if !ok {
			return r.reject(ctx, in, reason)
		}
		sameAsCanonical := node.HasGPS && node.Lat == g.Lat && node.Lon == g.Lon
		switch {
		case sameAsCanonical && node.GPSManuallySet:
			// Manual value wins; nothing to do.
		case sameAsCanonical:
			// No change.
		default:
			node.Lat, node.Lon = g.Lat, g.Lon
			node.HasGPS = true
			node.ImplausibleGPS = false
			node.HiddenOnMap = false
		}
	}

	// Freshness (§4.2 rule 6): last_advert_heard_ms is monotonic per pub.
	if in.HeardMs > node.LastAdvertHeardMs {
		node.LastAdvertHeardMs = in.HeardMs
	}
	if in.HeardMs > node.LastSeen {
		node.LastSeen = in.HeardMs
	}
	if len(in.RawSample) > 0 {
		node.RawLastAdvert = truncate(in.RawSample, rejectedSampleMaxBytes)
	}

	if err := r.store.UpsertNode(ctx, &node); err != nil {
		return Outcome{}, fmt.Errorf("registry: upsert node: %w", err)
	}

	return Outcome{
		Accepted: true,
		Pub:      pub,
		Changed:  !node.Equal(before),
	}, nil
}

func (r *Registry) reject(ctx context.Context, in AdvertInput, reason string) (Outcome, error) {
	sample := truncate(in.RawSample, rejectedSampleMaxBytes)
	if err := r.store.InsertRejectedAdvert(ctx, &model.RejectedAdvert{
		Pub:        strings.ToUpper(in.Pub),
		ObserverID: in.ObserverID,
		HeardMs:    in.HeardMs,
		Reason:     reason,
		Sample:     string(sample),
	}); err != nil {
		log.Errorf("registry: failed to log rejected advert (reason=%s): %v", reason, err)
	}
	return Outcome{Rejected: true, Reason: reason}, nil
}

// normalizePub validates that pub is a 64-character hex string and returns
// the case-folded upper form.
func normalizePub(pub string) (string, bool) {
	if len(pub) != 64 {
		return "", false
	}
	if _, err := hex.DecodeString(pub); err != nil {
		return "", false
	}
	return strings.ToUpper(pub), true
}

func truncate(b []byte, max int) []byte {
	if len(b) <= max {
		return b
	}
	return b[:max]
}
