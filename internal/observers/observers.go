// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package observers is the observer registry: per-observer liveness,
// position, and cumulative packet counters (§3, "Observer"). Unlike the
// node registry, there is no rejection path — every report updates the
// observer that sent it.
package observers

import (
	"context"
	"fmt"

	"github.com/meshrank/meshrank/internal/model"
)

// Store is the persistence seam this package needs.
type Store interface {
	UpsertObserver(ctx context.Context, o *model.Observer) error
	GetRankedObservers(ctx context.Context, sinceMs int64) ([]model.RankedObserver, error)
}

// WitnessInput is one observer report's evidence for the observer
// registry: who sent it, when, and (optionally) their own GPS.
type WitnessInput struct {
	ObserverID   string
	ObserverName string
	SeenMs       int64
	HasGPS       bool
	Lat, Lon     float64
}

// Observers is the observer registry.
type Observers struct {
	store Store
}

// New builds an Observers registry bound to store.
func New(store Store) *Observers {
	return &Observers{store: store}
}

// RecordWitness updates liveness, position and the cumulative packet
// counter for the observer named in in. The packet count is not part of the
// input: this package does not read-modify-write the counter, and the store
// increments it in SQL (`packet_count = packet_count + 1`).
func (o *Observers) RecordWitness(ctx context.Context, in WitnessInput) error {
	obs := &model.Observer{
		ID:        in.ObserverID,
		Name:      in.ObserverName,
		LastSeen:  in.SeenMs,
		FirstSeen: in.SeenMs,
		HasGPS:    in.HasGPS,
		Lat:       in.Lat,
		Lon:       in.Lon,
		UpdatedAt: in.SeenMs,
	}
	if err := o.store.UpsertObserver(ctx, obs); err != nil {
		return fmt.Errorf("observers: upsert: %w", err)
	}
	return nil
}

// Ranked returns observers seen within the last windowHours, ordered by
// packet count descending (getRankedObservers, §4.7).
func (o *Observers) Ranked(ctx context.Context, windowHours int, nowMs int64) ([]model.RankedObserver, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	sinceMs := nowMs - int64(windowHours)*3600*1000
	return o.store.GetRankedObservers(ctx, sinceMs)
}
