// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package routeinfer

import (
	"math"
	"time"

	"github.com/meshrank/meshrank/internal/model"
)

// Candidate and GPSPoint alias the model types so this package has no
// dependency of its own on how nodes are persisted.
type Candidate = model.Candidate
type GPSPoint = model.GPS

// Weights are the route-scoring coefficients, defaulted in
// internal/config and overridable via the GEOSCORE_* environment
// variables.
type Weights struct {
	Obs                float64
	Rel                float64
	Dist               float64
	Edge               float64
	RouteConfThreshold float64
	HopConfThreshold   float64
}

// DefaultWeights mirrors the documented defaults: Wobs=Wrel=1.0,
// Wdist=0.3, Wedge=0.15, route confidence threshold 0.65, hop confidence
// threshold 0.60.
var DefaultWeights = Weights{
	Obs:                1.0,
	Rel:                1.0,
	Dist:               0.3,
	Edge:               0.15,
	RouteConfThreshold: 0.65,
	HopConfThreshold:   0.60,
}

const (
	stalenessFreshHours = 24
	stalenessStaleDays  = 7
)

// staleness scores a candidate's last-seen recency: 0 within 24h, -1
// within 7 days, -3 beyond, -2 when unknown (lastSeenMs == 0).
func staleness(lastSeenMs int64, now time.Time) float64 {
	if lastSeenMs == 0 {
		return -2
	}
	age := now.Sub(time.UnixMilli(lastSeenMs))
	switch {
	case age <= stalenessFreshHours*time.Hour:
		return 0
	case age <= stalenessStaleDays*24*time.Hour:
		return -1
	default:
		return -3
	}
}

// emission scores candidate c at a position: distance to the observer's
// home position, plus a recency term. Candidates or the observer missing
// GPS are scored on recency alone (distance term contributes 0).
func emission(c Candidate, observerHome *GPSPoint, w Weights, now time.Time) float64 {
	distTerm := 0.0
	if observerHome != nil && c.GPS != nil {
		d := haversineKm(observerHome.Lat, observerHome.Lon, c.GPS.Lat, c.GPS.Lon)
		distTerm = -math.Log(1+d/10) * w.Obs
	}
	return distTerm + staleness(c.LastSeenMs, now)*w.Rel
}

// distancePenalty is the piecewise transition distance penalty P(d).
func distancePenalty(dKm float64) float64 {
	switch {
	case dKm <= 100:
		return -dKm * 0.01
	case dKm <= 260:
		return -(1 + (dKm-100)*0.02)
	default:
		return -(4 + (dKm-260)*0.06)
	}
}

// transition scores moving from prev to cand, given the count of
// previously observed prev->cand edges.
func transition(prev, cand Candidate, edgeCount int64, w Weights) float64 {
	if prev.GPS == nil || cand.GPS == nil {
		return -50
	}
	d := haversineKm(prev.GPS.Lat, prev.GPS.Lon, cand.GPS.Lat, cand.GPS.Lon)
	return distancePenalty(d)*w.Dist + math.Log(1+float64(edgeCount))*w.Edge
}
