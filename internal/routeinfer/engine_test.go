// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package routeinfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshrank/meshrank/internal/model"
)

func gps(lat, lon float64) *model.GPS { return &model.GPS{Lat: lat, Lon: lon} }

func TestInfer_EmptyTokens(t *testing.T) {
	route := Infer(Input{Tokens: nil, Weights: DefaultWeights})
	require.Nil(t, route)
}

func TestInfer_ZeroCandidates(t *testing.T) {
	route := Infer(Input{
		Tokens: []string{"FF"},
		CandidatesFor: func(token string) []Candidate {
			return nil
		},
		Weights: DefaultWeights,
		Now:     time.Now(),
	})
	require.NotNil(t, route)
	require.True(t, route.Unresolved)
	require.Len(t, route.InferredPubs, 1)
	require.Nil(t, route.InferredPubs[0])
	require.Equal(t, []float64{0}, route.HopConfidences)
	require.True(t, route.Diagnostics[0].ZeroCandidates)
}

func TestInfer_TwoHopResolves(t *testing.T) {
	now := time.Now()
	candidates := map[string][]Candidate{
		"11": {
			{Pub: "X", GPS: gps(53.4, -2.2), LastSeenMs: now.UnixMilli()},
			{Pub: "Y", GPS: gps(53.5, -2.1), LastSeenMs: now.UnixMilli()},
		},
		"A3": {
			{Pub: "Z", GPS: gps(53.6, -2.0), LastSeenMs: now.UnixMilli()},
		},
	}

	route := Infer(Input{
		Tokens:       []string{"11", "A3"},
		ObserverHome: gps(53.7, -1.9),
		CandidatesFor: func(token string) []Candidate {
			return candidates[token]
		},
		EdgePrior: func(prev, next string) int64 { return 0 },
		Weights:   DefaultWeights,
		Now:       now,
	})

	require.NotNil(t, route)
	require.Len(t, route.InferredPubs, 2)
	require.NotNil(t, route.InferredPubs[0])
	require.NotNil(t, route.InferredPubs[1])
	require.Greater(t, route.RouteConfidence, 0.65)
	require.Less(t, route.TeleportMaxKm, 30.0)
}

func TestInfer_ImplausibleTeleport(t *testing.T) {
	now := time.Now()
	candidates := map[string][]Candidate{
		"11": {{Pub: "X", GPS: gps(53.4, -2.2), LastSeenMs: now.UnixMilli()}},
		"A3": {{Pub: "Z", GPS: gps(10.0, 100.0), LastSeenMs: now.UnixMilli()}},
	}

	route := Infer(Input{
		Tokens:       []string{"11", "A3"},
		ObserverHome: gps(53.7, -1.9),
		CandidatesFor: func(token string) []Candidate {
			return candidates[token]
		},
		Weights: DefaultWeights,
		Now:     now,
	})

	require.NotNil(t, route)
	require.Greater(t, route.TeleportMaxKm, 1500.0)
	require.True(t, route.Unresolved)
}

func TestInfer_SingleTokenIsArgmaxEmission(t *testing.T) {
	now := time.Now()
	route := Infer(Input{
		Tokens: []string{"11"},
		CandidatesFor: func(token string) []Candidate {
			return []Candidate{
				{Pub: "stale", LastSeenMs: now.Add(-30 * 24 * time.Hour).UnixMilli()},
				{Pub: "fresh", LastSeenMs: now.UnixMilli()},
			}
		},
		Weights: DefaultWeights,
		Now:     now,
	})

	require.NotNil(t, route)
	require.Equal(t, "fresh", *route.InferredPubs[0])
}

func TestInfer_DiagnosticsKeepTopFive(t *testing.T) {
	now := time.Now()
	var many []Candidate
	for i := 0; i < 40; i++ {
		many = append(many, Candidate{Pub: string(rune('a' + i)), LastSeenMs: now.UnixMilli()})
	}

	route := Infer(Input{
		Tokens: []string{"11"},
		CandidatesFor: func(token string) []Candidate {
			return many
		},
		Weights: DefaultWeights,
		Now:     now,
	})

	require.NotNil(t, route)
	require.LessOrEqual(t, len(route.Diagnostics[0].TopCandidates), 5)
}
