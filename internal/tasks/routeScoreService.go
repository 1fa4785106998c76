// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meshrank/meshrank/internal/model"
	"github.com/meshrank/meshrank/internal/repository"
	"github.com/meshrank/meshrank/internal/routeinfer"
	"github.com/meshrank/meshrank/pkg/log"
)

// routeScoreInterval is how often the scorer re-evaluates recent messages.
const routeScoreInterval = 30 * time.Second

// routeScoreWindow bounds how far back the scorer looks for messages with a
// path worth scoring.
const routeScoreWindow = 24 * time.Hour

var routeScoreLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "meshrank_route_score_seconds",
	Help: "Wall time spent scoring one message's route.",
})

// RegisterRouteScoreService registers the periodic job that re-runs
// routeinfer.Infer over every recent multi-hop message and persists the
// result, matching the teacher's one-job-per-concern taskManager idiom.
func RegisterRouteScoreService(weights routeinfer.Weights) {
	log.Info("tasks: registering route score service")

	_, err := s.NewJob(
		gocron.DurationJob(routeScoreInterval),
		gocron.NewTask(func() { runRouteScorePass(weights) }),
	)
	if err != nil {
		log.Errorf("tasks: could not register route score service: %v", err)
	}
}

func runRouteScorePass(weights routeinfer.Weights) {
	ctx := context.Background()
	msgRepo := repository.GetMessageRepository()
	routeRepo := repository.GetRouteRepository()
	obsRepo := repository.GetObserverRepository()

	sinceMs := time.Now().Add(-routeScoreWindow).UnixMilli()
	recent, err := msgRepo.Recent(ctx, "", 500)
	if err != nil {
		log.Errorf("tasks: route scorer: list recent messages: %v", err)
		return
	}

	for _, m := range recent {
		if m.Ts < sinceMs || m.PathLength == 0 {
			continue
		}
		scoreMessage(ctx, m, msgRepo, routeRepo, obsRepo, weights)
	}
}

func scoreMessage(ctx context.Context, m model.Message, msgRepo *repository.MessageRepository, routeRepo *repository.RouteRepository, obsRepo *repository.ObserverRepository, weights routeinfer.Weights) {
	start := time.Now()
	defer func() { routeScoreLatency.Observe(time.Since(start).Seconds()) }()

	witnesses, err := msgRepo.Witnesses(ctx, m.MessageHash)
	if err != nil || len(witnesses) == 0 {
		return
	}

	// Use the first witness as the scoring observer; every witness shares
	// the same candidate/prior data so the choice only affects which
	// observer-home biases the emission score.
	w := witnesses[0]
	var home *model.GPS
	if obs, ok, err := obsRepo.GetObserver(ctx, w.ObserverID); err == nil && ok {
		home = obs.GetGPS()
	}

	var tokens []string
	if err := json.Unmarshal([]byte(w.PathJSON), &tokens); err != nil || len(tokens) == 0 {
		return
	}

	route := routeinfer.Infer(routeinfer.Input{
		Tokens:        tokens,
		ObserverHome:  home,
		CandidatesFor: func(token string) []routeinfer.Candidate { return routeRepo.CandidatesForToken(ctx, token) },
		EdgePrior:     func(prev, next string) int64 { return routeRepo.EdgePrior(ctx, prev, next) },
		Weights:       weights,
		Now:           time.Now(),
	})
	if route == nil {
		return
	}
	route.MsgKey = m.MessageHash
	route.Ts = w.Ts
	route.ObserverID = w.ObserverID

	if err := routeRepo.SaveRoute(ctx, route); err != nil {
		log.Errorf("tasks: route scorer: save route for %s: %v", m.MessageHash, err)
	}
}
