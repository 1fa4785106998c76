// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tasks is the periodic job scheduler: the route scorer and the
// channel-keys reload poll, one RegisterXService function per concern,
// matching the teacher's internal/taskManager layout.
package tasks

import (
	"github.com/go-co-op/gocron/v2"

	"github.com/meshrank/meshrank/internal/codec/keystore"
	"github.com/meshrank/meshrank/internal/messages"
	"github.com/meshrank/meshrank/internal/routeinfer"
	"github.com/meshrank/meshrank/pkg/log"
)

var s gocron.Scheduler

// Start creates the scheduler and registers every periodic job, then starts
// it. keysLoader may be nil, in which case the reload job is skipped.
func Start(keysLoader *keystore.Loader, msgs *messages.Messages, weights routeinfer.Weights) {
	var err error
	s, err = gocron.NewScheduler()
	if err != nil {
		log.Fatalf("tasks: could not create gocron scheduler: %v", err)
	}

	RegisterRouteScoreService(weights)
	if keysLoader != nil {
		RegisterChannelKeysReloadService(keysLoader, msgs)
	}

	s.Start()
}

// Shutdown stops the scheduler, letting in-flight jobs finish.
func Shutdown() {
	if s != nil {
		if err := s.Shutdown(); err != nil {
			log.Warnf("tasks: shutdown: %v", err)
		}
	}
}
