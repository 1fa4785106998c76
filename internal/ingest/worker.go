// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"context"

	"github.com/meshrank/meshrank/pkg/log"
	"github.com/meshrank/meshrank/pkg/nats"
)

// Worker subscribes to the observer-reports wildcard subject and feeds
// every message through a Pipeline. Reconnection is handled transparently
// by the underlying NATS client (§4.4 state machine); in-memory state the
// pipeline depends on (the channel-key store) is never owned by the
// connection, so it survives reconnects untouched.
type Worker struct {
	pipeline *Pipeline
	subject  string
}

// NewWorker builds a Worker that subscribes to topic (MQTT-style, slash
// delimited), translated to the NATS subject scheme internally.
func NewWorker(pipeline *Pipeline, topic string) *Worker {
	return &Worker{pipeline: pipeline, subject: nats.ToSubject(topic)}
}

// Run subscribes and blocks until ctx is canceled, at which point it
// unsubscribes and returns.
func (w *Worker) Run(ctx context.Context) error {
	client := nats.GetClient()
	if client == nil {
		log.Error("ingest: NATS client not initialized, worker exiting")
		return nil
	}

	if err := client.Subscribe(w.subject, func(_ string, data []byte) {
		if err := w.pipeline.Process(ctx, data); err != nil {
			log.Errorf("ingest: process failed: %v", err)
		}
	}); err != nil {
		return err
	}

	log.Infof("ingest: worker running on subject %q", w.subject)
	<-ctx.Done()
	log.Info("ingest: worker shutting down")
	return nil
}
