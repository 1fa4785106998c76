// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters registered against the default Prometheus registerer, surfaced
// on the query API's /metrics endpoint (§9 "Metrics surface").
var (
	framesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meshrank_ingest_frames_decoded_total",
		Help: "Frames successfully decoded by the codec.",
	})
	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meshrank_ingest_frames_dropped_total",
		Help: "Frames dropped at the codec boundary, by reason.",
	}, []string{"reason"})
	advertsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meshrank_ingest_adverts_accepted_total",
		Help: "Adverts accepted into the node registry.",
	})
	advertsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meshrank_ingest_adverts_rejected_total",
		Help: "Adverts rejected by the node registry, by reason.",
	}, []string{"reason"})
	groupTextsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meshrank_ingest_group_texts_recorded_total",
		Help: "Group-text frames recorded to the message store.",
	})
)
