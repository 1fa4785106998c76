// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api is the minimal read-only query API (§4.7): getRankedObservers,
// getRecentMessages, getNode, health. No GraphQL, auth, or presentation
// layer — those are the teacher's non-goals carried over from spec.md.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meshrank/meshrank/internal/repository"
	"github.com/meshrank/meshrank/pkg/log"
	"github.com/meshrank/meshrank/pkg/lrucache"
)

// rankedObserversCacheBytes bounds the in-memory cache used to spare the
// ranked-observers aggregate query from being re-run on every dashboard poll.
const rankedObserversCacheBytes = 1 << 20

// RestApi wires the query handlers to the datastore singletons. Every
// handler is read-only: ingest and the route scorer are the only writers
// (§5).
type RestApi struct {
	Devices   *repository.DeviceRepository
	Messages  *repository.MessageRepository
	Observers *repository.ObserverRepository
	RfPackets *repository.RfPacketRepository
	Metrics   *repository.MetricsRepository
	DBPath    string

	cache *lrucache.Cache
}

// NewRestApi builds a RestApi with its response cache initialized.
func NewRestApi() *RestApi {
	return &RestApi{cache: lrucache.New(rankedObserversCacheBytes)}
}

// MountRoutes registers every endpoint under /api plus /metrics.
func (api *RestApi) MountRoutes(r *mux.Router) {
	sub := r.PathPrefix("/api").Subrouter()
	sub.StrictSlash(true)

	sub.HandleFunc("/observers/ranked", api.getRankedObservers).Methods(http.MethodGet)
	sub.HandleFunc("/messages/recent", api.getRecentMessages).Methods(http.MethodGet)
	sub.HandleFunc("/nodes/{pub}", api.getNode).Methods(http.MethodGet)
	sub.HandleFunc("/health", api.getHealth).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// ErrorResponse is the JSON body written alongside a non-2xx status.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func handleError(err error, statusCode int, rw http.ResponseWriter) {
	log.Warnf("REST ERROR : %s", err.Error())
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(ErrorResponse{
		Status: http.StatusText(statusCode),
		Error:  err.Error(),
	})
}

func writeJSON(rw http.ResponseWriter, val interface{}) {
	rw.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(val); err != nil {
		log.Errorf("REST: encode response: %v", err)
	}
}
