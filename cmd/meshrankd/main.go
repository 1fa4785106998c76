// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/meshrank/meshrank/internal/api"
	"github.com/meshrank/meshrank/internal/codec/keystore"
	"github.com/meshrank/meshrank/internal/config"
	"github.com/meshrank/meshrank/internal/ingest"
	"github.com/meshrank/meshrank/internal/messages"
	"github.com/meshrank/meshrank/internal/observers"
	"github.com/meshrank/meshrank/internal/registry"
	"github.com/meshrank/meshrank/internal/repository"
	"github.com/meshrank/meshrank/internal/routeinfer"
	"github.com/meshrank/meshrank/internal/tasks"
	"github.com/meshrank/meshrank/pkg/log"
	"github.com/meshrank/meshrank/pkg/nats"
	"github.com/meshrank/meshrank/pkg/runtimeEnv"
)

// version is set via -ldflags at build time.
var version = "dev"

// shutdownGrace is how long in-flight work is given to drain once a
// shutdown signal arrives (§5).
const shutdownGrace = 5 * time.Second

func main() {
	cliInit()

	if flagVersion {
		fmt.Printf("meshrankd %s\n", version)
		return
	}

	log.SetLogLevel(flagLogLevel)
	if flagLogDateTime {
		log.SetLogDateTime(true)
	}

	config.Init(flagConfigFile)

	repository.Connect(config.Keys.DBDriver, config.Keys.DB)

	if flagMigrateDB {
		repository.MigrateDB(config.Keys.DBDriver, config.Keys.DB)
		log.Info("Database migrated.")
		return
	}

	if err := nats.Init(config.Keys.Nats); err != nil {
		log.Fatal(err)
	}
	nats.Connect()

	keysLoader := keystore.NewLoader(config.Keys.ChannelKeysPath)
	if _, err := keysLoader.Reload(); err != nil {
		log.Warnf("initial channel-keys load: %v", err)
	}

	archive, err := ingest.OpenArchive(config.Keys.ArchivePath)
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	deviceRepo := repository.GetDeviceRepository()
	messageRepo := repository.GetMessageRepository()
	observerRepo := repository.GetObserverRepository()
	rfPacketRepo := repository.GetRfPacketRepository(int64(config.Keys.RfPacketsCap))
	metricsRepo := repository.GetMetricsRepository()

	reg := registry.New(deviceRepo)
	obsSvc := observers.New(observerRepo)
	msgSvc := messages.New(messageRepo, keysLoader.Current())

	pipeline := ingest.NewPipeline(archive, keysLoader, reg, obsSvc, msgSvc, rfPacketRepo)

	mqttCfg := config.LoadMQTTConfig()
	worker := ingest.NewWorker(pipeline, mqttCfg.Topic)

	ctx, cancel := context.WithCancel(context.Background())

	weights := routeinfer.Weights{
		Obs:                config.Keys.RouteScoring.ObsWeight,
		Rel:                config.Keys.RouteScoring.RelWeight,
		Dist:               config.Keys.RouteScoring.DistWeight,
		Edge:               config.Keys.RouteScoring.EdgeWeight,
		RouteConfThreshold: config.Keys.RouteScoring.RouteConfidenceThreshold,
		HopConfThreshold:   config.Keys.RouteScoring.HopConfidenceThreshold,
	}
	tasks.Start(keysLoader, msgSvc, weights)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Run(ctx); err != nil {
			log.Errorf("ingest worker stopped: %v", err)
		}
	}()

	restAPI := api.NewRestApi()
	restAPI.Devices = deviceRepo
	restAPI.Messages = messageRepo
	restAPI.Observers = observerRepo
	restAPI.RfPackets = rfPacketRepo
	restAPI.Metrics = metricsRepo
	restAPI.DBPath = config.Keys.DB

	r := mux.NewRouter()
	restAPI.MountRoutes(r)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	loggedRouter := handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Infof("%s %s (%d, %.02fkb, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, float32(params.Size)/1024,
			time.Since(params.TimeStamp).Milliseconds())
	})

	server := &http.Server{
		Addr:         config.Keys.Addr,
		Handler:      loggedRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("query API listening on %s", config.Keys.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	if user := os.Getenv("MESHRANK_RUN_AS_USER"); user != "" || os.Getenv("MESHRANK_RUN_AS_GROUP") != "" {
		if err := runtimeEnv.DropPrivileges(user, os.Getenv("MESHRANK_RUN_AS_GROUP")); err != nil {
			log.Fatalf("error while dropping privileges: %s", err.Error())
		}
	}

	runtimeEnv.SystemdNotifiy(true, "running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	runtimeEnv.SystemdNotifiy(false, "shutting down")
	log.Info("shutdown signal received, draining in-flight work")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	cancel()
	tasks.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http server shutdown: %v", err)
	}
	nats.GetClient().Close()

	wg.Wait()
	log.Info("graceful shutdown complete")
}
