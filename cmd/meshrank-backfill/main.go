// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command meshrank-backfill re-feeds a previously archived ndjson observer-report
// file through the ingest pipeline, so the node registry, observer ranking and
// message store can be rebuilt (or backfilled onto a migrated schema) without a
// live NATS broker.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/meshrank/meshrank/internal/codec/keystore"
	"github.com/meshrank/meshrank/internal/config"
	"github.com/meshrank/meshrank/internal/ingest"
	"github.com/meshrank/meshrank/internal/messages"
	"github.com/meshrank/meshrank/internal/observers"
	"github.com/meshrank/meshrank/internal/registry"
	"github.com/meshrank/meshrank/internal/repository"
	"github.com/meshrank/meshrank/pkg/log"
)

var (
	flagConfigFile string
	flagInputFile  string
	flagLogLevel   string
)

func cliInit() {
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Specify alternative path to `config.json`")
	flag.StringVar(&flagInputFile, "input", "", "ndjson archive file to replay (required)")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	flag.Parse()
}

func main() {
	cliInit()
	log.SetLogLevel(flagLogLevel)

	if flagInputFile == "" {
		fmt.Fprintln(os.Stderr, "meshrank-backfill: -input is required")
		os.Exit(2)
	}

	config.Init(flagConfigFile)
	repository.Connect(config.Keys.DBDriver, config.Keys.DB)

	keysLoader := keystore.NewLoader(config.Keys.ChannelKeysPath)
	if _, err := keysLoader.Reload(); err != nil {
		log.Warnf("initial channel-keys load: %v", err)
	}

	// The pipeline appends every replayed line back onto the live archive too;
	// point it at a scratch file so re-running a backfill never corrupts the
	// archive being replayed.
	archive, err := ingest.OpenArchive(flagInputFile + ".replay")
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	reg := registry.New(repository.GetDeviceRepository())
	obsSvc := observers.New(repository.GetObserverRepository())
	msgSvc := messages.New(repository.GetMessageRepository(), keysLoader.Current())
	rfRepo := repository.GetRfPacketRepository(int64(config.Keys.RfPacketsCap))

	pipeline := ingest.NewPipeline(archive, keysLoader, reg, obsSvc, msgSvc, rfRepo)

	f, err := os.Open(flagInputFile)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lineNo, failed int
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := pipeline.Process(ctx, line); err != nil {
			failed++
			log.Warnf("line %d: %v", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}

	log.Infof("backfill complete: %d lines read, %d failed", lineNo, failed)
}
