// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"

	"github.com/meshrank/meshrank/pkg/log"
	"github.com/meshrank/meshrank/pkg/schema"
)

// Keys holds the effective configuration: defaults, overlaid by the config
// file (if any), overlaid by environment variables.
var Keys schema.ProgramConfig = schema.ProgramConfig{
	Addr:            ":8090",
	DBDriver:        "sqlite3",
	DB:              "./var/meshrank.db",
	ArchivePath:     "./var/observer-reports.ndjson",
	ChannelKeysPath: "./var/channel-keys.json",
	RouteScoring: schema.RouteScoringConfig{
		ObsWeight:                1.0,
		RelWeight:                1.0,
		DistWeight:               0.3,
		EdgeWeight:               0.15,
		RouteConfidenceThreshold: 0.65,
		HopConfidenceThreshold:   0.60,
	},
	RfPacketsCap: 50000,
}

// Init reads flagConfigFile (if it exists), validates it against the config
// JSON schema, decodes it over the defaults above, and overlays the
// MESHRANK_*/GEOSCORE_* environment variables on top. A missing config file
// is not fatal; an unreadable or schema-invalid one is.
func Init(flagConfigFile string) {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal(err)
		}
	} else {
		if err := schema.Validate(schema.Config, bytes.NewReader(raw)); err != nil {
			log.Fatalf("Validate config: %v\n", err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&Keys); err != nil {
			log.Fatal(err)
		}
	}

	overlayEnv()

	if Keys.DB == "" {
		log.Fatal("config: 'db' must not be empty")
	}
}

// overlayEnv applies the documented environment variables on top of whatever
// the config file or defaults set. Unset variables leave the existing value
// untouched.
func overlayEnv() {
	if v := os.Getenv("MESHRANK_DB_PATH"); v != "" {
		Keys.DB = v
	}

	overlayFloat("GEOSCORE_OBS_WEIGHT", &Keys.RouteScoring.ObsWeight)
	overlayFloat("GEOSCORE_REL_WEIGHT", &Keys.RouteScoring.RelWeight)
	overlayFloat("GEOSCORE_DIST_WEIGHT", &Keys.RouteScoring.DistWeight)
	overlayFloat("GEOSCORE_EDGE_WEIGHT", &Keys.RouteScoring.EdgeWeight)
	overlayFloat("GEOSCORE_ROUTE_CONF", &Keys.RouteScoring.RouteConfidenceThreshold)
	overlayFloat("GEOSCORE_HOP_CONF", &Keys.RouteScoring.HopConfidenceThreshold)
}

func overlayFloat(envVar string, dst *float64) {
	v := os.Getenv(envVar)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warnf("config: invalid %s %q: %v", envVar, v, err)
		return
	}
	*dst = f
}

// MQTTConfig bundles the MESHRANK_MQTT_* environment variables used to reach
// the pub/sub broker that carries observer reports.
type MQTTConfig struct {
	URL      string
	Topic    string
	User     string
	Password string
}

// LoadMQTTConfig reads the MESHRANK_MQTT_* environment variables. Only Topic
// has a default (meshrank/observers/+/packets); the other fields are empty
// when their variable is unset.
func LoadMQTTConfig() MQTTConfig {
	topic := os.Getenv("MESHRANK_MQTT_TOPIC")
	if topic == "" {
		topic = "meshrank/observers/+/packets"
	}
	return MQTTConfig{
		URL:      os.Getenv("MESHRANK_MQTT_URL"),
		Topic:    topic,
		User:     os.Getenv("MESHRANK_MQTT_USER"),
		Password: os.Getenv("MESHRANK_MQTT_PASS"),
	}
}
