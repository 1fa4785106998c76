// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/meshrank/meshrank/internal/codec"
	"github.com/meshrank/meshrank/internal/codec/keystore"
	"github.com/meshrank/meshrank/internal/messages"
	"github.com/meshrank/meshrank/internal/observers"
	"github.com/meshrank/meshrank/internal/registry"
	"github.com/meshrank/meshrank/pkg/log"
)

// RfPacketLogger is the narrow persistence seam the pipeline needs for
// step 4 ("record the frame"). internal/repository.RfPacketRepository
// implements it.
type RfPacketLogger interface {
	Insert(ctx context.Context, ts int64, observerID, frameHash string, payloadLen int, accepted bool) error
}

// Pipeline wires the five ingest steps from §4.4 together: archive,
// registry, observer registry, rf_packets, message store, executed in that
// strict order for every report.
type Pipeline struct {
	archive   *Archive
	keys      *keystore.Loader
	registry  *registry.Registry
	observers *observers.Observers
	messages  *messages.Messages
	rfPackets RfPacketLogger
}

// NewPipeline builds a Pipeline from its collaborators. keys may be nil,
// meaning group-text frames decode without plaintext.
func NewPipeline(archive *Archive, keys *keystore.Loader, reg *registry.Registry, obs *observers.Observers, msgs *messages.Messages, rf RfPacketLogger) *Pipeline {
	return &Pipeline{archive: archive, keys: keys, registry: reg, observers: obs, messages: msgs, rfPackets: rf}
}

// retryDatastoreWrite retries a downstream-transient datastore write up to
// 3 attempts with exponential backoff (§7). The ndjson archive has already
// durably recorded the report by the time this runs, so a final failure is
// logged rather than fatal.
func retryDatastoreWrite(ctx context.Context, op func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	return backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return op()
	}, backoff.WithContext(b, ctx))
}

// Process runs the five-step pipeline against one raw pub/sub payload.
// Malformed frames are dropped silently at the codec boundary (counted,
// never returned as an error) since the archive step has already preserved
// the raw record for replay.
func (p *Pipeline) Process(ctx context.Context, raw []byte) error {
	report, err := ParseReport(raw)
	if err != nil {
		framesDropped.WithLabelValues("malformed_envelope").Inc()
		log.Warnf("ingest: malformed envelope: %v", err)
		return nil
	}

	// Step 1: archive, unconditionally, before any decode attempt.
	stamped, err := p.archive.Append(report)
	if err != nil {
		return err
	}

	heardMs := parseArchivedAt(stamped.ArchivedAt)

	var ks *codec.KeyStore
	if p.keys != nil {
		ks = p.keys.Current()
	}

	frame, err := codec.Decode(stamped.PayloadHex, ks)
	if err != nil {
		framesDropped.WithLabelValues(dropReason(err)).Inc()
		return nil
	}
	framesDecoded.Inc()

	// Step 2: advert -> node registry.
	if frame.Advert != nil {
		in := registry.AdvertInput{
			Pub:        frame.Advert.Pub,
			ObserverID: stamped.ObserverID,
			HeardMs:    heardMs,
			HasFlags:   true,
			Flags:      frame.Advert.AppFlags,
			HasName:    frame.Advert.HasName,
			Name:       frame.Advert.Name,
			HasGPS:     frame.Advert.HasGPS,
			Lat:        frame.Advert.Lat,
			Lon:        frame.Advert.Lon,
			RawSample:  raw,
		}
		var outcome registry.Outcome
		if err := retryDatastoreWrite(ctx, func() error {
			var err error
			outcome, err = p.registry.IngestAdvert(ctx, in)
			return err
		}); err != nil {
			log.Errorf("ingest: registry write failed after retries: %v", err)
		} else if outcome.Accepted {
			advertsAccepted.Inc()
		} else if outcome.Rejected {
			advertsRejected.WithLabelValues(outcome.Reason).Inc()
		}
	}

	// Step 3: observer registry (liveness, count, gps).
	obsIn := observers.WitnessInput{
		ObserverID:   stamped.ObserverID,
		ObserverName: stamped.ObserverName,
		SeenMs:       heardMs,
	}
	if stamped.GPS != nil {
		obsIn.HasGPS = true
		obsIn.Lat = stamped.GPS.Lat
		obsIn.Lon = stamped.GPS.Lon
	}
	if err := retryDatastoreWrite(ctx, func() error {
		return p.observers.RecordWitness(ctx, obsIn)
	}); err != nil {
		log.Errorf("ingest: observer write failed after retries: %v", err)
	}

	// Step 4: record the frame in rf_packets.
	if err := retryDatastoreWrite(ctx, func() error {
		return p.rfPackets.Insert(ctx, heardMs, stamped.ObserverID, frame.FrameHash, len(stamped.PayloadHex)/2, true)
	}); err != nil {
		log.Errorf("ingest: rf_packets write failed after retries: %v", err)
	}

	// Step 5: group-text -> message store.
	if frame.GroupText != nil && frame.GroupText.Decrypted != nil {
		in := messages.GroupTextInput{
			MessageHash:  frame.MessageHash,
			FrameHash:    frame.FrameHash,
			ChannelHash:  frame.GroupText.ChannelHash,
			Sender:       frame.GroupText.Decrypted.Sender,
			Body:         frame.GroupText.Decrypted.Message,
			Ts:           heardMs,
			Path:         frame.Path,
			Repeats:      0,
			ObserverID:   stamped.ObserverID,
			ObserverName: stamped.ObserverName,
		}
		if err := retryDatastoreWrite(ctx, func() error {
			return p.messages.Record(ctx, in)
		}); err != nil {
			log.Errorf("ingest: message store write failed after retries: %v", err)
		} else {
			groupTextsRecorded.Inc()
		}
	}

	return nil
}

func parseArchivedAt(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Now().UnixMilli()
	}
	return t.UnixMilli()
}

func dropReason(err error) string {
	switch err {
	case codec.ErrInvalidHex:
		return "invalid_hex"
	case codec.ErrInvalidLength:
		return "invalid_length"
	case codec.ErrUnknownPayloadType:
		return "unknown_payload_type"
	case codec.ErrDecryptFailed:
		return "decrypt_failed"
	default:
		return "other"
	}
}
