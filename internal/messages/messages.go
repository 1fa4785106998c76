// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package messages is the message store: per-message records plus the
// per-observer witness set, reconciled on upsert per §4.3. The actual
// ON CONFLICT reconciliation (max(ts), prefer non-null, longer-path-wins)
// is expressed as SQL in internal/repository, since sqlite's own
// `excluded.` clause is the natural place to state it; this package only
// shapes the input and resolves the channel name.
package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meshrank/meshrank/internal/codec/keystore"
	"github.com/meshrank/meshrank/internal/model"
)

// Store is the persistence seam this package needs.
type Store interface {
	UpsertMessage(ctx context.Context, m *model.Message) error
	UpsertObserverWitness(ctx context.Context, w *model.MessageObserver) error
}

// GroupTextInput is the evidence needed to record one observer's witness of
// a decoded group-text frame.
type GroupTextInput struct {
	MessageHash string
	FrameHash   string
	ChannelHash string

	Sender     string
	SenderPub  string
	Body       string
	Ts         int64
	Path       []string
	Repeats    int
	ObserverID string
	ObserverName string
}

// Messages reconciles one decoded group-text observation: an upsert into
// messages plus an upsert into message_observers, per the rules in §4.3.
type Messages struct {
	store Store
	keys  *keystore.Store
}

// New builds a message store bound to the given persistence Store. keys
// resolves channel_hash to a human channel name; it may be nil.
func New(store Store, keys *keystore.Store) *Messages {
	return &Messages{store: store, keys: keys}
}

// SetKeyStore swaps the channel-key store used for name resolution,
// matching a copy-on-reload channel-keys file update.
func (m *Messages) SetKeyStore(keys *keystore.Store) {
	m.keys = keys
}

// Record upserts the message row and the reporting observer's witness row.
func (m *Messages) Record(ctx context.Context, in GroupTextInput) error {
	pathText := pathToText(in.Path)
	pathJSON := pathToJSON(in.Path)

	channelName, _ := m.keys.Name(in.ChannelHash)

	msg := &model.Message{
		MessageHash: in.MessageHash,
		FrameHash:   in.FrameHash,
		ChannelName: channelName,
		ChannelHash: in.ChannelHash,
		Sender:      in.Sender,
		SenderPub:   in.SenderPub,
		Body:        in.Body,
		Ts:          in.Ts,
		PathJSON:    pathJSON,
		PathText:    pathText,
		PathLength:  len(in.Path),
		Repeats:     in.Repeats,
	}
	if err := m.store.UpsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("messages: upsert message: %w", err)
	}

	witness := &model.MessageObserver{
		MessageHash:  in.MessageHash,
		ObserverID:   in.ObserverID,
		ObserverName: in.ObserverName,
		Ts:           in.Ts,
		PathJSON:     pathJSON,
		PathText:     pathText,
		PathLength:   len(in.Path),
	}
	if err := m.store.UpsertObserverWitness(ctx, witness); err != nil {
		return fmt.Errorf("messages: upsert witness: %w", err)
	}

	return nil
}

func pathToText(path []string) string {
	return strings.Join(path, ",")
}

func pathToJSON(path []string) string {
	if path == nil {
		path = []string{}
	}
	b, err := json.Marshal(path)
	if err != nil {
		return "[]"
	}
	return string(b)
}
