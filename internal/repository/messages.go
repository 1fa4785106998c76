// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/meshrank/meshrank/internal/model"
)

var (
	messageRepoOnce     sync.Once
	messageRepoInstance *MessageRepository
)

// MessageRepository implements messages.Store against the messages and
// message_observers tables.
type MessageRepository struct {
	db *DBConnection
}

// GetMessageRepository returns the process-wide message repository.
func GetMessageRepository() *MessageRepository {
	messageRepoOnce.Do(func() {
		messageRepoInstance = &MessageRepository{db: GetConnection()}
	})
	return messageRepoInstance
}

// UpsertMessage reconciles m against whatever row already exists at
// m.MessageHash, per §4.3: ts takes the max, frame_hash/sender/sender_pub/
// channel_name/body fill in only when the existing value is empty, repeats
// takes the max, and path_json/path_text/path_length are replaced only when
// the new path is longer than the one on file.
func (r *MessageRepository) UpsertMessage(ctx context.Context, m *model.Message) error {
	q := sq.Insert("messages").
		Columns(
			"message_hash", "frame_hash", "channel_name", "channel_hash",
			"sender", "sender_pub", "body", "ts",
			"path_json", "path_text", "path_length", "repeats",
		).
		Values(
			m.MessageHash, m.FrameHash, m.ChannelName, m.ChannelHash,
			m.Sender, m.SenderPub, m.Body, m.Ts,
			m.PathJSON, m.PathText, m.PathLength, m.Repeats,
		).
		Suffix(`ON CONFLICT(message_hash) DO UPDATE SET
			frame_hash   = CASE WHEN messages.frame_hash = '' THEN excluded.frame_hash ELSE messages.frame_hash END,
			channel_name = CASE WHEN messages.channel_name = '' THEN excluded.channel_name ELSE messages.channel_name END,
			sender       = CASE WHEN messages.sender = '' THEN excluded.sender ELSE messages.sender END,
			sender_pub   = CASE WHEN messages.sender_pub = '' THEN excluded.sender_pub ELSE messages.sender_pub END,
			body         = CASE WHEN messages.body = '' THEN excluded.body ELSE messages.body END,
			ts           = MAX(messages.ts, excluded.ts),
			repeats      = MAX(messages.repeats, excluded.repeats),
			path_json    = CASE WHEN excluded.path_length > messages.path_length THEN excluded.path_json ELSE messages.path_json END,
			path_text    = CASE WHEN excluded.path_length > messages.path_length THEN excluded.path_text ELSE messages.path_text END,
			path_length  = MAX(messages.path_length, excluded.path_length)`)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("messages: build upsert: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("messages: upsert message: %w", err)
	}
	return nil
}

// UpsertObserverWitness records one observer's view of a message: its own
// arrival timestamp and path, independent of any other observer's witness of
// the same frame. A redelivery to the same (message_hash, observer_id) keeps
// the later ts, the longer observer_name and the longer path.
func (r *MessageRepository) UpsertObserverWitness(ctx context.Context, w *model.MessageObserver) error {
	q := sq.Insert("message_observers").
		Columns("message_hash", "observer_id", "observer_name", "ts", "path_json", "path_text", "path_length").
		Values(w.MessageHash, w.ObserverID, w.ObserverName, w.Ts, w.PathJSON, w.PathText, w.PathLength).
		Suffix(`ON CONFLICT(message_hash, observer_id) DO UPDATE SET
			observer_name = CASE WHEN length(excluded.observer_name) > length(message_observers.observer_name) THEN excluded.observer_name ELSE message_observers.observer_name END,
			ts            = MAX(message_observers.ts, excluded.ts),
			path_json     = CASE WHEN excluded.path_length > message_observers.path_length THEN excluded.path_json ELSE message_observers.path_json END,
			path_text     = CASE WHEN excluded.path_length > message_observers.path_length THEN excluded.path_text ELSE message_observers.path_text END,
			path_length   = MAX(message_observers.path_length, excluded.path_length)`)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("messages: build witness upsert: %w", err)
	}
	if _, err := r.db.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("messages: upsert witness: %w", err)
	}
	return nil
}

// Recent returns the most recently seen messages, newest first, for the
// query API's recent-messages endpoint.
func (r *MessageRepository) Recent(ctx context.Context, channelName string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	b := sq.Select(
		"message_hash", "frame_hash", "channel_name", "channel_hash",
		"sender", "sender_pub", "body", "ts", "path_json", "path_text", "path_length", "repeats",
	).From("messages").OrderBy("ts DESC").Limit(uint64(limit))
	if channelName != "" {
		b = b.Where(sq.Eq{"channel_name": channelName})
	}

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("messages: build recent: %w", err)
	}

	var msgs []model.Message
	if err := r.db.DB.SelectContext(ctx, &msgs, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("messages: recent: %w", err)
	}
	return msgs, nil
}

// Witnesses returns every observer that reported messageHash, for route
// inference's per-message candidate evidence.
func (r *MessageRepository) Witnesses(ctx context.Context, messageHash string) ([]model.MessageObserver, error) {
	sqlStr, args, err := sq.Select("message_hash", "observer_id", "observer_name", "ts", "path_json", "path_text", "path_length").
		From("message_observers").Where(sq.Eq{"message_hash": messageHash}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("messages: build witnesses: %w", err)
	}

	var ws []model.MessageObserver
	if err := r.db.DB.SelectContext(ctx, &ws, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("messages: witnesses: %w", err)
	}
	return ws, nil
}
