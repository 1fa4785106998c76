// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package model

// Message is a decoded group-text mesh message, identified by its
// message_hash. Witness rows (one per reporting observer) live separately in
// MessageObserver.
type Message struct {
	MessageHash string `json:"message_hash" db:"message_hash"`
	FrameHash   string `json:"frame_hash" db:"frame_hash"`

	ChannelName string `json:"channel_name" db:"channel_name"`
	ChannelHash string `json:"channel_hash" db:"channel_hash"`

	Sender    string `json:"sender" db:"sender"`
	SenderPub string `json:"sender_pub" db:"sender_pub"`
	Body      string `json:"body" db:"body"`

	Ts int64 `json:"ts" db:"ts"`

	PathJSON   string `json:"-" db:"path_json"`
	PathText   string `json:"path_text" db:"path_text"`
	PathLength int    `json:"path_length" db:"path_length"`
	Repeats    int    `json:"repeats" db:"repeats"`
}

// MessageObserver is one observer's witness of a Message: its own view of
// the arrival timestamp and path, which may differ from another observer's
// view of the same frame.
type MessageObserver struct {
	MessageHash  string `db:"message_hash"`
	ObserverID   string `db:"observer_id"`
	ObserverName string `db:"observer_name"`
	Ts           int64  `db:"ts"`
	PathJSON     string `db:"path_json"`
	PathText     string `db:"path_text"`
	PathLength   int    `db:"path_length"`
}
