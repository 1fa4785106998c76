// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package codec decodes on-air mesh frames. It is pure: no I/O, no global
// state beyond an explicitly passed KeyStore. All decode failures are one
// of the sentinel errors below; callers treat every one of them as
// "skip and continue" (malformed-input in the error taxonomy).
package codec

import "errors"

var (
	ErrInvalidHex         = errors.New("codec: invalid hex frame")
	ErrInvalidLength      = errors.New("codec: frame too short")
	ErrUnknownPayloadType = errors.New("codec: unknown payload type")
	ErrDecryptFailed      = errors.New("codec: group-text decryption failed")
)
