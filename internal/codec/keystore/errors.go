// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package keystore

import "errors"

var (
	ErrNoKey           = errors.New("keystore: no channel key for this hash")
	ErrCiphertextShort = errors.New("keystore: ciphertext shorter than nonce")
	ErrOpenFailed      = errors.New("keystore: AEAD open failed")
)
