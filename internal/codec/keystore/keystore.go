// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package keystore holds the channel secrets used to decrypt group-text
// payloads. It is a copy-on-reload immutable map: Build creates a brand new
// Store, and callers atomically swap their reference to it rather than
// mutate one in place (§5, "shared resources").
package keystore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/meshrank/meshrank/pkg/log"
)

// Channel is one entry of the channel-keys file.
type Channel struct {
	HashByte  string `json:"hashByte"`
	Name      string `json:"name"`
	SecretHex string `json:"secretHex"`
}

type channelKeysFile struct {
	Channels []Channel `json:"channels"`
}

type entry struct {
	name   string
	secret [chacha20poly1305.KeySize]byte
}

// Store is an immutable, already-validated channel-hash to secret/name map.
type Store struct {
	byHash map[string]entry
}

// Build parses the channel-keys JSON payload. Entries whose secretHex is not
// exactly 32 bytes of hex are skipped with a diagnostic line rather than
// failing the whole load (§6).
func Build(r io.Reader) (*Store, error) {
	var f channelKeysFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("keystore: decode: %w", err)
	}

	s := &Store{byHash: make(map[string]entry, len(f.Channels))}
	for _, c := range f.Channels {
		raw, err := hex.DecodeString(c.SecretHex)
		if err != nil || len(raw) != chacha20poly1305.KeySize {
			log.Warnf("keystore: channel %q (hash %s) has invalid secretHex, skipping", c.Name, c.HashByte)
			continue
		}
		var secret [chacha20poly1305.KeySize]byte
		copy(secret[:], raw)
		s.byHash[normalizeHash(c.HashByte)] = entry{name: c.Name, secret: secret}
	}
	return s, nil
}

// Empty returns a Store with no channels, used when no channel-keys file is
// configured.
func Empty() *Store {
	return &Store{byHash: map[string]entry{}}
}

func normalizeHash(hashByte string) string {
	raw, err := hex.DecodeString(hashByte)
	if err != nil || len(raw) != 1 {
		return hashByte
	}
	return hex.EncodeToString(raw)
}

// Name returns the human channel name for a one-byte channel hash (hex),
// and whether it was found.
func (s *Store) Name(channelHash string) (string, bool) {
	if s == nil {
		return "", false
	}
	e, ok := s.byHash[normalizeHash(channelHash)]
	return e.name, ok
}

// Open decrypts ciphertext using the secret registered for channelHash.
// Returns ErrNoKey when no channel with that hash is loaded (not a
// decryption failure, handled distinctly by the codec so it can report
// "decoded but undecrypted" rather than "decode failed").
func (s *Store) Open(channelHash string, ciphertext []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrNoKey
	}
	e, ok := s.byHash[normalizeHash(channelHash)]
	if !ok {
		return nil, ErrNoKey
	}

	aead, err := chacha20poly1305.New(e.secret[:])
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrCiphertextShort
	}

	nonce := ciphertext[:aead.NonceSize()]
	sealed := ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return plain, nil
}

// Digest returns a short fingerprint of the loaded channel set, useful for
// logging reloads without leaking secrets.
func (s *Store) Digest() string {
	hashes := make([]string, 0, len(s.byHash))
	for hash := range s.byHash {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	h := sha256.New()
	for _, hash := range hashes {
		h.Write([]byte(hash))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
