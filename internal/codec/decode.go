// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"strings"

	"github.com/meshrank/meshrank/internal/codec/keystore"
)

const advertMinSize = 32 /* pub */ + 4 /* timestamp */ + 1 /* appFlags */

// KeyStore is the decryption key set Decode consults for group-text
// payloads. A nil KeyStore is valid: GroupText frames decode with
// Decrypted left nil rather than failing.
type KeyStore = keystore.Store

// BuildKeyStore parses a channel-keys JSON document into a KeyStore. Built
// once per configuration load and reloaded whenever the channel-keys file's
// mtime changes (keystore.Loader does the reload bookkeeping).
func BuildKeyStore(r io.Reader) (*KeyStore, error) {
	return keystore.Build(r)
}

// Decode parses a hex-encoded on-air frame. The wire layout is
// [header byte][pathLen byte][pathLen path-token bytes][payload...].
// keyStore may be nil, meaning no channel secrets are loaded.
func Decode(hexFrame string, keyStore *KeyStore) (*DecodedFrame, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexFrame))
	if err != nil {
		return nil, ErrInvalidHex
	}
	if len(raw) < 2 {
		return nil, ErrInvalidLength
	}

	payloadType, routeType := splitHeader(raw[0])
	pathLen := int(raw[1])
	if len(raw) < 2+pathLen {
		return nil, ErrInvalidLength
	}

	path := make([]string, pathLen)
	for i := 0; i < pathLen; i++ {
		path[i] = strings.ToUpper(hex.EncodeToString(raw[2+i : 3+i]))
	}
	payload := raw[2+pathLen:]

	frameHash := strings.ToUpper(hex.EncodeToString(sha256Sum(raw)))

	df := &DecodedFrame{
		PayloadType: payloadType,
		RouteType:   routeType,
		Path:        path,
		PathLength:  pathLen,
		FrameHash:   frameHash,
	}

	switch payloadType {
	case PayloadTypeAdvert:
		adv, err := decodeAdvert(payload)
		if err != nil {
			return nil, err
		}
		df.Advert = adv
		df.MessageHash = strings.ToUpper(hex.EncodeToString(sha256Sum(payload)))
	case PayloadTypeGroupText:
		gt, err := decodeGroupText(payload, keyStore)
		if err != nil {
			return nil, err
		}
		df.GroupText = gt
		// Hashed over the ciphertext only (not header/path) so that every
		// observer reporting the same logical message, regardless of how
		// many hops it traversed to reach them, derives the same
		// message_hash.
		df.MessageHash = strings.ToUpper(hex.EncodeToString(sha256Sum(gt.Ciphertext)))
	default:
		return nil, ErrUnknownPayloadType
	}

	return df, nil
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

func decodeAdvert(payload []byte) (*AdvertPayload, error) {
	if len(payload) < advertMinSize {
		return nil, ErrInvalidLength
	}

	adv := &AdvertPayload{
		Pub:       strings.ToUpper(hex.EncodeToString(payload[0:32])),
		Timestamp: int64(binary.LittleEndian.Uint32(payload[32:36])),
		AppFlags:  payload[36],
	}

	offset := 37
	if offset < len(payload) {
		nameLen := int(payload[offset])
		offset++
		if nameLen > 0 && offset+nameLen <= len(payload) {
			adv.Name = string(payload[offset : offset+nameLen])
			adv.HasName = true
			offset += nameLen
		}
	}

	if offset+8 <= len(payload) {
		latRaw := int32(binary.LittleEndian.Uint32(payload[offset : offset+4]))
		lonRaw := int32(binary.LittleEndian.Uint32(payload[offset+4 : offset+8]))
		adv.Lat = float64(latRaw) / 1e6
		adv.Lon = float64(lonRaw) / 1e6
		adv.HasGPS = true
	}

	return adv, nil
}

func decodeGroupText(payload []byte, keyStore *KeyStore) (*GroupTextPayload, error) {
	if len(payload) < 1 {
		return nil, ErrInvalidLength
	}

	gt := &GroupTextPayload{
		ChannelHash: strings.ToUpper(hex.EncodeToString(payload[0:1])),
		Ciphertext:  payload[1:],
	}

	if keyStore == nil {
		return gt, nil
	}

	plain, err := keyStore.Open(gt.ChannelHash, gt.Ciphertext)
	if err != nil {
		// No key loaded for this channel is not a decode failure: the
		// frame is still usable (path, message hash), just without text.
		if err == keystore.ErrNoKey {
			return gt, nil
		}
		return nil, ErrDecryptFailed
	}

	sender, message, ok := splitSenderMessage(plain)
	if !ok {
		return nil, ErrDecryptFailed
	}

	gt.Decrypted = &DecryptedText{
		Sender:      sender,
		Message:     message,
		ChannelHash: gt.ChannelHash,
	}
	return gt, nil
}

// splitSenderMessage parses plaintext laid out as [senderLen byte][sender
// bytes][message bytes...].
func splitSenderMessage(plain []byte) (sender, message string, ok bool) {
	if len(plain) < 1 {
		return "", "", false
	}
	senderLen := int(plain[0])
	if 1+senderLen > len(plain) {
		return "", "", false
	}
	return string(plain[1 : 1+senderLen]), string(plain[1+senderLen:]), true
}
