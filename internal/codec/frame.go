// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package codec

// PayloadType identifies the shape of a frame's payload, carried in the high
// nibble of the frame header byte.
type PayloadType byte

const (
	PayloadTypeUnknown   PayloadType = 0x0
	PayloadTypeAdvert    PayloadType = 0x1
	PayloadTypeGroupText PayloadType = 0x2

	payloadTypeShift = 4
	payloadTypeMask  = 0xF0
	routeTypeMask    = 0x0F
)

// RouteType is the frame's delivery mode, carried in the low nibble of the
// header byte. The codec passes it through unexamined; routing decisions
// are a concern of the ingest pipeline, not the codec.
type RouteType byte

// headerByte packs a PayloadType and RouteType into the wire header byte.
func headerByte(pt PayloadType, rt RouteType) byte {
	return (byte(pt) << payloadTypeShift) | (byte(rt) & routeTypeMask)
}

func splitHeader(h byte) (PayloadType, RouteType) {
	return PayloadType((h & payloadTypeMask) >> payloadTypeShift), RouteType(h & routeTypeMask)
}

// AdvertPayload is the decoded body of a PayloadTypeAdvert frame: a node's
// self-announcement. Each optional field (name, GPS) is absent, with its
// Has* flag false, when the advertising node did not include it.
type AdvertPayload struct {
	Pub       string
	Timestamp int64
	AppFlags  byte
	HasName   bool
	Name      string
	HasGPS    bool
	Lat       float64
	Lon       float64

	// legacy hint fields; Decode never sets them. The node registry honors
	// such hints only when an advert carries no flags (§4.2 rule 3).
	LegacyIsRepeater bool
	LegacyRoleHint   string
}

// DecryptedText is the plaintext recovered from a GroupTextPayload when a
// matching channel key was available.
type DecryptedText struct {
	Sender      string
	Message     string
	ChannelHash string
}

// GroupTextPayload is the decoded body of a PayloadTypeGroupText frame.
// Decrypted is nil when no matching channel key was loaded; this is not an
// error, per §4.1.
type GroupTextPayload struct {
	ChannelHash string
	Ciphertext  []byte
	Decrypted   *DecryptedText
}

// DecodedFrame is the tagged-union result of Decode. Exactly one of Advert
// or GroupText is non-nil, selected by PayloadType.
type DecodedFrame struct {
	PayloadType PayloadType
	RouteType   RouteType

	Path       []string // single-byte hex tokens, on-air order
	PathLength int

	MessageHash string // uppercase hex
	FrameHash   string // uppercase hex, sha256 of the full raw frame

	Advert    *AdvertPayload
	GroupText *GroupTextPayload
}
