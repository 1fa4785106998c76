// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"
)

func buildAdvertFrame(t *testing.T, pub [32]byte, ts uint32, flags byte, name string, lat, lon *float64, path []byte) string {
	t.Helper()

	payload := bytes.Buffer{}
	payload.Write(pub[:])
	var tsb [4]byte
	binary.LittleEndian.PutUint32(tsb[:], ts)
	payload.Write(tsb[:])
	payload.WriteByte(flags)
	payload.WriteByte(byte(len(name)))
	payload.WriteString(name)
	if lat != nil && lon != nil {
		var latb, lonb [4]byte
		binary.LittleEndian.PutUint32(latb[:], uint32(int32(*lat*1e6)))
		binary.LittleEndian.PutUint32(lonb[:], uint32(int32(*lon*1e6)))
		payload.Write(latb[:])
		payload.Write(lonb[:])
	}

	frame := bytes.Buffer{}
	frame.WriteByte(headerByte(PayloadTypeAdvert, 0))
	frame.WriteByte(byte(len(path)))
	frame.Write(path)
	frame.Write(payload.Bytes())

	return strings.ToUpper(hex.EncodeToString(frame.Bytes()))
}

func TestDecode_Advert_WithLocation(t *testing.T) {
	var pub [32]byte
	for i := range pub {
		pub[i] = byte(i)
	}
	lat, lon := 53.4, -2.2
	hexFrame := buildAdvertFrame(t, pub, 1_700_000_000, 0x92, "Heron Hill", &lat, &lon, nil)

	df, err := Decode(hexFrame, nil)
	require.NoError(t, err)
	require.Equal(t, PayloadTypeAdvert, df.PayloadType)
	require.NotNil(t, df.Advert)
	require.Equal(t, strings.ToUpper(hex.EncodeToString(pub[:])), df.Advert.Pub)
	require.Equal(t, byte(0x92), df.Advert.AppFlags)
	require.True(t, df.Advert.HasName)
	require.Equal(t, "Heron Hill", df.Advert.Name)
	require.True(t, df.Advert.HasGPS)
	require.InDelta(t, 53.4, df.Advert.Lat, 1e-4)
	require.InDelta(t, -2.2, df.Advert.Lon, 1e-4)
	require.Empty(t, df.Path)
}

func TestDecode_Advert_Minimal(t *testing.T) {
	var pub [32]byte
	hexFrame := buildAdvertFrame(t, pub, 1, 0x00, "", nil, nil, nil)

	df, err := Decode(hexFrame, nil)
	require.NoError(t, err)
	require.False(t, df.Advert.HasName)
	require.False(t, df.Advert.HasGPS)
}

func TestDecode_Advert_WithPath(t *testing.T) {
	var pub [32]byte
	hexFrame := buildAdvertFrame(t, pub, 1, 0x01, "Node", nil, nil, []byte{0x11, 0xA3})

	df, err := Decode(hexFrame, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"11", "A3"}, df.Path)
	require.Equal(t, 2, df.PathLength)
}

func TestDecode_InvalidHex(t *testing.T) {
	_, err := Decode("not-hex", nil)
	require.ErrorIs(t, err, ErrInvalidHex)
}

func TestDecode_TooShort(t *testing.T) {
	_, err := Decode("01", nil)
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecode_UnknownPayloadType(t *testing.T) {
	hexFrame := strings.ToUpper(hex.EncodeToString([]byte{headerByte(0x0F, 0), 0x00}))
	_, err := Decode(hexFrame, nil)
	require.ErrorIs(t, err, ErrUnknownPayloadType)
}

func buildGroupTextFrame(t *testing.T, channelHash byte, secret [chacha20poly1305.KeySize]byte, sender, message string) string {
	t.Helper()

	aead, err := chacha20poly1305.New(secret[:])
	require.NoError(t, err)

	nonce := make([]byte, aead.NonceSize())
	plain := append([]byte{byte(len(sender))}, []byte(sender)...)
	plain = append(plain, []byte(message)...)
	sealed := aead.Seal(nil, nonce, plain, nil)

	payload := append([]byte{channelHash}, append(nonce, sealed...)...)

	frame := bytes.Buffer{}
	frame.WriteByte(headerByte(PayloadTypeGroupText, 0))
	frame.WriteByte(0)
	frame.Write(payload)

	return strings.ToUpper(hex.EncodeToString(frame.Bytes()))
}

func TestDecode_GroupText_Decrypts(t *testing.T) {
	var secret [chacha20poly1305.KeySize]byte
	for i := range secret {
		secret[i] = byte(i + 1)
	}
	secretHex := hex.EncodeToString(secret[:])

	ks, err := BuildKeyStore(strings.NewReader(`{"channels":[{"hashByte":"3f","name":"#general","secretHex":"` + secretHex + `"}]}`))
	require.NoError(t, err)

	hexFrame := buildGroupTextFrame(t, 0x3f, secret, "alice", "hello mesh")

	df, err := Decode(hexFrame, ks)
	require.NoError(t, err)
	require.NotNil(t, df.GroupText)
	require.NotNil(t, df.GroupText.Decrypted)
	require.Equal(t, "alice", df.GroupText.Decrypted.Sender)
	require.Equal(t, "hello mesh", df.GroupText.Decrypted.Message)
}

func TestDecode_GroupText_NoKeyIsNotAnError(t *testing.T) {
	var secret [chacha20poly1305.KeySize]byte
	hexFrame := buildGroupTextFrame(t, 0x3f, secret, "alice", "hello")

	df, err := Decode(hexFrame, nil)
	require.NoError(t, err)
	require.Nil(t, df.GroupText.Decrypted)
}

func TestDecode_GroupText_SameCiphertextSameMessageHash(t *testing.T) {
	var secret [chacha20poly1305.KeySize]byte
	frameA := buildGroupTextFrame(t, 0x3f, secret, "alice", "hi")

	dfA, err := Decode(frameA, nil)
	require.NoError(t, err)

	// A second observer relaying the same message accrues an extra path
	// hop but the ciphertext (and therefore message_hash) is identical.
	raw, err := hex.DecodeString(frameA)
	require.NoError(t, err)
	withHop := append([]byte{raw[0], 1, 0xAB}, raw[2:]...)
	frameB := strings.ToUpper(hex.EncodeToString(withHop))

	dfB, err := Decode(frameB, nil)
	require.NoError(t, err)

	require.Equal(t, dfA.MessageHash, dfB.MessageHash)
	require.NotEqual(t, dfA.FrameHash, dfB.FrameHash)
}
