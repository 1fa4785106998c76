// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package keystore

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"
)

func validSecretHex() string {
	var k [chacha20poly1305.KeySize]byte
	for i := range k {
		k[i] = byte(i)
	}
	return hex.EncodeToString(k[:])
}

func TestBuild_SkipsInvalidSecrets(t *testing.T) {
	doc := `{"channels":[
		{"hashByte":"3f","name":"#general","secretHex":"` + validSecretHex() + `"},
		{"hashByte":"01","name":"#bad","secretHex":"deadbeef"}
	]}`
	s, err := Build(strings.NewReader(doc))
	require.NoError(t, err)

	name, ok := s.Name("3f")
	require.True(t, ok)
	require.Equal(t, "#general", name)

	_, ok = s.Name("01")
	require.False(t, ok)
}

func TestOpen_NoKey(t *testing.T) {
	s := Empty()
	_, err := s.Open("3f", []byte("whatever"))
	require.ErrorIs(t, err, ErrNoKey)
}

func TestLoader_ReloadsOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "channel-keys.json")

	doc1 := `{"channels":[{"hashByte":"3f","name":"#one","secretHex":"` + validSecretHex() + `"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc1), 0o600))

	l := NewLoader(path)
	changed, err := l.Reload()
	require.NoError(t, err)
	require.True(t, changed)

	name, ok := l.Current().Name("3f")
	require.True(t, ok)
	require.Equal(t, "#one", name)

	changed, err = l.Reload()
	require.NoError(t, err)
	require.False(t, changed)

	// Force a distinct mtime.
	future := time.Now().Add(time.Minute)
	doc2 := `{"channels":[{"hashByte":"3f","name":"#two","secretHex":"` + validSecretHex() + `"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc2), 0o600))
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err = l.Reload()
	require.NoError(t, err)
	require.True(t, changed)

	name, ok = l.Current().Name("3f")
	require.True(t, ok)
	require.Equal(t, "#two", name)
}

func TestLoader_MissingFileIsNotAnError(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.json"))
	changed, err := l.Reload()
	require.NoError(t, err)
	require.False(t, changed)
}
