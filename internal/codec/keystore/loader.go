// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package keystore

import (
	"os"
	"sync/atomic"
	"time"
)

// Loader watches a channel-keys file and exposes the most recently built
// Store. Reload is cheap to call repeatedly (e.g. from a scheduler task,
// §9 "periodic tasks"): it stats the file and only rebuilds when the mtime
// has changed.
type Loader struct {
	path    string
	current atomic.Pointer[Store]
	mtime   atomic.Int64
}

// NewLoader creates a Loader with an empty Store; call Reload once before
// using it to perform the initial load.
func NewLoader(path string) *Loader {
	l := &Loader{path: path}
	l.current.Store(Empty())
	return l
}

// Current returns the most recently loaded Store. Safe for concurrent use;
// never returns nil.
func (l *Loader) Current() *Store {
	return l.current.Load()
}

// Reload stats the channel-keys file and, if its mtime differs from the one
// seen at the last successful load, rebuilds the Store. Returns (false, nil) when no
// reload was necessary. A missing file is not an error: it leaves the
// current Store (possibly empty) unchanged.
func (l *Loader) Reload() (bool, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	mtime := info.ModTime().UnixNano()
	if mtime == l.mtime.Load() {
		return false, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	s, err := Build(f)
	if err != nil {
		return false, err
	}

	l.current.Store(s)
	l.mtime.Store(mtime)
	return true, nil
}

// PollInterval is the default cadence a scheduler should call Reload at.
const PollInterval = 30 * time.Second
