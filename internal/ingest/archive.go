// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Archive is the on-disk ndjson durability log: one JSON object per line,
// append-only, stamped with archivedAt before every write (§4.4 step 1,
// §6 "On-disk archive"). A single *os.File is shared by all callers behind
// a mutex since ingest itself is single-writer.
type Archive struct {
	mu   sync.Mutex
	file *os.File
}

// OpenArchive opens (creating if necessary) the ndjson file at path for
// appending.
func OpenArchive(path string) (*Archive, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ingest: open archive: %w", err)
	}
	return &Archive{file: f}, nil
}

// Append writes r as one ndjson line. A report that already carries an
// ArchivedAt (a replay of a previously archived line) keeps it unchanged,
// since that timestamp is the authoritative heard-time; only a fresh report
// gets stamped with the current time. Returns the stamped copy so callers
// use the same timestamp for downstream reconciliation.
func (a *Archive) Append(r *Report) (*Report, error) {
	stamped := *r
	if stamped.ArchivedAt == "" {
		stamped.ArchivedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	line, err := json.Marshal(stamped)
	if err != nil {
		return nil, fmt.Errorf("ingest: marshal archive line: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.file.Write(line); err != nil {
		return nil, fmt.Errorf("ingest: append archive: %w", err)
	}
	return &stamped, nil
}

// Close closes the underlying file.
func (a *Archive) Close() error {
	return a.file.Close()
}
