// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshrank/meshrank/internal/model"
)

type memStore struct {
	nodes     map[string]model.Node
	rejected  []model.RejectedAdvert
	failNext  bool
}

func newMemStore() *memStore {
	return &memStore{nodes: map[string]model.Node{}}
}

func (s *memStore) GetNode(ctx context.Context, pub string) (*model.Node, bool, error) {
	n, ok := s.nodes[pub]
	if !ok {
		return nil, false, nil
	}
	return &n, true, nil
}

func (s *memStore) UpsertNode(ctx context.Context, n *model.Node) error {
	s.nodes[n.Pub] = *n
	return nil
}

func (s *memStore) InsertRejectedAdvert(ctx context.Context, r *model.RejectedAdvert) error {
	s.rejected = append(s.rejected, *r)
	return nil
}

func validPub() string { return strings.Repeat("ab", 32) }

func TestIngestAdvert_Accepts(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{
		Pub:      validPub(),
		HeardMs:  1000,
		HasFlags: true,
		Flags:    0x92, // low nibble 0x2 -> repeater
		HasName:  true,
		Name:     "Heron Hill",
		HasGPS:   true,
		Lat:      53.4,
		Lon:      -2.2,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted)
	require.True(t, out.Changed)

	node := store.nodes[strings.ToUpper(validPub())]
	require.Equal(t, model.RoleRepeater, node.Role)
	require.True(t, node.IsRepeater)
	require.Equal(t, "Heron Hill", node.Name)
	require.True(t, node.HasGPS)
	require.InDelta(t, 53.4, node.Lat, 1e-9)
	require.Equal(t, int64(1000), node.LastAdvertHeardMs)
}

func TestIngestAdvert_DuplicateIsNoOp(t *testing.T) {
	store := newMemStore()
	reg := New(store)
	in := AdvertInput{
		Pub: validPub(), HeardMs: 1000, HasFlags: true, Flags: 0x01,
		HasName: true, Name: "Node", HasGPS: true, Lat: 53.4, Lon: -2.2,
	}

	_, err := reg.IngestAdvert(context.Background(), in)
	require.NoError(t, err)

	out2, err := reg.IngestAdvert(context.Background(), in)
	require.NoError(t, err)
	require.False(t, out2.Changed)
	require.Empty(t, store.rejected)
}

func TestIngestAdvert_InvalidPub(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{Pub: "not-hex", HasFlags: true, Flags: 1})
	require.NoError(t, err)
	require.True(t, out.Rejected)
	require.Equal(t, ReasonInvalidPub, out.Reason)
	require.Len(t, store.rejected, 1)
}

func TestIngestAdvert_MissingStructure(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{Pub: validPub()})
	require.NoError(t, err)
	require.True(t, out.Rejected)
	require.Equal(t, ReasonMissingStructure, out.Reason)
}

func TestIngestAdvert_NameTooManyControlChars(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{
		Pub: validPub(), HasFlags: true, Flags: 1,
		HasName: true, Name: "a\x01\x02",
	})
	require.NoError(t, err)
	require.True(t, out.Rejected)
	require.Equal(t, ReasonNameControlChars, out.Reason)
}

func TestIngestAdvert_NameTruncatedAt32(t *testing.T) {
	store := newMemStore()
	reg := New(store)
	name := strings.Repeat("x", 33)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{
		Pub: validPub(), HasFlags: true, Flags: 1, HasName: true, Name: name,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted)

	node := store.nodes[strings.ToUpper(validPub())]
	require.Len(t, []rune(node.Name), 32)
}

func TestIngestAdvert_NameFailureDoesNotWipeExisting(t *testing.T) {
	store := newMemStore()
	reg := New(store)
	ctx := context.Background()

	_, err := reg.IngestAdvert(ctx, AdvertInput{
		Pub: validPub(), HasFlags: true, Flags: 1, HasName: true, Name: "Good Name", HeardMs: 1,
	})
	require.NoError(t, err)

	out, err := reg.IngestAdvert(ctx, AdvertInput{
		Pub: validPub(), HasFlags: true, Flags: 1, HasName: true, Name: "\x01\x02\x03", HeardMs: 2,
	})
	require.NoError(t, err)
	require.True(t, out.Rejected)

	node := store.nodes[strings.ToUpper(validPub())]
	require.Equal(t, "Good Name", node.Name)
}

func TestIngestAdvert_GPSZeroPointRejected(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{
		Pub: validPub(), HasFlags: true, Flags: 1, HasGPS: true, Lat: 0, Lon: 0,
	})
	require.NoError(t, err)
	require.True(t, out.Rejected)
	require.Equal(t, ReasonGPSZeroPoint, out.Reason)
}

func TestIngestAdvert_GPSBoundaryAccepted(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{
		Pub: validPub(), HasFlags: true, Flags: 1, HasGPS: true, Lat: 90.0, Lon: 180.0,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted)
}

func TestIngestAdvert_GPSOutOfRangeRejected(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{
		Pub: validPub(), HasFlags: true, Flags: 1, HasGPS: true, Lat: 90.0001, Lon: 0,
	})
	require.NoError(t, err)
	require.True(t, out.Rejected)
	require.Equal(t, ReasonGPSOutOfRange, out.Reason)
}

func TestIngestAdvert_FreshnessMonotonic(t *testing.T) {
	store := newMemStore()
	reg := New(store)
	ctx := context.Background()

	_, err := reg.IngestAdvert(ctx, AdvertInput{Pub: validPub(), HasFlags: true, Flags: 1, HeardMs: 5000})
	require.NoError(t, err)

	_, err = reg.IngestAdvert(ctx, AdvertInput{Pub: validPub(), HasFlags: true, Flags: 1, HeardMs: 1000})
	require.NoError(t, err)

	node := store.nodes[strings.ToUpper(validPub())]
	require.Equal(t, int64(5000), node.LastAdvertHeardMs)
}

func TestIngestAdvert_LegacyRepeaterHintHonoredOnlyWithoutFlags(t *testing.T) {
	store := newMemStore()
	reg := New(store)

	out, err := reg.IngestAdvert(context.Background(), AdvertInput{
		Pub: validPub(), HasGPS: true, Lat: 1, Lon: 1, LegacyIsRepeater: true,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted)

	node := store.nodes[strings.ToUpper(validPub())]
	require.Equal(t, model.RoleRepeater, node.Role)
	require.True(t, node.IsRepeater)
}
