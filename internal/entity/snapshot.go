package entity

import (
	"bytes"
	"encoding/json"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is the unit of autosave comparison: the persistable part of
// the editor state. Two snapshots are equal iff their canonical JSON
// serializations are byte-identical.
type Snapshot struct {
	Title    string   `json:"title"`
	Blocks   []Block  `json:"blocks"`
	Theme    Theme    `json:"theme"`
	Settings Settings `json:"settings"`
}

// Canonical returns the stable JSON form of the snapshot. Map-valued
// attrs serialize with sorted keys, so identical state always yields
// identical bytes.
func (s Snapshot) Canonical() ([]byte, error) {
	return json.Marshal(s)
}

// Digest returns an xxhash of the canonical bytes, used as a cheap
// first-pass inequality check before comparing bytes.
func (s Snapshot) Digest() (uint64, error) {
	raw, err := s.Canonical()
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(raw), nil
}

// Equal compares two snapshots by canonical serialization.
func (s Snapshot) Equal(other Snapshot) bool {
	a, err := s.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Clone deep-copies the snapshot so later editor mutations cannot leak
// into a baseline held by the autosave pipeline.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Blocks = make([]Block, len(s.Blocks))
	for i := range s.Blocks {
		out.Blocks[i] = s.Blocks[i].Clone()
	}
	if s.Settings.MaxResponses != nil {
		n := *s.Settings.MaxResponses
		out.Settings.MaxResponses = &n
	}
	if s.Settings.ExpiresAt != nil {
		t := *s.Settings.ExpiresAt
		out.Settings.ExpiresAt = &t
	}
	return out
}
