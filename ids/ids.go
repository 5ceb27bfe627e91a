// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids defines the identifier types shared across the substrate:
// units, signals, gradients, and consensus proposals are all addressed by
// a 128-bit UUID wrapped in a comparable, sortable value type.
package ids

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ID is an opaque 128-bit identifier, globally unique for the lifetime of
// the entity it names. The zero value is the empty ID, never returned by
// GenerateID.
type ID uuid.UUID

// Empty is the zero-value ID.
var Empty = ID{}

// GenerateID returns a new random ID.
func GenerateID() ID {
	return ID(uuid.New())
}

// FromString parses the canonical UUID text form into an ID.
func FromString(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Empty, err
	}
	return ID(u), nil
}

// String returns the canonical text form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Compare orders IDs byte-lexicographically, giving a total order usable
// as a tie-break (e.g. self-healing compensator choice, Dijkstra path
// tie-break by node id sequence).
func (id ID) Compare(o ID) int {
	for i := range id {
		if id[i] != o[i] {
			if id[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsEmpty reports whether id is the zero value.
func (id ID) IsEmpty() bool {
	return id == Empty
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*id = Empty
		return nil
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UnitID names a cognitive unit. It is distinct from ID only at the type
// level, so a UnitID can never be silently substituted for a SignalID.
type UnitID ID

func (u UnitID) String() string       { return ID(u).String() }
func (u UnitID) Compare(o UnitID) int { return ID(u).Compare(ID(o)) }
func (u UnitID) IsEmpty() bool        { return ID(u).IsEmpty() }

// GenerateUnitID returns a new random UnitID.
func GenerateUnitID() UnitID { return UnitID(GenerateID()) }

// EmptyUnitID is the zero-value UnitID.
var EmptyUnitID = UnitID(Empty)
