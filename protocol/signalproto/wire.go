// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package signalproto

import (
	"time"

	"github.com/corticalmesh/substrate/ids"
)

var emptyUnitID = ids.EmptyUnitID

func parseID(s string) (ids.ID, error) {
	if s == "" {
		return ids.Empty, nil
	}
	return ids.FromString(s)
}

func parseUnitID(s string) (ids.UnitID, error) {
	id, err := parseID(s)
	if err != nil {
		return ids.EmptyUnitID, err
	}
	return ids.UnitID(id), nil
}

func unixNano(n int64) time.Time {
	return time.Unix(0, n)
}
