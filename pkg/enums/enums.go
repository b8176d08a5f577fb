// Package enums holds the string-backed states persisted by the marketplace.
// Every type round-trips through its database column unchanged.
package enums

import (
	"fmt"
	"slices"
)

type member interface{ ~string }

func known[T member](set []T, v T) bool {
	return slices.Contains(set, v)
}

func parse[T member](kind string, set []T, raw string) (T, error) {
	v := T(raw)
	if !known(set, v) {
		var zero T
		return zero, fmt.Errorf("invalid %s %q", kind, raw)
	}
	return v, nil
}
