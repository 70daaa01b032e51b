// Package enums holds the string enums persisted in postgres enum columns.
package enums

import (
	"fmt"
	"slices"
)

func isOneOf[T ~string](value T, allowed []T) bool {
	return slices.Contains(allowed, value)
}

func parseOneOf[T ~string](kind, raw string, allowed []T) (T, error) {
	if v := T(raw); slices.Contains(allowed, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
