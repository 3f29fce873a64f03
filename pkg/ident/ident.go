// Package ident normalizes SQL identifiers for lookup.
//
// Unquoted identifiers are compared case-insensitively by default using
// Unicode case folding, so "Orders", "ORDERS" and "orders" name the same
// relation. A case-sensitive normalizer compares names byte for byte.
package ident

import "golang.org/x/text/cases"

// Normalizer folds identifiers into their lookup key.
// The zero value folds case.
type Normalizer struct {
	CaseSensitive bool
}

// Default is the case-insensitive normalizer.
var Default = Normalizer{}

// Normalize returns the lookup key for name.
func (n Normalizer) Normalize(name string) string {
	if n.CaseSensitive {
		return name
	}
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(name)
}

// Equal reports whether two identifiers name the same object.
func (n Normalizer) Equal(a, b string) bool {
	if a == b {
		return true
	}
	return n.Normalize(a) == n.Normalize(b)
}
