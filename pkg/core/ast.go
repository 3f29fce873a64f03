package core

import "github.com/leapstack-labs/leapbind/pkg/token"

// Node is the base interface for raw and bound expression nodes.
// Both trees report the source position they were produced from so that
// errors raised against a bound node can still point at the input.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
}

// RawExpr is a marker interface for untyped, scope-free expression nodes
// produced by grammar reduction. Raw nodes are immutable once produced.
type RawExpr interface {
	Node
	rawExpr() // Marker method to distinguish raw expressions
}
