// Package core defines the shared language of the binder.
//
// This package contains:
//   - Raw expression nodes produced by grammar reduction (Const, ColumnRef, Chain, ...)
//   - The type vocabulary (TypeTag, TypeMod, TypeInfo)
//   - The Catalog interface the binder queries for relations, fields, casts and signatures
//   - The closed set of binding errors (BindError, ErrorKind)
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
