package parser

import (
	"fmt"

	"github.com/leapstack-labs/leapbind/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken    = "unexpected token %s, expected %s"
	ErrUnexpectedInExpr   = "unexpected token in expression: %s"
	ErrUnexpectedChar     = "unexpected character"
	ErrUnterminatedString = "unterminated string literal"
	ErrUnterminatedIdent  = "unterminated quoted identifier"
	ErrEmptyIdent         = "zero-length quoted identifier"
	ErrInvalidNumber      = "invalid number literal %q"
	ErrInvalidParam       = "invalid parameter reference $%s"
	ErrTrailingInput      = "unexpected %s after end of expression"
	ErrQualifiedFunction  = "qualified function name %q is not supported"
	ErrSubqueryExpected   = "%s requires a parenthesized SELECT"
)
