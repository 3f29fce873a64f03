// Package token defines the token types for SQL expression parsing.
//
// The token set covers value expressions only: literals, dotted names,
// parameters, operators, casts and sub-query link keywords, plus the few
// clause keywords needed to read a correlated sub-select.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'
	PARAM  // $1

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	PERCENT  // %
	CARET    // ^
	DPIPE    // ||
	EQ       // =
	NE       // != or <>
	LT       // <
	GT       // >
	LE       // <=
	GE       // >=
	DCOLON   // ::
	DOT      // .
	COMMA    // ,
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Keywords (alphabetical)
	ALL
	AND
	ANY
	AS
	CAST
	EXISTS
	FALSE
	FROM
	IS
	ISNULL
	NOT
	NOTNULL
	NULL
	OR
	SELECT
	SOME
	TRUE
	WHERE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",
	PARAM:  "PARAM",

	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	PERCENT:  "%",
	CARET:    "^",
	DPIPE:    "||",
	EQ:       "=",
	NE:       "<>",
	LT:       "<",
	GT:       ">",
	LE:       "<=",
	GE:       ">=",
	DCOLON:   "::",
	DOT:      ".",
	COMMA:    ",",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",

	ALL:     "ALL",
	AND:     "AND",
	ANY:     "ANY",
	AS:      "AS",
	CAST:    "CAST",
	EXISTS:  "EXISTS",
	FALSE:   "FALSE",
	FROM:    "FROM",
	IS:      "IS",
	ISNULL:  "ISNULL",
	NOT:     "NOT",
	NOTNULL: "NOTNULL",
	NULL:    "NULL",
	OR:      "OR",
	SELECT:  "SELECT",
	SOME:    "SOME",
	TRUE:    "TRUE",
	WHERE:   "WHERE",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"all":     ALL,
	"and":     AND,
	"any":     ANY,
	"as":      AS,
	"cast":    CAST,
	"exists":  EXISTS,
	"false":   FALSE,
	"from":    FROM,
	"is":      IS,
	"isnull":  ISNULL,
	"not":     NOT,
	"notnull": NOTNULL,
	"null":    NULL,
	"or":      OR,
	"select":  SELECT,
	"some":    SOME,
	"true":    TRUE,
	"where":   WHERE,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= ALL && t <= WHERE
}

// IsOperator returns true if the token type is an operator.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RBRACKET
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}
