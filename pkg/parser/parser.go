// Package parser turns SQL value expressions into raw expression trees.
//
// # Usage
//
//	expr, err := parser.ParseExpr("cust.address.city = 'Oslo'")
//	if err != nil {
//	    // handle error
//	}
//
// The parser does not resolve names. A dotted name such as a.b.c is kept
// as a core.Chain and disambiguated by the binder once the scope is known.
//
// # Grammar Overview
//
//	expr          → or_expr
//	or_expr       → and_expr {OR and_expr}
//	and_expr      → not_expr {AND not_expr}
//	not_expr      → NOT not_expr | is_expr
//	is_expr       → cmp_expr [IS [NOT] NULL | ISNULL | NOTNULL]
//	cmp_expr      → concat_expr [cmp_op (concat_expr | (ANY|SOME|ALL) "(" select ")")]
//	concat_expr   → add_expr {"||" add_expr}
//	add_expr      → mul_expr {("+"|"-") mul_expr}
//	mul_expr      → exp_expr {("*"|"/"|"%") exp_expr}
//	exp_expr      → unary_expr {"^" unary_expr}
//	unary_expr    → ("-"|"+") unary_expr | cast_expr
//	cast_expr     → primary {"::" type_name}
//
// A sub-select is the small SELECT understood by ParseSelect:
//
//	select        → SELECT target {"," target} [FROM from_item {"," from_item}] [WHERE expr]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/token"
)

// Parser parses SQL expressions into raw trees.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	peek2  token.Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// ParseExpr parses a single value expression. The whole input must be
// consumed.
func ParseExpr(input string) (core.RawExpr, error) {
	p := NewParser(input)
	expr := p.parseExpression()
	p.expectEOF()
	if err := p.firstError(); err != nil {
		return nil, err
	}
	return expr, nil
}

// ParseSelect parses a sub-select such as the body of an EXISTS.
func ParseSelect(input string) (*Select, error) {
	p := NewParser(input)
	sel := p.parseSelect()
	p.expectEOF()
	if err := p.firstError(); err != nil {
		return nil, err
	}
	return sel, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
	return false
}

func (p *Parser) expectEOF() {
	if !p.check(token.EOF) && len(p.errors) == 0 {
		p.addError(fmt.Sprintf(ErrTrailingInput, describe(p.token)))
	}
}

// addError adds a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// firstError returns the earliest error in the input. Lexer errors win
// over parse errors at or after their position, since the parse error is
// usually a consequence of the bad token.
func (p *Parser) firstError() error {
	var lexErr *LexError
	if len(p.lexer.Errors) > 0 {
		lexErr = p.lexer.Errors[0]
	}
	if len(p.errors) == 0 {
		if lexErr != nil {
			return lexErr
		}
		return nil
	}
	first := p.errors[0]
	if lexErr != nil {
		if pe, ok := first.(*ParseError); ok && lexErr.Pos.Offset <= pe.Pos.Offset {
			return lexErr
		}
	}
	return first
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.IDENT, token.NUMBER:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	case token.STRING:
		return fmt.Sprintf("STRING '%s'", tok.Literal)
	default:
		return tok.Type.String()
	}
}
