package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/token"
)

// Primary expression parsing: literals, names, function calls, casts and
// parenthesized expressions.
//
// Grammar:
//
//	primary       → literal | PARAM | name_chain | func_call | cast_expr
//	              | exists_expr | paren_expr
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	name_chain    → IDENT {"." IDENT}
//	func_call     → IDENT "(" ["*" | expr {"," expr}] ")"
//	cast_expr     → CAST "(" expr AS type_name ")"
//	exists_expr   → EXISTS "(" select ")"
//	paren_expr    → "(" select ")" | "(" expr ")" {"." IDENT}
//	type_name     → IDENT {IDENT} ["(" NUMBER {"," NUMBER} ")"]

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() core.RawExpr {
	tok := p.token

	switch tok.Type {
	case token.NUMBER:
		p.nextToken()
		kind := core.LiteralInteger
		if strings.ContainsAny(tok.Literal, ".eE") {
			kind = core.LiteralFloat
		}
		return &core.Const{Kind: kind, Value: tok.Literal, Loc: tok.Pos}

	case token.STRING:
		p.nextToken()
		return &core.Const{Kind: core.LiteralString, Value: tok.Literal, Loc: tok.Pos}

	case token.TRUE:
		p.nextToken()
		return &core.Const{Kind: core.LiteralBool, Value: "true", Loc: tok.Pos}

	case token.FALSE:
		p.nextToken()
		return &core.Const{Kind: core.LiteralBool, Value: "false", Loc: tok.Pos}

	case token.NULL:
		p.nextToken()
		return &core.Const{Kind: core.LiteralNull, Loc: tok.Pos}

	case token.PARAM:
		n, err := strconv.Atoi(tok.Literal)
		if err != nil || n < 1 {
			p.addError(fmt.Sprintf(ErrInvalidParam, tok.Literal))
			return nil
		}
		p.nextToken()
		return &core.ParamRef{Number: n, Loc: tok.Pos}

	case token.CAST:
		return p.parseCastExpr()

	case token.EXISTS:
		p.nextToken()
		if !p.check(token.LPAREN) || !p.checkPeek(token.SELECT) {
			p.addError(fmt.Sprintf(ErrSubqueryExpected, token.EXISTS))
			return nil
		}
		sel := p.parseParenSelect()
		if sel == nil {
			return nil
		}
		return &core.SubLink{Kind: core.SubLinkExists, Subselect: sel, Loc: tok.Pos}

	case token.IDENT:
		return p.parseIdentifierExpr()

	case token.LPAREN:
		return p.parseParenExpr()

	case token.ILLEGAL:
		// The lexer has already recorded why.
		p.nextToken()
		return nil

	default:
		p.addError(fmt.Sprintf(ErrUnexpectedInExpr, describe(tok)))
		return nil
	}
}

// parseIdentifierExpr parses a name chain or a function call.
func (p *Parser) parseIdentifierExpr() core.RawExpr {
	pos := p.token.Pos
	segments := []string{p.token.Literal}
	p.nextToken()

	for p.check(token.DOT) {
		p.nextToken()
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
			return nil
		}
		segments = append(segments, p.token.Literal)
		p.nextToken()
	}

	if p.check(token.LPAREN) {
		if len(segments) > 1 {
			p.addError(fmt.Sprintf(ErrQualifiedFunction, strings.Join(segments, ".")))
			return nil
		}
		return p.parseFuncCall(segments[0], pos)
	}

	if len(segments) == 1 {
		return &core.ColumnRef{Name: segments[0], Loc: pos}
	}
	return &core.Chain{Segments: segments, Loc: pos}
}

// parseFuncCall parses a function call.
func (p *Parser) parseFuncCall(name string, pos token.Position) core.RawExpr {
	fn := &core.FuncCall{Name: name, Loc: pos}

	p.expect(token.LPAREN)

	if p.check(token.STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(token.RPAREN) {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			fn.Args = append(fn.Args, arg)

			if !p.match(token.COMMA) {
				break
			}
		}
	}

	if !p.expect(token.RPAREN) {
		return nil
	}
	return fn
}

// parseCastExpr parses CAST(expr AS type).
func (p *Parser) parseCastExpr() core.RawExpr {
	pos := p.token.Pos
	p.nextToken() // consume CAST

	if !p.expect(token.LPAREN) {
		return nil
	}
	arg := p.parseExpression()
	if arg == nil {
		return nil
	}
	if !p.expect(token.AS) {
		return nil
	}
	tn := p.parseTypeName()
	if tn == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &core.TypeCast{Arg: arg, Type: tn, Loc: pos}
}

// parseParenExpr parses a parenthesized expression, a scalar sub-select, or
// a field selection applied to a parenthesized expression.
func (p *Parser) parseParenExpr() core.RawExpr {
	pos := p.token.Pos

	if p.checkPeek(token.SELECT) {
		sel := p.parseParenSelect()
		if sel == nil {
			return nil
		}
		return &core.SubLink{Kind: core.SubLinkExpr, Subselect: sel, Loc: pos}
	}

	p.nextToken() // consume (
	inner := p.parseExpression()
	if inner == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}

	if !p.check(token.DOT) {
		return inner
	}

	access := &core.FieldAccess{Arg: inner, Loc: pos}
	for p.match(token.DOT) {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
			return nil
		}
		access.Fields = append(access.Fields, p.token.Literal)
		p.nextToken()
	}
	return access
}

// multiWordTypes lists the type names spelled with more than one word.
var multiWordTypes = []string{
	"double precision",
	"character varying",
	"timestamp without time zone",
	"timestamp with time zone",
	"time without time zone",
	"time with time zone",
}

// parseTypeName parses a type reference such as numeric(12,2) or
// character varying(10). Words are joined with single spaces and
// catalog lookup takes care of aliases.
func (p *Parser) parseTypeName() *core.TypeName {
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "type name"))
		return nil
	}
	name := p.token.Literal
	p.nextToken()

	for p.check(token.IDENT) && continuesTypeName(name, p.token.Literal) {
		name += " " + p.token.Literal
		p.nextToken()
	}

	tn := &core.TypeName{Name: name}
	if !p.match(token.LPAREN) {
		return tn
	}
	for {
		if !p.check(token.NUMBER) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "type modifier"))
			return nil
		}
		n, err := strconv.Atoi(p.token.Literal)
		if err != nil {
			p.addError(fmt.Sprintf(ErrInvalidNumber, p.token.Literal))
			return nil
		}
		tn.Mods = append(tn.Mods, n)
		p.nextToken()
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return tn
}

func continuesTypeName(prefix, word string) bool {
	candidate := strings.ToLower(prefix + " " + word)
	for _, m := range multiWordTypes {
		if m == candidate || strings.HasPrefix(m, candidate+" ") {
			return true
		}
	}
	return false
}
