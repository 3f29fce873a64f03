package parser

import (
	"fmt"

	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/token"
)

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels, loosest first:
//
//	precedenceOr         = 1
//	precedenceAnd        = 2
//	precedenceNot        = 3
//	precedenceIs         = 4  (IS [NOT] NULL, ISNULL, NOTNULL)
//	precedenceComparison = 5  (=, <>, <, >, <=, >=)
//	precedenceConcat     = 6  (||)
//	precedenceAddition   = 7  (+, -)
//	precedenceMultiply   = 8  (*, /, %)
//	precedenceExponent   = 9  (^)
//	precedenceUnary      = 10 (-, +)
//	precedencePostfix    = 11 (::)
const (
	precedenceNone = iota
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceIs
	precedenceComparison
	precedenceConcat
	precedenceAddition
	precedenceMultiply
	precedenceExponent
	precedenceUnary
	precedencePostfix
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() core.RawExpr {
	return p.parseExpressionWithPrecedence(precedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) core.RawExpr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := infixPrecedence(p.token.Type)
		if prec == precedenceNone || prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix operators and primary expressions.
func (p *Parser) parsePrefixExpr() core.RawExpr {
	switch p.token.Type {
	case token.NOT:
		pos := p.token.Pos
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(precedenceNot)
		if operand == nil {
			return nil
		}
		return &core.AExpr{Kind: core.ExprNot, Right: operand, Loc: pos}

	case token.MINUS, token.PLUS:
		op := p.token
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(precedenceUnary)
		if operand == nil {
			return nil
		}
		return &core.AExpr{Kind: core.ExprOp, Op: op.Type.String(), Right: operand, Loc: op.Pos}

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of t as an infix or postfix
// operator, or precedenceNone if it is neither.
func infixPrecedence(t token.TokenType) int {
	switch t {
	case token.OR:
		return precedenceOr
	case token.AND:
		return precedenceAnd
	case token.IS, token.ISNULL, token.NOTNULL:
		return precedenceIs
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return precedenceComparison
	case token.DPIPE:
		return precedenceConcat
	case token.PLUS, token.MINUS:
		return precedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precedenceMultiply
	case token.CARET:
		return precedenceExponent
	case token.DCOLON:
		return precedencePostfix
	default:
		return precedenceNone
	}
}

// parseInfixExpr parses an infix or postfix expression given the left operand.
func (p *Parser) parseInfixExpr(left core.RawExpr, prec int) core.RawExpr {
	op := p.token

	switch op.Type {
	case token.IS:
		return p.parseIsExpr(left)

	case token.ISNULL:
		p.nextToken()
		return &core.AExpr{Kind: core.ExprIsNull, Left: left, Loc: op.Pos}

	case token.NOTNULL:
		p.nextToken()
		return &core.AExpr{Kind: core.ExprNotNull, Left: left, Loc: op.Pos}

	case token.DCOLON:
		p.nextToken()
		tn := p.parseTypeName()
		if tn == nil {
			return nil
		}
		return &core.TypeCast{Arg: left, Type: tn, Loc: op.Pos}

	case token.AND, token.OR:
		p.nextToken()
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			return nil
		}
		kind := core.ExprAnd
		if op.Type == token.OR {
			kind = core.ExprOr
		}
		return &core.AExpr{Kind: kind, Left: left, Right: right, Loc: op.Pos}
	}

	p.nextToken()

	if prec == precedenceComparison {
		switch p.token.Type {
		case token.ANY, token.SOME, token.ALL:
			return p.parseQuantifiedExpr(left, op)
		}
	}

	// Parse right operand with higher precedence (left-associative)
	right := p.parseExpressionWithPrecedence(prec + 1)
	if right == nil {
		return nil
	}
	return &core.AExpr{Kind: core.ExprOp, Op: op.Type.String(), Left: left, Right: right, Loc: op.Pos}
}

// parseIsExpr parses IS [NOT] NULL.
func (p *Parser) parseIsExpr(left core.RawExpr) core.RawExpr {
	pos := p.token.Pos
	p.nextToken() // consume IS

	kind := core.ExprIsNull
	if p.match(token.NOT) {
		kind = core.ExprNotNull
	}
	if !p.expect(token.NULL) {
		return nil
	}
	return &core.AExpr{Kind: kind, Left: left, Loc: pos}
}

// parseQuantifiedExpr parses the right side of x op ANY|SOME|ALL (SELECT ...).
//
//	quantified → (ANY|SOME|ALL) "(" select ")"
func (p *Parser) parseQuantifiedExpr(left core.RawExpr, op token.Token) core.RawExpr {
	kind := core.SubLinkAny
	if p.token.Type == token.ALL {
		kind = core.SubLinkAll
	}
	quantifier := p.token.Type
	p.nextToken()

	if !p.check(token.LPAREN) || !p.checkPeek(token.SELECT) {
		p.addError(fmt.Sprintf(ErrSubqueryExpected, quantifier))
		return nil
	}
	sel := p.parseParenSelect()
	if sel == nil {
		return nil
	}
	return &core.SubLink{Kind: kind, Test: left, Op: op.Type.String(), Subselect: sel, Loc: op.Pos}
}
