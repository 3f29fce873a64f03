package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/core"
	"github.com/leapstack-labs/leapbind/pkg/token"
)

// Sub-select parsing. Only the shape needed to bind correlated sub-queries
// is understood: a target list, plain relations in FROM, and WHERE.
//
// Grammar:
//
//	select     → SELECT target {"," target} [FROM from_item {"," from_item}] [WHERE expr]
//	target     → expr [[AS] IDENT]
//	from_item  → IDENT {"." IDENT} [[AS] IDENT]

// Select is a parsed sub-select. It is what SubLink.Subselect holds for
// expressions produced by this package.
type Select struct {
	Targets []Target
	From    []FromItem
	Where   core.RawExpr
	Loc     token.Position
}

// Target is one entry of a select list.
type Target struct {
	Expr  core.RawExpr
	Alias string
}

// FromItem is a relation in the FROM list.
type FromItem struct {
	Relation string // possibly schema-qualified: "sales.orders"
	Alias    string
	Loc      token.Position
}

// parseParenSelect parses "(" select ")".
func (p *Parser) parseParenSelect() *Select {
	if !p.expect(token.LPAREN) {
		return nil
	}
	sel := p.parseSelect()
	if sel == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return sel
}

// parseSelect parses the select body starting at SELECT.
func (p *Parser) parseSelect() *Select {
	sel := &Select{Loc: p.token.Pos}
	if !p.expect(token.SELECT) {
		return nil
	}

	for {
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		t := Target{Expr: expr}
		if p.match(token.AS) {
			if !p.check(token.IDENT) {
				p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
				return nil
			}
			t.Alias = p.token.Literal
			p.nextToken()
		} else if p.check(token.IDENT) {
			t.Alias = p.token.Literal
			p.nextToken()
		}
		sel.Targets = append(sel.Targets, t)
		if !p.match(token.COMMA) {
			break
		}
	}

	if p.match(token.FROM) {
		for {
			item, ok := p.parseFromItem()
			if !ok {
				return nil
			}
			sel.From = append(sel.From, item)
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	if p.match(token.WHERE) {
		sel.Where = p.parseExpression()
		if sel.Where == nil {
			return nil
		}
	}

	return sel
}

func (p *Parser) parseFromItem() (FromItem, bool) {
	item := FromItem{Loc: p.token.Pos}
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "relation name"))
		return item, false
	}
	parts := []string{p.token.Literal}
	p.nextToken()
	for p.match(token.DOT) {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
			return item, false
		}
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}
	item.Relation = strings.Join(parts, ".")

	if p.match(token.AS) {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
			return item, false
		}
		item.Alias = p.token.Literal
		p.nextToken()
	} else if p.check(token.IDENT) {
		item.Alias = p.token.Literal
		p.nextToken()
	}
	return item, true
}
