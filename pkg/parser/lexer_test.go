package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/pkg/parser"
	"github.com/leapstack-labs/leapbind/pkg/token"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		types    []token.TokenType
		literals []string
	}{
		{
			name:     "operators",
			input:    "a<=b <> c != d || e::int4",
			types:    []token.TokenType{token.IDENT, token.LE, token.IDENT, token.NE, token.IDENT, token.NE, token.IDENT, token.DPIPE, token.IDENT, token.DCOLON, token.IDENT, token.EOF},
			literals: []string{"a", "<=", "b", "<>", "c", "!=", "d", "||", "e", "::", "int4", ""},
		},
		{
			name:     "numbers",
			input:    "42 3.14 1e10 .5 2E-3",
			types:    []token.TokenType{token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER, token.EOF},
			literals: []string{"42", "3.14", "1e10", ".5", "2E-3", ""},
		},
		{
			name:     "strings and quoted identifiers",
			input:    `'it''s' "Mixed ""Case"""`,
			types:    []token.TokenType{token.STRING, token.IDENT, token.EOF},
			literals: []string{"it's", `Mixed "Case"`, ""},
		},
		{
			name:     "keywords are case insensitive",
			input:    "Select x FROM t where NOT y IsNull",
			types:    []token.TokenType{token.SELECT, token.IDENT, token.FROM, token.IDENT, token.WHERE, token.NOT, token.IDENT, token.ISNULL, token.EOF},
			literals: []string{"Select", "x", "FROM", "t", "where", "NOT", "y", "IsNull", ""},
		},
		{
			name:     "parameters",
			input:    "$1 + $12",
			types:    []token.TokenType{token.PARAM, token.PLUS, token.PARAM, token.EOF},
			literals: []string{"1", "+", "12", ""},
		},
		{
			name:     "comments are skipped",
			input:    "a -- trailing\n + /* block */ b",
			types:    []token.TokenType{token.IDENT, token.PLUS, token.IDENT, token.EOF},
			literals: []string{"a", "+", "b", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := parser.Tokenize(tt.input)
			require.Len(t, tokens, len(tt.types))
			for i, tok := range tokens {
				assert.Equal(t, tt.types[i], tok.Type, "token %d", i)
				assert.Equal(t, tt.literals[i], tok.Literal, "token %d", i)
			}
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	tokens := parser.Tokenize("a\n  + b")
	require.Len(t, tokens, 4)
	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, tokens[0].Pos)
	assert.Equal(t, token.Position{Line: 2, Column: 3, Offset: 4}, tokens[1].Pos)
	assert.Equal(t, token.Position{Line: 2, Column: 5, Offset: 6}, tokens[2].Pos)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unterminated string", input: "'abc", want: parser.ErrUnterminatedString},
		{name: "unterminated identifier", input: `"abc`, want: parser.ErrUnterminatedIdent},
		{name: "empty identifier", input: `""`, want: parser.ErrEmptyIdent},
		{name: "lone colon", input: "a:b", want: parser.ErrUnexpectedChar},
		{name: "dollar without digits", input: "$x", want: parser.ErrUnexpectedChar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := parser.NewLexer(tt.input)
			for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
			}
			require.NotEmpty(t, l.Errors)
			assert.Equal(t, tt.want, l.Errors[0].Message)
		})
	}
}
