// Package cypher tokenizes Cypher query text to check parameters and query
// shape locally, before anything is sent to the server.
package cypher

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes Cypher. Strings, comments and backtick identifiers are
// single tokens, so "$x" inside a string literal is not a parameter.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "LineComment", Pattern: `//[^\r\n]*`},

	// $name, $`quoted name`, $0
	{Name: "Parameter", Pattern: "\\$(?:[a-zA-Z_][a-zA-Z0-9_]*|`[^`]+`|\\d+)"},

	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`},
	{Name: "EscapedIdent", Pattern: "`[^`]+`"},

	{Name: "Float", Pattern: `(?:\d+\.\d*|\.\d+)(?:[eE][+-]?\d+)?`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},

	{Name: "Semicolon", Pattern: `;`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Punct", Pattern: `[-+*/%^=<>!~,|(){}\[\]]`},
	{Name: "Other", Pattern: `.`},
})

var symbols = Lexer.Symbols()

// Token types used by this package.
var (
	tokWhitespace   = symbols["Whitespace"]
	tokBlockComment = symbols["BlockComment"]
	tokLineComment  = symbols["LineComment"]
	tokParameter    = symbols["Parameter"]
	tokIdent        = symbols["Ident"]
	tokSemicolon    = symbols["Semicolon"]
	tokDot          = symbols["Dot"]
	tokColon        = symbols["Colon"]
)

// Tokenize splits query into tokens, including whitespace and comments.
func Tokenize(query string) ([]lexer.Token, error) {
	lex, err := Lexer.LexString("", query)
	if err != nil {
		return nil, err
	}

	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}

	// Drop the trailing EOF token.
	if n := len(tokens); n > 0 && tokens[n-1].EOF() {
		tokens = tokens[:n-1]
	}

	return tokens, nil
}

func isTrivia(t lexer.Token) bool {
	return t.Type == tokWhitespace || t.Type == tokBlockComment || t.Type == tokLineComment
}

// significant returns tokens without whitespace and comments.
func significant(tokens []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(tokens))

	for _, t := range tokens {
		if !isTrivia(t) {
			out = append(out, t)
		}
	}

	return out
}
