package cypher

import (
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// writeKeywords are clauses that modify the graph or the schema.
var writeKeywords = []string{
	"CREATE", "MERGE", "DELETE", "DETACH", "SET", "REMOVE", "DROP", "FOREACH", "LOAD",
}

// writeNamespaces are procedure namespace segments that modify the graph,
// as in apoc.create.node.
var writeNamespaces = []string{"CREATE", "MERGE", "DELETE", "SET", "REMOVE", "DROP"}

// WriteClauses returns the write clauses used in query, upper-cased and in
// order of appearance. Property keys (n.set), labels (:Delete), map keys
// ({create: 1}) and aliases (AS set) are not clauses and are ignored. A CALL
// to a procedure with a write segment in its name (apoc.create.node) is
// reported as "CALL apoc.create.node".
func WriteClauses(query string) ([]string, error) {
	tokens, err := Tokenize(query)
	if err != nil {
		return nil, err
	}

	toks := significant(tokens)

	var found []string

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Type != tokIdent {
			continue
		}

		if i > 0 && (toks[i-1].Type == tokDot || toks[i-1].Type == tokColon) {
			continue
		}

		if i > 0 && toks[i-1].Type == tokIdent && strings.EqualFold(toks[i-1].Value, "AS") {
			continue
		}

		if i+1 < len(toks) && toks[i+1].Type == tokColon {
			continue
		}

		upper := strings.ToUpper(t.Value)

		if upper == "CALL" {
			name, next := procedureName(toks, i+1)
			if isWriteProcedure(name) {
				found = append(found, "CALL "+name)
			}

			i = next - 1

			continue
		}

		if slices.Contains(writeKeywords, upper) {
			found = append(found, upper)
		}
	}

	return found, nil
}

// procedureName joins the dotted identifier starting at toks[i] and returns
// it with the index of the first token after it.
func procedureName(toks []lexer.Token, i int) (string, int) {
	var parts []string

	for i < len(toks) && toks[i].Type == tokIdent {
		parts = append(parts, toks[i].Value)
		i++

		if i+1 < len(toks) && toks[i].Type == tokDot && toks[i+1].Type == tokIdent {
			i++

			continue
		}

		break
	}

	return strings.Join(parts, "."), i
}

func isWriteProcedure(name string) bool {
	segments := strings.Split(name, ".")
	if len(segments) < 2 {
		return false
	}

	for _, seg := range segments[:len(segments)-1] {
		if slices.Contains(writeNamespaces, strings.ToUpper(seg)) {
			return true
		}
	}

	return false
}

// IsWrite reports whether query contains a write clause. Queries that cannot
// be tokenized are treated as writes.
func IsWrite(query string) bool {
	clauses, err := WriteClauses(query)
	if err != nil {
		return true
	}

	return len(clauses) > 0
}

// SplitStatements splits a script on top-level semicolons. Semicolons inside
// strings and comments do not split. Comments are stripped and empty
// statements are dropped.
func SplitStatements(script string) ([]string, error) {
	tokens, err := Tokenize(script)
	if err != nil {
		return nil, err
	}

	var (
		statements []string
		current    strings.Builder
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}

		current.Reset()
	}

	for _, t := range tokens {
		switch t.Type {
		case tokSemicolon:
			flush()

			continue
		case tokLineComment, tokBlockComment:
			continue
		}

		current.WriteString(t.Value)
	}

	flush()

	return statements, nil
}
