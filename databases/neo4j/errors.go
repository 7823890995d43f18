package neo4j

import (
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rlch/neokit"
)

// classify maps driver errors onto neokit's error kinds. Security failures
// and connectivity problems are connection errors; every other server
// error is a query error carrying the server code and message.
func classify(uri string, req neokit.Request, err error) error {
	if err == nil || isClassified(err) {
		return err
	}

	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) {
		if strings.HasPrefix(nerr.Code, "Neo.ClientError.Security.") {
			return &neokit.ConnectionError{URI: uri, Err: err}
		}

		return &neokit.QueryError{Query: req.Text, Code: nerr.Code, Message: nerr.Msg, Err: err}
	}

	if neo4j.IsConnectivityError(err) {
		return &neokit.ConnectionError{URI: uri, Err: err}
	}

	return &neokit.QueryError{Query: req.Text, Err: err}
}

func isClassified(err error) bool {
	return errors.Is(err, neokit.ErrConnection) || errors.Is(err, neokit.ErrQuery)
}
