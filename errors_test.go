package neokit_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rlch/neokit"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	conn := fmt.Errorf("open: %w", &neokit.ConnectionError{URI: "bolt://x", Err: cause})
	require.ErrorIs(t, conn, neokit.ErrConnection)
	require.ErrorIs(t, conn, cause)
	require.NotErrorIs(t, conn, neokit.ErrQuery)

	query := &neokit.QueryError{Query: "RETURN", Code: "Neo.ClientError.Statement.SyntaxError", Message: "bad"}
	require.ErrorIs(t, query, neokit.ErrQuery)
	require.Contains(t, query.Error(), "SyntaxError")

	notFound := &neokit.ToolNotFoundError{Name: "nope"}
	require.ErrorIs(t, notFound, neokit.ErrToolNotFound)
	require.Contains(t, notFound.Error(), `"nope"`)

	param := &neokit.ParameterError{Tool: "search", Param: "title", Reason: "required"}
	require.ErrorIs(t, param, neokit.ErrParameter)
	require.Equal(t, "neokit: invalid parameters: search: title: required", param.Error())

	var target *neokit.ParameterError
	require.ErrorAs(t, fmt.Errorf("dispatch: %w", param), &target)
	require.Equal(t, "title", target.Param)
}
