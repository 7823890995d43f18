package neokit

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .neokit.yaml is found.
	ErrConfigNotFound = errors.New("neokit: no .neokit.yaml found")

	// ErrUnknownDatabase is returned when an unregistered database is requested.
	ErrUnknownDatabase = errors.New("neokit: unknown database")

	// ErrInvalidProfile is returned when a connection profile is incomplete.
	ErrInvalidProfile = errors.New("neokit: invalid connection profile")

	// ErrConnection matches every *ConnectionError.
	ErrConnection = errors.New("neokit: connection failed")

	// ErrQuery matches every *QueryError.
	ErrQuery = errors.New("neokit: query failed")

	// ErrToolNotFound matches every *ToolNotFoundError.
	ErrToolNotFound = errors.New("neokit: tool not found")

	// ErrParameter matches every *ParameterError.
	ErrParameter = errors.New("neokit: invalid parameters")

	// ErrResultConsumed is returned when a result is read after it was exhausted.
	ErrResultConsumed = errors.New("neokit: result already consumed")

	// ErrNoRecords is returned by Result.Single when the result is empty.
	ErrNoRecords = errors.New("neokit: result contains no records")

	// ErrMultipleRecords is returned by Result.Single when more than one record remains.
	ErrMultipleRecords = errors.New("neokit: result contains more than one record")
)

// ConnectionError reports an unreachable server or rejected credentials.
type ConnectionError struct {
	URI string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("%v: %v", ErrConnection, e.Err)
	}

	return fmt.Sprintf("%v: %s: %v", ErrConnection, e.URI, e.Err)
}

// Is reports whether target is ErrConnection.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a malformed query, an unbound parameter or a server-side
// constraint violation. Code holds the server status code when there is one.
type QueryError struct {
	Query   string
	Code    string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Code != "" {
		return fmt.Sprintf("%v: %s: %s", ErrQuery, e.Code, msg)
	}

	return fmt.Sprintf("%v: %s", ErrQuery, msg)
}

// Is reports whether target is ErrQuery.
func (e *QueryError) Is(target error) bool { return target == ErrQuery }

func (e *QueryError) Unwrap() error { return e.Err }

// ToolNotFoundError is returned when a dispatched tool name is not registered.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%v: %q", ErrToolNotFound, e.Name)
}

// Is reports whether target is ErrToolNotFound.
func (e *ToolNotFoundError) Is(target error) bool { return target == ErrToolNotFound }

// ParameterError is returned when tool arguments do not satisfy the tool schema.
type ParameterError struct {
	Tool   string
	Param  string
	Reason string
	Err    error
}

func (e *ParameterError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}

	if e.Param != "" {
		return fmt.Sprintf("%v: %s: %s: %s", ErrParameter, e.Tool, e.Param, reason)
	}

	return fmt.Sprintf("%v: %s: %s", ErrParameter, e.Tool, reason)
}

// Is reports whether target is ErrParameter.
func (e *ParameterError) Is(target error) bool { return target == ErrParameter }

func (e *ParameterError) Unwrap() error { return e.Err }
