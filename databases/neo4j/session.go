package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/cypher"
)

// Session is one logical unit of work against the database. It is not safe
// for concurrent use.
type Session struct {
	session neo4j.SessionWithContext
	uri     string
	logger  *zap.Logger
}

// Run executes an auto-commit query. Placeholders are checked locally first,
// so an unbound parameter fails without a round trip. The returned Result
// streams from the server and is valid until the session is closed.
func (s *Session) Run(ctx context.Context, req neokit.Request) (*neokit.Result, error) {
	if err := cypher.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Debug("Run", zap.String("query", req.Text), zap.Int("params", len(req.Params)))

	result, err := s.session.Run(ctx, req.Text, req.Params)
	if err != nil {
		return nil, classify(s.uri, req, err)
	}

	return neokit.NewResult(&stream{result: result, req: req, uri: s.uri}), nil
}

// ExecuteWrite runs fn in a managed write transaction. The transaction commits
// when fn returns nil. Results must be consumed inside fn.
func (s *Session) ExecuteWrite(ctx context.Context, fn func(*Tx) error) error {
	_, err := s.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&Tx{run: tx.Run, uri: s.uri})
	})

	return s.wrapTxErr(err)
}

// ExecuteRead runs fn in a managed read transaction.
func (s *Session) ExecuteRead(ctx context.Context, fn func(*Tx) error) error {
	_, err := s.session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&Tx{run: tx.Run, uri: s.uri})
	})

	return s.wrapTxErr(err)
}

func (s *Session) wrapTxErr(err error) error {
	if err == nil {
		return nil
	}

	// Errors from neokit (validation, classified driver errors) pass through.
	if isClassified(err) {
		return err
	}

	return classify(s.uri, neokit.Request{}, err)
}

// Begin starts an explicit transaction.
func (s *Session) Begin(ctx context.Context) (*ExplicitTx, error) {
	tx, err := s.session.BeginTransaction(ctx)
	if err != nil {
		return nil, classify(s.uri, neokit.Request{}, fmt.Errorf("begin transaction: %w", err))
	}

	return &ExplicitTx{Tx: Tx{run: tx.Run, uri: s.uri}, tx: tx}, nil
}

// Close releases the session.
func (s *Session) Close(ctx context.Context) error {
	if s.session == nil {
		return nil
	}

	err := s.session.Close(ctx)
	if err != nil {
		return fmt.Errorf("neo4j: failed to close session: %w", err)
	}

	return nil
}

type runFunc func(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)

// Tx runs queries inside a transaction.
type Tx struct {
	run runFunc
	uri string
}

// Run executes a query within this transaction.
func (t *Tx) Run(ctx context.Context, req neokit.Request) (*neokit.Result, error) {
	if err := cypher.Validate(req); err != nil {
		return nil, err
	}

	result, err := t.run(ctx, req.Text, req.Params)
	if err != nil {
		return nil, classify(t.uri, req, err)
	}

	return neokit.NewResult(&stream{result: result, req: req, uri: t.uri}), nil
}

// ExplicitTx is a transaction committed or rolled back by the caller.
type ExplicitTx struct {
	Tx

	tx neo4j.ExplicitTransaction
}

// Commit commits the transaction.
func (t *ExplicitTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return classify(t.uri, neokit.Request{}, err)
	}

	return nil
}

// Rollback aborts the transaction.
func (t *ExplicitTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return classify(t.uri, neokit.Request{}, err)
	}

	return nil
}

// Close rolls back the transaction unless it was committed.
func (t *ExplicitTx) Close(ctx context.Context) error {
	return t.tx.Close(ctx)
}

// stream adapts a driver result to neokit.Stream.
type stream struct {
	result neo4j.ResultWithContext
	req    neokit.Request
	uri    string
}

func (s *stream) Keys() ([]string, error) {
	keys, err := s.result.Keys()
	if err != nil {
		return nil, classify(s.uri, s.req, err)
	}

	return keys, nil
}

func (s *stream) Next(ctx context.Context) bool {
	return s.result.Next(ctx)
}

func (s *stream) Record() neokit.Record {
	rec := s.result.Record()
	if rec == nil {
		return neokit.Record{}
	}

	return convertRecord(rec.Keys, rec.Values)
}

func (s *stream) Err() error {
	if err := s.result.Err(); err != nil {
		return classify(s.uri, s.req, err)
	}

	return nil
}

func (s *stream) Consume(ctx context.Context) (neokit.Summary, error) {
	summary, err := s.result.Consume(ctx)
	if err != nil {
		return neokit.Summary{}, classify(s.uri, s.req, err)
	}

	return convertSummary(s.req, summary), nil
}
