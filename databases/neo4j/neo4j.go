// Package neo4j provides the neokit Database implementation for Neo4j.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"github.com/rlch/neokit"
	"github.com/rlch/neokit/cypher"
)

//nolint:gochecknoinits // Database self-registration pattern
func init() {
	neokit.RegisterDatabase(neokit.DatabaseNeo4j, func(ctx context.Context, p neokit.Profile, logger *zap.Logger) (neokit.Database, error) {
		return Open(ctx, p, WithLogger(logger))
	})
}

// Database implements neokit.Database and neokit.Transactional for Neo4j.
// It is safe for concurrent use; every session is independent.
type Database struct {
	driver neo4j.DriverWithContext
	uri    string
	db     string
	logger *zap.Logger
}

type options struct {
	logger         *zap.Logger
	userAgent      string
	connectTimeout time.Duration
	maxPoolSize    int
}

// Option configures Open.
type Option func(*options)

// WithLogger routes both neokit and driver logs to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithUserAgent sets the user agent reported to the server.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithConnectTimeout bounds socket connection time.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}

// WithMaxPoolSize bounds the number of pooled connections.
func WithMaxPoolSize(n int) Option {
	return func(o *options) {
		o.maxPoolSize = n
	}
}

// Open creates a driver for profile and verifies connectivity. An unreachable
// server or rejected credentials fail with *neokit.ConnectionError. There is
// no retry.
func Open(ctx context.Context, profile neokit.Profile, opts ...Option) (*Database, error) {
	o := options{logger: zap.NewNop(), userAgent: "neokit"}
	for _, opt := range opts {
		opt(&o)
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}

	auth := neo4j.BasicAuth(profile.Username, profile.Password, "")

	driver, err := neo4j.NewDriverWithContext(profile.URI, auth, func(c *config.Config) {
		c.Log = newDriverLogger(o.logger)
		c.UserAgent = o.userAgent

		if o.connectTimeout > 0 {
			c.SocketConnectTimeout = o.connectTimeout
		}

		if o.maxPoolSize > 0 {
			c.MaxConnectionPoolSize = o.maxPoolSize
		}
	})
	if err != nil {
		return nil, &neokit.ConnectionError{URI: profile.URI, Err: err}
	}

	d := &Database{
		driver: driver,
		uri:    profile.URI,
		db:     profile.Database,
		logger: o.logger,
	}

	if err := d.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)

		return nil, err
	}

	o.logger.Debug("Connected to Neo4j", zap.Any("profile", profile.Redacted()))

	return d, nil
}

// Name returns the database identifier.
func (d *Database) Name() string {
	return neokit.DatabaseNeo4j
}

// VerifyConnectivity checks that the server is reachable and accepts the credentials.
func (d *Database) VerifyConnectivity(ctx context.Context) error {
	err := d.driver.VerifyConnectivity(ctx)
	if err != nil {
		return &neokit.ConnectionError{URI: d.uri, Err: err}
	}

	return nil
}

// Session opens a session. Callers must Close it; prefer WithSession.
func (d *Database) Session(ctx context.Context, mode neokit.AccessMode) *Session {
	cfg := neo4j.SessionConfig{
		AccessMode: neo4j.AccessModeWrite,
	}

	if mode == neokit.AccessRead {
		cfg.AccessMode = neo4j.AccessModeRead
	}

	if d.db != "" {
		cfg.DatabaseName = d.db
	}

	return &Session{
		session: d.driver.NewSession(ctx, cfg),
		uri:     d.uri,
		logger:  d.logger,
	}
}

// WithSession runs fn with a fresh session and closes it on every exit path,
// including panics. A close error is joined with fn's error.
func (d *Database) WithSession(ctx context.Context, mode neokit.AccessMode, fn func(neokit.Runner) error) (err error) {
	s := d.Session(ctx, mode)

	defer func() {
		if cerr := s.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	return fn(s)
}

// WithTransaction runs fn inside a managed transaction.
func (d *Database) WithTransaction(ctx context.Context, mode neokit.AccessMode, fn func(neokit.Runner) error) error {
	return d.WithSession(ctx, mode, func(r neokit.Runner) error {
		s, _ := r.(*Session)
		if mode == neokit.AccessRead {
			return s.ExecuteRead(ctx, func(tx *Tx) error { return fn(tx) })
		}

		return s.ExecuteWrite(ctx, func(tx *Tx) error { return fn(tx) })
	})
}

// ExecuteQuery runs one query in its own session and returns every record,
// the keys and the summary. Read mode routes to readers in a cluster.
func (d *Database) ExecuteQuery(ctx context.Context, req neokit.Request, mode neokit.AccessMode) (*neokit.EagerResult, error) {
	if err := cypher.Validate(req); err != nil {
		return nil, err
	}

	configurers := []neo4j.ExecuteQueryConfigurationOption{}
	if d.db != "" {
		configurers = append(configurers, neo4j.ExecuteQueryWithDatabase(d.db))
	}

	if mode == neokit.AccessRead {
		configurers = append(configurers, neo4j.ExecuteQueryWithReadersRouting())
	}

	start := time.Now()

	res, err := neo4j.ExecuteQuery(ctx, d.driver, req.Text, req.Params, neo4j.EagerResultTransformer, configurers...)
	if err != nil {
		return nil, classify(d.uri, req, err)
	}

	d.logger.Debug("Executed query",
		zap.String("mode", mode.String()),
		zap.Int("records", len(res.Records)),
		zap.Duration("elapsed", time.Since(start)))

	records := make([]neokit.Record, len(res.Records))
	for i, rec := range res.Records {
		records[i] = convertRecord(rec.Keys, rec.Values)
	}

	return &neokit.EagerResult{
		Keys:    res.Keys,
		Records: records,
		Summary: convertSummary(req, res.Summary),
	}, nil
}

// QueryType asks the server to plan req with EXPLAIN and reports its type
// without executing it.
func (d *Database) QueryType(ctx context.Context, req neokit.Request) (neokit.QueryType, error) {
	var qt neokit.QueryType

	err := d.WithSession(ctx, neokit.AccessRead, func(r neokit.Runner) error {
		res, err := r.Run(ctx, neokit.Request{Text: "EXPLAIN " + req.Text, Params: req.Params})
		if err != nil {
			return err
		}

		summary, err := res.Consume(ctx)
		if err != nil {
			return err
		}

		qt = summary.QueryType

		return nil
	})

	return qt, err
}

// Close releases the driver and all pooled connections.
func (d *Database) Close(ctx context.Context) error {
	if d.driver == nil {
		return nil
	}

	err := d.driver.Close(ctx)
	if err != nil {
		return fmt.Errorf("neo4j: failed to close driver: %w", err)
	}

	return nil
}

// Compile-time interface checks.
var (
	_ neokit.Database      = (*Database)(nil)
	_ neokit.Transactional = (*Database)(nil)
	_ neokit.Runner        = (*Session)(nil)
	_ neokit.Runner        = (*Tx)(nil)
)
