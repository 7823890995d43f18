package neokit

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// DatabaseNeo4j is the registered name of the Neo4j backend.
const DatabaseNeo4j = "neo4j"

// Runner executes one query and streams its records.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// SessionProvider hands out scoped sessions. The session passed to fn is
// closed when fn returns, on every path.
type SessionProvider interface {
	WithSession(ctx context.Context, mode AccessMode, fn func(Runner) error) error
}

// Database is an open connection to a graph database.
type Database interface {
	SessionProvider

	// Name returns the database identifier (e.g., "neo4j").
	Name() string

	// VerifyConnectivity checks that the server is reachable and accepts the credentials.
	VerifyConnectivity(ctx context.Context) error

	// ExecuteQuery runs a single query in its own session and materializes the result.
	ExecuteQuery(ctx context.Context, req Request, mode AccessMode) (*EagerResult, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Transactional is implemented by databases that support managed transactions.
// fn runs inside one transaction which is committed when fn returns nil and
// rolled back otherwise.
type Transactional interface {
	Database

	WithTransaction(ctx context.Context, mode AccessMode, fn func(Runner) error) error
}

// DatabaseFactory opens a Database from a profile.
type DatabaseFactory func(ctx context.Context, profile Profile, logger *zap.Logger) (Database, error)

var (
	databasesMu sync.RWMutex
	databases   = make(map[string]DatabaseFactory)
)

// RegisterDatabase registers a database factory by name.
func RegisterDatabase(name string, factory DatabaseFactory) {
	databasesMu.Lock()
	defer databasesMu.Unlock()

	databases[name] = factory
}

// OpenDatabase opens a registered database.
func OpenDatabase(ctx context.Context, name string, profile Profile, logger *zap.Logger) (Database, error) {
	databasesMu.RLock()
	factory, ok := databases[name]
	databasesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDatabase, name)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return factory(ctx, profile, logger)
}

// RegisteredDatabases returns the names of all registered databases, sorted.
func RegisteredDatabases() []string {
	databasesMu.RLock()
	defer databasesMu.RUnlock()

	names := make([]string, 0, len(databases))
	for name := range databases {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Execute runs req on r and collects every record.
func Execute(ctx context.Context, r Runner, req Request) ([]Record, error) {
	result, err := r.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	return result.Collect(ctx)
}

// Query opens a session on p, runs req and collects the records.
func Query(ctx context.Context, p SessionProvider, mode AccessMode, req Request) ([]Record, error) {
	var records []Record

	err := p.WithSession(ctx, mode, func(r Runner) error {
		var err error

		records, err = Execute(ctx, r, req)

		return err
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
