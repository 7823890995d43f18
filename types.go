// Package neokit is a small session facade over a Neo4j graph database.
//
// A Profile describes where to connect, a Database (see databases/neo4j)
// hands out scoped sessions, and every query goes through a Runner as a
// Request: parameterized Cypher text plus named parameters. Results stream
// back as Records through a non-restartable Result cursor.
package neokit

import (
	"fmt"
	"maps"
	"time"
)

// Profile holds the settings needed to open a database connection.
type Profile struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// Validate checks that URI, username and password are all set.
func (p Profile) Validate() error {
	switch {
	case p.URI == "":
		return fmt.Errorf("%w: uri is required", ErrInvalidProfile)
	case p.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidProfile)
	case p.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidProfile)
	}

	return nil
}

// Redacted returns a copy safe for logging.
func (p Profile) Redacted() Profile {
	if p.Password != "" {
		p.Password = "****"
	}

	return p
}

// Request is one parameterized query.
type Request struct {
	Text   string
	Params map[string]any
}

// NewRequest creates a request with a copy of params.
func NewRequest(text string, params map[string]any) Request {
	return Request{Text: text, Params: maps.Clone(params)}
}

// With returns a copy of r with an additional parameter bound.
func (r Request) With(name string, value any) Request {
	params := make(map[string]any, len(r.Params)+1)
	maps.Copy(params, r.Params)
	params[name] = value

	return Request{Text: r.Text, Params: params}
}

// AccessMode selects read or write routing for a session.
type AccessMode int

// Access modes.
const (
	AccessWrite AccessMode = iota
	AccessRead
)

func (m AccessMode) String() string {
	if m == AccessRead {
		return "read"
	}

	return "write"
}

// Node is a graph node converted to plain data.
type Node struct {
	ElementID  string         `json:"elementId"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Relationship is a graph relationship converted to plain data.
type Relationship struct {
	ElementID      string         `json:"elementId"`
	Type           string         `json:"type"`
	StartElementID string         `json:"startElementId"`
	EndElementID   string         `json:"endElementId"`
	Properties     map[string]any `json:"properties"`
}

// Path is an alternating walk of nodes and relationships.
type Path struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// Counters reports the updates a query made.
type Counters struct {
	NodesCreated         int `json:"nodesCreated,omitempty"`
	NodesDeleted         int `json:"nodesDeleted,omitempty"`
	RelationshipsCreated int `json:"relationshipsCreated,omitempty"`
	RelationshipsDeleted int `json:"relationshipsDeleted,omitempty"`
	PropertiesSet        int `json:"propertiesSet,omitempty"`
	LabelsAdded          int `json:"labelsAdded,omitempty"`
	LabelsRemoved        int `json:"labelsRemoved,omitempty"`
	IndexesAdded         int `json:"indexesAdded,omitempty"`
	IndexesRemoved       int `json:"indexesRemoved,omitempty"`
	ConstraintsAdded     int `json:"constraintsAdded,omitempty"`
	ConstraintsRemoved   int `json:"constraintsRemoved,omitempty"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.NodesCreated += other.NodesCreated
	c.NodesDeleted += other.NodesDeleted
	c.RelationshipsCreated += other.RelationshipsCreated
	c.RelationshipsDeleted += other.RelationshipsDeleted
	c.PropertiesSet += other.PropertiesSet
	c.LabelsAdded += other.LabelsAdded
	c.LabelsRemoved += other.LabelsRemoved
	c.IndexesAdded += other.IndexesAdded
	c.IndexesRemoved += other.IndexesRemoved
	c.ConstraintsAdded += other.ConstraintsAdded
	c.ConstraintsRemoved += other.ConstraintsRemoved
}

// ContainsUpdates reports whether any counter is non-zero.
func (c Counters) ContainsUpdates() bool {
	return c != Counters{}
}

// String always reports the node, relationship, property and label-added
// counters. The remaining counters are appended only when non-zero.
func (c Counters) String() string {
	s := fmt.Sprintf(
		"nodes_created=%d nodes_deleted=%d relationships_created=%d relationships_deleted=%d properties_set=%d labels_added=%d",
		c.NodesCreated, c.NodesDeleted, c.RelationshipsCreated, c.RelationshipsDeleted, c.PropertiesSet, c.LabelsAdded,
	)

	for _, extra := range []struct {
		name string
		n    int
	}{
		{"labels_removed", c.LabelsRemoved},
		{"indexes_added", c.IndexesAdded},
		{"indexes_removed", c.IndexesRemoved},
		{"constraints_added", c.ConstraintsAdded},
		{"constraints_removed", c.ConstraintsRemoved},
	} {
		if extra.n != 0 {
			s += fmt.Sprintf(" %s=%d", extra.name, extra.n)
		}
	}

	return s
}

// QueryType classifies a query by its effect on the database.
type QueryType string

// Query types as reported by the server.
const (
	QueryTypeUnknown     QueryType = ""
	QueryTypeRead        QueryType = "r"
	QueryTypeReadWrite   QueryType = "rw"
	QueryTypeWrite       QueryType = "w"
	QueryTypeSchemaWrite QueryType = "s"
)

// Summary describes a finished query.
type Summary struct {
	Query     Request       `json:"-"`
	QueryType QueryType     `json:"queryType,omitempty"`
	Database  string        `json:"database,omitempty"`
	Counters  Counters      `json:"counters"`
	Available time.Duration `json:"-"`
	Consumed  time.Duration `json:"-"`
}

// EagerResult is a fully materialized query result.
type EagerResult struct {
	Keys    []string
	Records []Record
	Summary Summary
}
