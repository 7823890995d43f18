package neo4j

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/rlch/neokit"
)

// convertRecord turns driver values into plain neokit data.
func convertRecord(keys []string, values []any) neokit.Record {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = convertValue(v)
	}

	return neokit.Record{Keys: keys, Values: out}
}

func convertValue(value any) any {
	switch v := value.(type) {
	case dbtype.Node:
		return convertNode(v)

	case dbtype.Relationship:
		return convertRelationship(v)

	case dbtype.Path:
		p := neokit.Path{
			Nodes:         make([]neokit.Node, len(v.Nodes)),
			Relationships: make([]neokit.Relationship, len(v.Relationships)),
		}

		for i, n := range v.Nodes {
			p.Nodes[i] = convertNode(n)
		}

		for i, r := range v.Relationships {
			p.Relationships[i] = convertRelationship(r)
		}

		return p

	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = convertValue(item)
		}

		return out

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = convertValue(item)
		}

		return out

	case dbtype.Date:
		return v.Time().Format(time.DateOnly)

	case dbtype.LocalTime:
		return v.Time().Format("15:04:05.999999999")

	case dbtype.Time:
		return v.Time().Format("15:04:05.999999999Z07:00")

	case dbtype.LocalDateTime:
		return v.Time().Format("2006-01-02T15:04:05.999999999")

	case time.Time:
		return v.Format(time.RFC3339Nano)

	case dbtype.Duration:
		return v.String()

	case dbtype.Point2D:
		return map[string]any{"srid": v.SpatialRefId, "x": v.X, "y": v.Y}

	case dbtype.Point3D:
		return map[string]any{"srid": v.SpatialRefId, "x": v.X, "y": v.Y, "z": v.Z}

	default:
		return v
	}
}

func convertNode(n dbtype.Node) neokit.Node {
	return neokit.Node{
		ElementID:  n.ElementId,
		Labels:     n.Labels,
		Properties: convertProps(n.Props),
	}
}

func convertRelationship(r dbtype.Relationship) neokit.Relationship {
	return neokit.Relationship{
		ElementID:      r.ElementId,
		Type:           r.Type,
		StartElementID: r.StartElementId,
		EndElementID:   r.EndElementId,
		Properties:     convertProps(r.Props),
	}
}

func convertProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = convertValue(v)
	}

	return out
}

func convertSummary(req neokit.Request, s neo4j.ResultSummary) neokit.Summary {
	if s == nil {
		return neokit.Summary{Query: req}
	}

	c := s.Counters()

	summary := neokit.Summary{
		Query:     req,
		QueryType: convertStatementType(s.StatementType()),
		Available: s.ResultAvailableAfter(),
		Consumed:  s.ResultConsumedAfter(),
		Counters: neokit.Counters{
			NodesCreated:         c.NodesCreated(),
			NodesDeleted:         c.NodesDeleted(),
			RelationshipsCreated: c.RelationshipsCreated(),
			RelationshipsDeleted: c.RelationshipsDeleted(),
			PropertiesSet:        c.PropertiesSet(),
			LabelsAdded:          c.LabelsAdded(),
			LabelsRemoved:        c.LabelsRemoved(),
			IndexesAdded:         c.IndexesAdded(),
			IndexesRemoved:       c.IndexesRemoved(),
			ConstraintsAdded:     c.ConstraintsAdded(),
			ConstraintsRemoved:   c.ConstraintsRemoved(),
		},
	}

	if db := s.Database(); db != nil {
		summary.Database = db.Name()
	}

	return summary
}

func convertStatementType(st neo4j.StatementType) neokit.QueryType {
	switch st {
	case neo4j.StatementTypeReadOnly:
		return neokit.QueryTypeRead
	case neo4j.StatementTypeReadWrite:
		return neokit.QueryTypeReadWrite
	case neo4j.StatementTypeWriteOnly:
		return neokit.QueryTypeWrite
	case neo4j.StatementTypeSchemaWrite:
		return neokit.QueryTypeSchemaWrite
	default:
		return neokit.QueryTypeUnknown
	}
}
