package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/termbase-backend/internal/modules/glossary/relgraph"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/neo4jdb"
)

// RelationGraphMirror copies description graphs into Neo4j as
// (:Mention)-[:RELATES]->(:Mention) subgraphs scoped by description_id.
// A nil client turns every call into a no-op.
type RelationGraphMirror struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewRelationGraphMirror(client *neo4jdb.Client, baseLog *logger.Logger) *RelationGraphMirror {
	return &RelationGraphMirror{client: client, log: baseLog.With("component", "Neo4jRelationGraph")}
}

func (m *RelationGraphMirror) Enabled() bool {
	return m != nil && m.client != nil && m.client.Driver != nil
}

// EnsureSchema creates the mention constraint. Failures are logged only.
func (m *RelationGraphMirror) EnsureSchema(ctx context.Context) {
	if !m.Enabled() {
		return
	}
	session := m.session(ctx)
	defer session.Close(ctx)
	for _, stmt := range []string{
		`CREATE CONSTRAINT mention_key_unique IF NOT EXISTS FOR (m:Mention) REQUIRE (m.description_id, m.name) IS UNIQUE`,
		`CREATE INDEX mention_description_idx IF NOT EXISTS FOR (m:Mention) ON (m.description_id)`,
	} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			m.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

// Sync replaces the mirrored subgraph for one description.
func (m *RelationGraphMirror) Sync(ctx context.Context, descriptionID uuid.UUID, lang string, g *relgraph.Graph) error {
	if !m.Enabled() || g == nil {
		return nil
	}
	if descriptionID == uuid.Nil {
		return fmt.Errorf("neo4j relation graph sync: missing descriptionID")
	}
	did := descriptionID.String()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		nodes = append(nodes, map[string]any{
			"name":           n.ID,
			"type":           deref(n.Type),
			"description_id": did,
			"language":       lang,
			"synced_at":      now,
		})
	}
	rels := make([]map[string]any, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		rels = append(rels, map[string]any{
			"source":         e.Source,
			"target":         e.Target,
			"predicate":      e.Predicate,
			"predicate_type": deref(e.PredicateType),
			"position":       int64(e.Position),
		})
	}

	session := m.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := run(ctx, tx, `
MATCH (n:Mention {description_id: $did})
DETACH DELETE n
`, map[string]any{"did": did}); err != nil {
			return nil, err
		}
		if len(nodes) > 0 {
			if err := run(ctx, tx, `
UNWIND $nodes AS n
MERGE (m:Mention {description_id: n.description_id, name: n.name})
SET m += n
`, map[string]any{"nodes": nodes}); err != nil {
				return nil, err
			}
		}
		if len(rels) > 0 {
			if err := run(ctx, tx, `
UNWIND $rels AS r
MATCH (a:Mention {description_id: $did, name: r.source})
MATCH (b:Mention {description_id: $did, name: r.target})
MERGE (a)-[e:RELATES]->(b)
SET e.predicate = r.predicate,
    e.predicate_type = r.predicate_type,
    e.position = r.position
`, map[string]any{"rels": rels, "did": did}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j relation graph sync: %w", err)
	}
	m.log.Debug("neo4j relation graph synced", "description_id", did, "nodes", len(nodes), "edges", len(rels))
	return nil
}

func (m *RelationGraphMirror) Delete(ctx context.Context, descriptionID uuid.UUID) error {
	if !m.Enabled() || descriptionID == uuid.Nil {
		return nil
	}
	session := m.session(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, run(ctx, tx, `
MATCH (n:Mention {description_id: $did})
DETACH DELETE n
`, map[string]any{"did": descriptionID.String()})
	})
	if err != nil {
		return fmt.Errorf("neo4j relation graph delete: %w", err)
	}
	return nil
}

func (m *RelationGraphMirror) session(ctx context.Context) neo4j.SessionWithContext {
	return m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
