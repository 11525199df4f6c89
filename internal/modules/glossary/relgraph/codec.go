package relgraph

import (
	"encoding/json"
	"fmt"
)

// Document is the persisted node-link form.
type Document struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []NodeDoc      `json:"nodes"`
	Links      []LinkDoc      `json:"links"`
	// Edges is accepted on input as an alias of Links.
	Edges []LinkDoc `json:"edges,omitempty"`
}

type NodeDoc struct {
	ID   string  `json:"id"`
	Type *string `json:"type"`
}

type LinkDoc struct {
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Predicate     string  `json:"predicate"`
	PredicateType *string `json:"predicate_type"`
	Position      int     `json:"position"`
}

func ToDocument(g *Graph) Document {
	doc := Document{
		Directed: true,
		Graph:    map[string]any{},
		Nodes:    []NodeDoc{},
		Links:    []LinkDoc{},
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{ID: n.ID, Type: n.Type})
	}
	for _, e := range g.Edges() {
		doc.Links = append(doc.Links, LinkDoc{
			Source:        e.Source,
			Target:        e.Target,
			Predicate:     e.Predicate,
			PredicateType: e.PredicateType,
			Position:      e.Position,
		})
	}
	return doc
}

func FromDocument(doc Document) (*Graph, error) {
	if !doc.Directed {
		return nil, fmt.Errorf("relgraph: undirected documents are not supported")
	}
	if doc.Multigraph {
		return nil, fmt.Errorf("relgraph: multigraph documents are not supported")
	}
	g := New()
	for _, n := range doc.Nodes {
		g.AddNode(n.ID, n.Type)
	}
	links := doc.Links
	if len(links) == 0 {
		links = doc.Edges
	}
	for _, l := range links {
		g.SetEdge(l.Source, l.Target, EdgeAttrs{
			Predicate:     l.Predicate,
			PredicateType: l.PredicateType,
			Position:      l.Position,
		})
	}
	return g, nil
}

func Encode(g *Graph) ([]byte, error) {
	return json.Marshal(ToDocument(g))
}

// Decode parses a stored document. Empty input yields an empty graph.
func Decode(raw []byte) (*Graph, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return New(), nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("relgraph: decode: %w", err)
	}
	if doc.Nodes == nil && doc.Links == nil && doc.Edges == nil {
		return New(), nil
	}
	return FromDocument(doc)
}
