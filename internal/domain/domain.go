package domain

import (
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
)

type (
	Topic          = glossary.Topic
	Term           = glossary.Term
	Description    = glossary.Description
	SemanticVector = glossary.SemanticVector
	RelationGraph  = glossary.RelationGraph
	Relation       = glossary.Relation
	Triple         = glossary.Triple
)

// Models lists every persisted glossary table in dependency order.
func Models() []any {
	return []any{
		&Topic{},
		&Term{},
		&Description{},
		&SemanticVector{},
		&RelationGraph{},
		&Relation{},
	}
}
