package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/data/repos/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type TopicRepo = glossary.TopicRepo
type TermRepo = glossary.TermRepo
type DescriptionRepo = glossary.DescriptionRepo
type SemanticVectorRepo = glossary.SemanticVectorRepo
type RelationGraphRepo = glossary.RelationGraphRepo
type RelationRepo = glossary.RelationRepo

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return glossary.NewTopicRepo(db, baseLog)
}

func NewTermRepo(db *gorm.DB, baseLog *logger.Logger) TermRepo {
	return glossary.NewTermRepo(db, baseLog)
}

func NewDescriptionRepo(db *gorm.DB, baseLog *logger.Logger) DescriptionRepo {
	return glossary.NewDescriptionRepo(db, baseLog)
}

func NewSemanticVectorRepo(db *gorm.DB, baseLog *logger.Logger) SemanticVectorRepo {
	return glossary.NewSemanticVectorRepo(db, baseLog)
}

func NewRelationGraphRepo(db *gorm.DB, baseLog *logger.Logger) RelationGraphRepo {
	return glossary.NewRelationGraphRepo(db, baseLog)
}

func NewRelationRepo(db *gorm.DB, baseLog *logger.Logger) RelationRepo {
	return glossary.NewRelationRepo(db, baseLog)
}
