package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/data/repos"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type Repos struct {
	Topic          repos.TopicRepo
	Term           repos.TermRepo
	Description    repos.DescriptionRepo
	SemanticVector repos.SemanticVectorRepo
	RelationGraph  repos.RelationGraphRepo
	Relation       repos.RelationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Topic:          repos.NewTopicRepo(db, log),
		Term:           repos.NewTermRepo(db, log),
		Description:    repos.NewDescriptionRepo(db, log),
		SemanticVector: repos.NewSemanticVectorRepo(db, log),
		RelationGraph:  repos.NewRelationGraphRepo(db, log),
		Relation:       repos.NewRelationRepo(db, log),
	}
}
