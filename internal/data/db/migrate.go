package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/termbase-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return err
	}
	return EnsureGlossaryIndexes(db)
}

func (s *DatabaseService) AutoMigrateAll() error {
	if err := AutoMigrateAll(s.db); err != nil {
		return err
	}
	s.log.Info("Schema migrated")
	return nil
}

// EnsureGlossaryIndexes adds the lookup indexes that struct tags do not express.
// Statements are portable across postgres and sqlite.
func EnsureGlossaryIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_relation_description_position ON relation(description_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_term_topic_created ON term(topic_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_semantic_vector_language ON semantic_vector(language);`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}
