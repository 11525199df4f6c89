package glossary

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type RelationGraphRepo interface {
	// Upsert writes a rebuilt graph, creating the row or replacing the document and
	// bumping its version.
	Upsert(dbc dbctx.Context, row *types.RelationGraph) error
	// Replace overwrites an existing row; false when none exists.
	Replace(dbc dbctx.Context, row *types.RelationGraph) (bool, error)
	// CompareAndSwap writes row only if the stored version still equals row.Version,
	// then advances row.Version. False means another writer got there first.
	CompareAndSwap(dbc dbctx.Context, row *types.RelationGraph) (bool, error)

	GetByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) (*types.RelationGraph, error)

	FullDeleteByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) error
}

type relationGraphRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationGraphRepo(db *gorm.DB, baseLog *logger.Logger) RelationGraphRepo {
	return &relationGraphRepo{db: db, log: baseLog.With("repo", "RelationGraphRepo")}
}

func (r *relationGraphRepo) Upsert(dbc dbctx.Context, row *types.RelationGraph) error {
	if row == nil || row.DescriptionID == uuid.Nil {
		return nil
	}
	if row.Version == 0 {
		row.Version = 1
	}
	row.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "description_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"graph":         row.Graph,
			"triplet_count": row.TripletCount,
			"language":      row.Language,
			"updated_at":    row.UpdatedAt,
			"version":       gorm.Expr("relation_graph.version + 1"),
		}),
	}).Create(row).Error
}

func (r *relationGraphRepo) Replace(dbc dbctx.Context, row *types.RelationGraph) (bool, error) {
	if row == nil || row.DescriptionID == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).Model(&types.RelationGraph{}).
		Where("description_id = ?", row.DescriptionID).
		Updates(map[string]interface{}{
			"graph":         row.Graph,
			"triplet_count": row.TripletCount,
			"language":      row.Language,
			"updated_at":    time.Now().UTC(),
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *relationGraphRepo) CompareAndSwap(dbc dbctx.Context, row *types.RelationGraph) (bool, error) {
	if row == nil || row.ID == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).Model(&types.RelationGraph{}).
		Where("id = ? AND version = ?", row.ID, row.Version).
		Updates(map[string]interface{}{
			"graph":         row.Graph,
			"triplet_count": row.TripletCount,
			"updated_at":    time.Now().UTC(),
			"version":       row.Version + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	row.Version++
	return true, nil
}

func (r *relationGraphRepo) GetByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) (*types.RelationGraph, error) {
	if descriptionID == uuid.Nil {
		return nil, nil
	}
	var out []*types.RelationGraph
	if err := dbc.DB(r.db).Where("description_id = ?", descriptionID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *relationGraphRepo) FullDeleteByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) error {
	if descriptionID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("description_id = ?", descriptionID).Delete(&types.RelationGraph{}).Error
}
