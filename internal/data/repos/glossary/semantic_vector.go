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

type SemanticVectorRepo interface {
	// Upsert creates the row for row.DescriptionID or replaces its vector in place.
	Upsert(dbc dbctx.Context, row *types.SemanticVector) error
	// Replace overwrites an existing row and reports whether one was found.
	Replace(dbc dbctx.Context, row *types.SemanticVector) (bool, error)

	GetByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) (*types.SemanticVector, error)
	ListAll(dbc dbctx.Context, batch int, fn func([]*types.SemanticVector) error) error

	FullDeleteByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) error
}

type semanticVectorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSemanticVectorRepo(db *gorm.DB, baseLog *logger.Logger) SemanticVectorRepo {
	return &semanticVectorRepo{db: db, log: baseLog.With("repo", "SemanticVectorRepo")}
}

func (r *semanticVectorRepo) Upsert(dbc dbctx.Context, row *types.SemanticVector) error {
	if row == nil || row.DescriptionID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "description_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vector", "dims", "language", "updated_at"}),
	}).Create(row).Error
}

func (r *semanticVectorRepo) Replace(dbc dbctx.Context, row *types.SemanticVector) (bool, error) {
	if row == nil || row.DescriptionID == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).Model(&types.SemanticVector{}).
		Where("description_id = ?", row.DescriptionID).
		Updates(map[string]interface{}{
			"vector":     row.Vector,
			"dims":       row.Dims,
			"language":   row.Language,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *semanticVectorRepo) GetByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) (*types.SemanticVector, error) {
	if descriptionID == uuid.Nil {
		return nil, nil
	}
	var out []*types.SemanticVector
	if err := dbc.DB(r.db).Where("description_id = ?", descriptionID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// ListAll streams every row in creation order, batch rows at a time.
func (r *semanticVectorRepo) ListAll(dbc dbctx.Context, batch int, fn func([]*types.SemanticVector) error) error {
	if batch <= 0 {
		batch = 500
	}
	for offset := 0; ; offset += batch {
		var rows []*types.SemanticVector
		if err := dbc.DB(r.db).
			Order("created_at ASC, id ASC").
			Limit(batch).
			Offset(offset).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := fn(rows); err != nil {
			return err
		}
		if len(rows) < batch {
			return nil
		}
	}
}

func (r *semanticVectorRepo) FullDeleteByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) error {
	if descriptionID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("description_id = ?", descriptionID).Delete(&types.SemanticVector{}).Error
}
