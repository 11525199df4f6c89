package glossary

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type RelationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Relation) ([]*types.Relation, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Relation, error)
	ListByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) ([]*types.Relation, error)

	// ReplaceForDescription drops every row of the description and inserts rows.
	ReplaceForDescription(dbc dbctx.Context, descriptionID uuid.UUID, rows []*types.Relation) error

	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) (bool, error)
	FullDeleteByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) error
}

type relationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationRepo(db *gorm.DB, baseLog *logger.Logger) RelationRepo {
	return &relationRepo{db: db, log: baseLog.With("repo", "RelationRepo")}
}

func (r *relationRepo) Create(dbc dbctx.Context, rows []*types.Relation) ([]*types.Relation, error) {
	if len(rows) == 0 {
		return []*types.Relation{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *relationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Relation, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Relation
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *relationRepo) ListByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) ([]*types.Relation, error) {
	var out []*types.Relation
	if descriptionID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("description_id = ?", descriptionID).
		Order("created_at ASC, position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *relationRepo) ReplaceForDescription(dbc dbctx.Context, descriptionID uuid.UUID, rows []*types.Relation) error {
	if descriptionID == uuid.Nil {
		return nil
	}
	if err := r.FullDeleteByDescriptionID(dbc, descriptionID); err != nil {
		return err
	}
	_, err := r.Create(dbc, rows)
	return err
}

func (r *relationRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&types.Relation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *relationRepo) FullDeleteByDescriptionID(dbc dbctx.Context, descriptionID uuid.UUID) error {
	if descriptionID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("description_id = ?", descriptionID).Delete(&types.Relation{}).Error
}
