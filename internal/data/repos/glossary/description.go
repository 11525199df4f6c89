package glossary

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type DescriptionRepo interface {
	Create(dbc dbctx.Context, row *types.Description) (*types.Description, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Description, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Description, error)
	GetByTermID(dbc dbctx.Context, termID uuid.UUID) (*types.Description, error)
	GetByTier(dbc dbctx.Context, tier glossary.Tier, value string) (*types.Description, error)
	ExistsByTier(dbc dbctx.Context, tier glossary.Tier, value string, excludeID uuid.UUID) (bool, error)
	ListIDs(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Description, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type descriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDescriptionRepo(db *gorm.DB, baseLog *logger.Logger) DescriptionRepo {
	return &descriptionRepo{db: db, log: baseLog.With("repo", "DescriptionRepo")}
}

func (r *descriptionRepo) Create(dbc dbctx.Context, row *types.Description) (*types.Description, error) {
	if row == nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *descriptionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Description, error) {
	var out []*types.Description
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *descriptionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Description, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *descriptionRepo) GetByTermID(dbc dbctx.Context, termID uuid.UUID) (*types.Description, error) {
	if termID == uuid.Nil {
		return nil, nil
	}
	var out []*types.Description
	if err := dbc.DB(r.db).Where("term_id = ?", termID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *descriptionRepo) GetByTier(dbc dbctx.Context, tier glossary.Tier, value string) (*types.Description, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid tier %q", tier)
	}
	var out []*types.Description
	if err := dbc.DB(r.db).Where(string(tier)+" = ?", value).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *descriptionRepo) ExistsByTier(dbc dbctx.Context, tier glossary.Tier, value string, excludeID uuid.UUID) (bool, error) {
	if !tier.Valid() {
		return false, fmt.Errorf("invalid tier %q", tier)
	}
	q := dbc.DB(r.db).Model(&types.Description{}).Where(string(tier)+" = ?", value)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListIDs pages through descriptions ordered by id; afterID=uuid.Nil starts at the top.
func (r *descriptionRepo) ListIDs(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Description, error) {
	var out []*types.Description
	if limit <= 0 {
		limit = 100
	}
	q := dbc.DB(r.db).Order("id ASC").Limit(limit)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *descriptionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Description{}).Where("id = ?", id).Updates(updates).Error
}

func (r *descriptionRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Description{}).Error
}
