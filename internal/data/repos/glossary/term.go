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

type TermRepo interface {
	Create(dbc dbctx.Context, row *types.Term) (*types.Term, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Term, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Term, error)
	GetByTier(dbc dbctx.Context, tier glossary.Tier, value string) (*types.Term, error)
	ExistsByTier(dbc dbctx.Context, tier glossary.Tier, value string, excludeID uuid.UUID) (bool, error)
	ListByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Term, error)
	ListByFirstLetter(dbc dbctx.Context, topicID uuid.UUID, letter string, limit int) ([]*types.Term, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type termRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTermRepo(db *gorm.DB, baseLog *logger.Logger) TermRepo {
	return &termRepo{db: db, log: baseLog.With("repo", "TermRepo")}
}

func (r *termRepo) Create(dbc dbctx.Context, row *types.Term) (*types.Term, error) {
	if row == nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *termRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Term, error) {
	var out []*types.Term
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *termRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Term, error) {
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

func (r *termRepo) GetByTier(dbc dbctx.Context, tier glossary.Tier, value string) (*types.Term, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid tier %q", tier)
	}
	var out []*types.Term
	if err := dbc.DB(r.db).Where(string(tier)+" = ?", value).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *termRepo) ExistsByTier(dbc dbctx.Context, tier glossary.Tier, value string, excludeID uuid.UUID) (bool, error) {
	if !tier.Valid() {
		return false, fmt.Errorf("invalid tier %q", tier)
	}
	q := dbc.DB(r.db).Model(&types.Term{}).Where(string(tier)+" = ?", value)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *termRepo) ListByTopic(dbc dbctx.Context, topicID uuid.UUID) ([]*types.Term, error) {
	var out []*types.Term
	if topicID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("topic_id = ?", topicID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *termRepo) ListByFirstLetter(dbc dbctx.Context, topicID uuid.UUID, letter string, limit int) ([]*types.Term, error) {
	var out []*types.Term
	if topicID == uuid.Nil || letter == "" {
		return out, nil
	}
	q := dbc.DB(r.db).
		Where("topic_id = ? AND first_letter = ?", topicID, letter).
		Order("stemmed_text ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *termRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Term{}).Where("id = ?", id).Updates(updates).Error
}

func (r *termRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Term{}).Error
}
