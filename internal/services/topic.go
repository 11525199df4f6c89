package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/data/db"
	"github.com/yungbote/termbase-backend/internal/data/repos"
	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/platform/dbctx"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type TopicService interface {
	// Create returns the existing topic when the name is already taken.
	Create(ctx context.Context, name string, info *string) (*types.Topic, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Topic, error)
	GetByName(ctx context.Context, name string) (*types.Topic, error)
	List(ctx context.Context) ([]*types.Topic, error)
	Update(ctx context.Context, id uuid.UUID, name *string, info *string) (*types.Topic, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type topicService struct {
	db          *gorm.DB
	log         *logger.Logger
	topics      repos.TopicRepo
	coordinator CoordinatorService
}

func NewTopicService(db *gorm.DB, log *logger.Logger, topics repos.TopicRepo, coordinator CoordinatorService) TopicService {
	return &topicService{
		db:          db,
		log:         log.With("service", "TopicService"),
		topics:      topics,
		coordinator: coordinator,
	}
}

func (s *topicService) Create(ctx context.Context, name string, info *string) (*types.Topic, bool, error) {
	const op = "topic.Create"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, invalid("missing_name", op, "topic name is required")
	}
	dbc := dbctx.New(ctx)
	existing, err := s.topics.GetByName(dbc, name)
	if err != nil {
		return nil, false, db.MapError(op, err)
	}
	if existing != nil {
		return existing, false, nil
	}
	row, err := s.topics.Create(dbc, &types.Topic{Name: name, Info: info})
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Lost a race with a concurrent create of the same name.
			if existing, gerr := s.topics.GetByName(dbc, name); gerr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, db.MapError(op, err)
	}
	s.log.Info("topic created", "topic_id", row.ID, "name", row.Name)
	return row, true, nil
}

func (s *topicService) Get(ctx context.Context, id uuid.UUID) (*types.Topic, error) {
	const op = "topic.Get"
	row, err := s.topics.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if row == nil {
		return nil, notFound("topic_not_found", op, fmt.Sprintf("topic %s not found", id))
	}
	return row, nil
}

func (s *topicService) GetByName(ctx context.Context, name string) (*types.Topic, error) {
	const op = "topic.GetByName"
	row, err := s.topics.GetByName(dbctx.New(ctx), strings.TrimSpace(name))
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if row == nil {
		return nil, notFound("topic_not_found", op, fmt.Sprintf("topic %q not found", name))
	}
	return row, nil
}

func (s *topicService) List(ctx context.Context) ([]*types.Topic, error) {
	rows, err := s.topics.List(dbctx.New(ctx))
	if err != nil {
		return nil, db.MapError("topic.List", err)
	}
	return rows, nil
}

func (s *topicService) Update(ctx context.Context, id uuid.UUID, name *string, info *string) (*types.Topic, error) {
	const op = "topic.Update"
	dbc := dbctx.New(ctx)
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, invalid("missing_name", op, "topic name must not be empty")
		}
		if n != current.Name {
			other, err := s.topics.GetByName(dbc, n)
			if err != nil {
				return nil, db.MapError(op, err)
			}
			if other != nil {
				return nil, conflict("duplicate_topic_name", op, fmt.Sprintf("topic %q already exists", n))
			}
			updates["name"] = n
		}
	}
	if info != nil {
		updates["info"] = *info
	}
	if len(updates) == 0 {
		return current, nil
	}
	if err := s.topics.UpdateFields(dbc, id, updates); err != nil {
		return nil, db.MapError(op, err)
	}
	return s.Get(ctx, id)
}

func (s *topicService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.coordinator.DeleteTopic(ctx, id)
}
