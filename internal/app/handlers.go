package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/http"
	httpH "github.com/yungbote/termbase-backend/internal/http/handlers"
	"github.com/yungbote/termbase-backend/internal/observability"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Topic       *httpH.TopicHandler
	Term        *httpH.TermHandler
	Description *httpH.DescriptionHandler
	Relation    *httpH.RelationHandler
	Search      *httpH.SearchHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Topic:       httpH.NewTopicHandler(services.Topic),
		Term:        httpH.NewTermHandler(services.Term, services.Description),
		Description: httpH.NewDescriptionHandler(services.Description, services.Relation),
		Relation:    httpH.NewRelationHandler(services.Relation),
		Search:      httpH.NewSearchHandler(services.Search, metrics),
	}
}

func wireServer(cfg Config, log *logger.Logger, handlers Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.ServerConfig{
		Addr:            cfg.HTTPAddr,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, http.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		CORSOrigins:        cfg.CORSOrigins,
		ServiceName:        ServiceName,
		HealthHandler:      handlers.Health,
		TopicHandler:       handlers.Topic,
		TermHandler:        handlers.Term,
		DescriptionHandler: handlers.Description,
		RelationHandler:    handlers.Relation,
		SearchHandler:      handlers.Search,
	}, log)
}
