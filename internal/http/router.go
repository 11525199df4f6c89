package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/termbase-backend/internal/http/handlers"
	httpMW "github.com/yungbote/termbase-backend/internal/http/middleware"
	"github.com/yungbote/termbase-backend/internal/observability"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	ServiceName string

	HealthHandler      *httpH.HealthHandler
	TopicHandler       *httpH.TopicHandler
	TermHandler        *httpH.TermHandler
	DescriptionHandler *httpH.DescriptionHandler
	RelationHandler    *httpH.RelationHandler
	SearchHandler      *httpH.SearchHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")

	// Topics
	if cfg.TopicHandler != nil {
		api.POST("/topics", cfg.TopicHandler.Create)
		api.GET("/topics", cfg.TopicHandler.List)
		api.GET("/topics/by-name/:name", cfg.TopicHandler.GetByName)
		api.GET("/topics/:id", cfg.TopicHandler.Get)
		api.PUT("/topics/:id", cfg.TopicHandler.Update)
		api.DELETE("/topics/:id", cfg.TopicHandler.Delete)
	}

	// Terms
	if cfg.TermHandler != nil {
		api.POST("/terms", cfg.TermHandler.Create)
		api.GET("/terms", cfg.TermHandler.List)
		api.GET("/terms/:id", cfg.TermHandler.Get)
		api.GET("/terms/:id/description", cfg.TermHandler.GetDescription)
		api.PUT("/terms/:id/raw-text", cfg.TermHandler.UpdateRaw)
		api.PATCH("/terms/:id/cleaned-text", cfg.TermHandler.UpdateCleaned)
		api.PATCH("/terms/:id/stemmed-text", cfg.TermHandler.UpdateStemmed)
		api.DELETE("/terms/:id", cfg.TermHandler.Delete)
	}

	// Descriptions
	if cfg.DescriptionHandler != nil {
		api.POST("/descriptions", cfg.DescriptionHandler.Create)
		api.GET("/descriptions/:id", cfg.DescriptionHandler.Get)
		api.PUT("/descriptions/:id/raw-text", cfg.DescriptionHandler.UpdateRaw)
		api.PATCH("/descriptions/:id/cleaned-text", cfg.DescriptionHandler.UpdateCleaned)
		api.PATCH("/descriptions/:id/stemmed-text", cfg.DescriptionHandler.UpdateStemmed)
		api.DELETE("/descriptions/:id", cfg.DescriptionHandler.Delete)
		api.GET("/descriptions/:id/graph", cfg.DescriptionHandler.Graph)
		api.GET("/descriptions/:id/relations", cfg.DescriptionHandler.Relations)
	}

	// Relations
	if cfg.RelationHandler != nil {
		api.POST("/relations", cfg.RelationHandler.Add)
		api.DELETE("/relations/:id", cfg.RelationHandler.Remove)
	}

	// Search
	if cfg.SearchHandler != nil {
		api.POST("/search", cfg.SearchHandler.Search)
	}

	return r
}
