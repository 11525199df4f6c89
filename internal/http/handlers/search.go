package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
	"github.com/yungbote/termbase-backend/internal/http/response"
	"github.com/yungbote/termbase-backend/internal/observability"
	"github.com/yungbote/termbase-backend/internal/services"
)

type SearchHandler struct {
	search  services.SearchService
	metrics *observability.Metrics
}

func NewSearchHandler(search services.SearchService, metrics *observability.Metrics) *SearchHandler {
	return &SearchHandler{search: search, metrics: metrics}
}

// POST /api/search
// body: { "query": "...", "k": 5, "language": "english" }
func (h *SearchHandler) Search(c *gin.Context) {
	var req struct {
		Query    string `json:"query" binding:"required"`
		K        *int   `json:"k"`
		Language string `json:"language"`
	}
	if !bindJSON(c, &req) {
		return
	}
	// Absent k defaults; an explicit 0 is rejected by the service.
	k := 5
	if req.K != nil {
		k = *req.K
	}
	start := time.Now()
	res, err := h.search.Search(c.Request.Context(), req.Query, k, req.Language)
	if err != nil {
		status := string(glossary.CodeOf(err))
		if status == "" {
			status = "error"
		}
		h.metrics.ObserveSearch(status, time.Since(start))
		fail(c, err)
		return
	}
	h.metrics.ObserveSearch("ok", time.Since(start))
	response.RespondOK(c, res)
}
