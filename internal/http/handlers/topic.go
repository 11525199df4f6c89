package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/termbase-backend/internal/http/response"
	"github.com/yungbote/termbase-backend/internal/services"
)

type TopicHandler struct {
	topics services.TopicService
}

func NewTopicHandler(topics services.TopicService) *TopicHandler {
	return &TopicHandler{topics: topics}
}

// POST /api/topics
// body: { "name": "...", "info": "..." }
func (h *TopicHandler) Create(c *gin.Context) {
	var req struct {
		Name string  `json:"name" binding:"required"`
		Info *string `json:"info"`
	}
	if !bindJSON(c, &req) {
		return
	}
	topic, created, err := h.topics.Create(c.Request.Context(), req.Name, req.Info)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"topic": topic, "created": created})
}

// GET /api/topics
func (h *TopicHandler) List(c *gin.Context) {
	topics, err := h.topics.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topics": topics})
}

// GET /api/topics/:id
func (h *TopicHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	topic, err := h.topics.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topic": topic})
}

// GET /api/topics/by-name/:name
func (h *TopicHandler) GetByName(c *gin.Context) {
	topic, err := h.topics.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topic": topic})
}

// PUT /api/topics/:id
// body: { "name": "...", "info": "..." } (both optional)
func (h *TopicHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name *string `json:"name"`
		Info *string `json:"info"`
	}
	if !bindJSON(c, &req) {
		return
	}
	topic, err := h.topics.Update(c.Request.Context(), id, req.Name, req.Info)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topic": topic})
}

// DELETE /api/topics/:id
func (h *TopicHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.topics.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
