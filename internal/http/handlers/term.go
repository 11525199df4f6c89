package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/http/response"
	"github.com/yungbote/termbase-backend/internal/services"
)

type TermHandler struct {
	terms        services.TermService
	descriptions services.DescriptionService
}

func NewTermHandler(terms services.TermService, descriptions services.DescriptionService) *TermHandler {
	return &TermHandler{terms: terms, descriptions: descriptions}
}

// POST /api/terms
// body: { "topic_id": "...", "raw_text": "...", "language": "english", "info": "..." }
func (h *TermHandler) Create(c *gin.Context) {
	var req struct {
		TopicID  uuid.UUID `json:"topic_id" binding:"required"`
		RawText  string    `json:"raw_text" binding:"required"`
		Language string    `json:"language"`
		Info     *string   `json:"info"`
	}
	if !bindJSON(c, &req) {
		return
	}
	term, created, err := h.terms.Create(c.Request.Context(), services.CreateTermInput{
		TopicID:  req.TopicID,
		RawText:  req.RawText,
		Language: req.Language,
		Info:     req.Info,
	})
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"term": term, "created": created})
}

// GET /api/terms/:id
func (h *TermHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	term, err := h.terms.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"term": term})
}

// GET /api/terms?topic_id=&first_letter=&limit=
func (h *TermHandler) List(c *gin.Context) {
	topicID, err := uuid.Parse(strings.TrimSpace(c.Query("topic_id")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("topic_id is required"))
		return
	}
	limit, ok := queryInt(c, "limit", services.DefaultLetterLimit)
	if !ok {
		return
	}
	terms, err := h.terms.ListByFirstLetter(c.Request.Context(), topicID, c.Query("first_letter"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"terms": terms})
}

// PUT /api/terms/:id/raw-text
func (h *TermHandler) UpdateRaw(c *gin.Context) {
	h.updateText(c, h.terms.UpdateRaw)
}

// PATCH /api/terms/:id/cleaned-text
func (h *TermHandler) UpdateCleaned(c *gin.Context) {
	h.updateText(c, h.terms.UpdateCleaned)
}

// PATCH /api/terms/:id/stemmed-text
func (h *TermHandler) UpdateStemmed(c *gin.Context) {
	h.updateText(c, h.terms.UpdateStemmed)
}

func (h *TermHandler) updateText(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, text string) (*types.Term, error)) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req textBody
	if !bindJSON(c, &req) {
		return
	}
	term, err := apply(c.Request.Context(), id, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"term": term})
}

// GET /api/terms/:id/description
func (h *TermHandler) GetDescription(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	desc, err := h.descriptions.GetByTermID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"description": desc})
}

// DELETE /api/terms/:id
func (h *TermHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.terms.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
