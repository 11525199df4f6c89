package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/termbase-backend/internal/domain"
	"github.com/yungbote/termbase-backend/internal/http/response"
	"github.com/yungbote/termbase-backend/internal/services"
)

type DescriptionHandler struct {
	descriptions services.DescriptionService
	relations    services.RelationService
}

func NewDescriptionHandler(descriptions services.DescriptionService, relations services.RelationService) *DescriptionHandler {
	return &DescriptionHandler{descriptions: descriptions, relations: relations}
}

// POST /api/descriptions
// body: { "term_id": "...", "raw_text": "...", "language": "english", "info": "..." }
// The graph and embedding are built in the background; 201 means the text
// row is stored.
func (h *DescriptionHandler) Create(c *gin.Context) {
	var req struct {
		TermID   uuid.UUID `json:"term_id" binding:"required"`
		RawText  string    `json:"raw_text" binding:"required"`
		Language string    `json:"language"`
		Info     *string   `json:"info"`
	}
	if !bindJSON(c, &req) {
		return
	}
	desc, created, err := h.descriptions.Create(c.Request.Context(), services.CreateDescriptionInput{
		TermID:   req.TermID,
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
	c.JSON(status, gin.H{"description": desc, "created": created})
}

// GET /api/descriptions/:id
func (h *DescriptionHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	desc, err := h.descriptions.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"description": desc})
}

// PUT /api/descriptions/:id/raw-text
func (h *DescriptionHandler) UpdateRaw(c *gin.Context) {
	h.updateText(c, h.descriptions.UpdateRaw)
}

// PATCH /api/descriptions/:id/cleaned-text
func (h *DescriptionHandler) UpdateCleaned(c *gin.Context) {
	h.updateText(c, h.descriptions.UpdateCleaned)
}

// PATCH /api/descriptions/:id/stemmed-text
func (h *DescriptionHandler) UpdateStemmed(c *gin.Context) {
	h.updateText(c, h.descriptions.UpdateStemmed)
}

func (h *DescriptionHandler) updateText(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, text string) (*types.Description, error)) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req textBody
	if !bindJSON(c, &req) {
		return
	}
	desc, err := apply(c.Request.Context(), id, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"description": desc})
}

// DELETE /api/descriptions/:id
func (h *DescriptionHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.descriptions.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/descriptions/:id/graph
func (h *DescriptionHandler) Graph(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	graph, err := h.relations.GetGraph(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"graph": graph})
}

// GET /api/descriptions/:id/relations
func (h *DescriptionHandler) Relations(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rels, err := h.relations.ListRelations(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"relations": rels})
}
