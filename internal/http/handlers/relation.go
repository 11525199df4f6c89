package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/termbase-backend/internal/http/response"
	"github.com/yungbote/termbase-backend/internal/services"
)

type RelationHandler struct {
	relations services.RelationService
}

func NewRelationHandler(relations services.RelationService) *RelationHandler {
	return &RelationHandler{relations: relations}
}

// POST /api/relations
// body: { "description_id", "subject", "subject_type", "predicate", "predicate_type", "object", "object_type", "position" }
func (h *RelationHandler) Add(c *gin.Context) {
	var req struct {
		DescriptionID uuid.UUID `json:"description_id" binding:"required"`
		Position      int       `json:"position"`
		Subject       string    `json:"subject"`
		SubjectType   *string   `json:"subject_type"`
		Predicate     string    `json:"predicate"`
		PredicateType *string   `json:"predicate_type"`
		Object        string    `json:"object"`
		ObjectType    *string   `json:"object_type"`
	}
	if !bindJSON(c, &req) {
		return
	}
	rel, graph, err := h.relations.Add(c.Request.Context(), services.AddRelationInput{
		DescriptionID: req.DescriptionID,
		Position:      req.Position,
		Subject:       req.Subject,
		SubjectType:   req.SubjectType,
		Predicate:     req.Predicate,
		PredicateType: req.PredicateType,
		Object:        req.Object,
		ObjectType:    req.ObjectType,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"relation": rel, "graph": graph})
}

// DELETE /api/relations/:id
func (h *RelationHandler) Remove(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.relations.Remove(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"relation":     res.Relation,
		"edge_removed": res.EdgeRemoved,
		"graph":        res.Graph,
	})
}
