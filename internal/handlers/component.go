package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/partbase-backend/internal/services"
)

type ComponentHandler struct {
	components services.ComponentService
}

func NewComponentHandler(components services.ComponentService) *ComponentHandler {
	return &ComponentHandler{components: components}
}

// GET /api/components/:id
func (h *ComponentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_component_id", err)
		return
	}
	component, err := h.components.GetByID(c.Request.Context(), id)
	if err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"component": component})
}

// GET /api/components/by-mpn/:mpn
func (h *ComponentHandler) GetByMPN(c *gin.Context) {
	component, err := h.components.GetByMPN(c.Request.Context(), c.Param("mpn"))
	if err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"component": component})
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// POST /api/components/bulk-delete
func (h *ComponentHandler) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.components.BulkDelete(c.Request.Context(), req.IDs); err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"deleted": len(req.IDs)})
}
