package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/partbase-backend/internal/services"
)

type ReplacementHandler struct {
	replacements services.ReplacementService
}

func NewReplacementHandler(replacements services.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{replacements: replacements}
}

// GET /api/components/:id/replacements
func (h *ReplacementHandler) FindReplacements(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_component_id", err)
		return
	}
	results, err := h.replacements.FindReplacements(c.Request.Context(), id)
	if err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"replacements": results, "count": len(results)})
}
