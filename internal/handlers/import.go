package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/repos"
	"github.com/yungbote/partbase-backend/internal/services"
)

type ImportHandler struct {
	log       *logger.Logger
	ingestion services.IngestionService
	jobRepo   repos.ImportJobRepo
}

func NewImportHandler(log *logger.Logger, ingestion services.IngestionService, jobRepo repos.ImportJobRepo) *ImportHandler {
	return &ImportHandler{
		log:       log.With("handler", "ImportHandler"),
		ingestion: ingestion,
		jobRepo:   jobRepo,
	}
}

type batchImportRequest struct {
	MPNs           []string `json:"mpns" binding:"required"`
	SkipExisting   bool     `json:"skip_existing"`
	ExtractPinouts bool     `json:"extract_pinouts"`
}

// POST /api/imports/batch
func (h *ImportHandler) StartBatch(c *gin.Context) {
	var req batchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.ingestion.StartBatch(c.Request.Context(), req.MPNs, services.ImportOptions{
		SkipExisting:   req.SkipExisting,
		ExtractPinouts: req.ExtractPinouts,
	})
	if err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

type familyImportRequest struct {
	BaseMPN        string `json:"base_mpn" binding:"required"`
	SkipExisting   bool   `json:"skip_existing"`
	ExtractPinouts bool   `json:"extract_pinouts"`
}

// POST /api/imports/family
func (h *ImportHandler) StartFamily(c *gin.Context) {
	var req familyImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.ingestion.StartFamily(c.Request.Context(), req.BaseMPN, services.ImportOptions{
		SkipExisting:   req.SkipExisting,
		ExtractPinouts: req.ExtractPinouts,
	})
	if err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GET /api/imports/:id
func (h *ImportHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobRepo.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// POST /api/imports/:id/cancel
func (h *ImportHandler) CancelJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	if err := h.ingestion.CancelJob(c.Request.Context(), jobID); err != nil {
		status, code := statusFor(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"cancel_requested": true})
}
