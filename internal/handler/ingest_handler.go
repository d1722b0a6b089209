package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/errcode"
	"github.com/strata-kb/strata/internal/pkg/response"
	"github.com/strata-kb/strata/internal/service"
)

type startIngestRequest struct {
	Source string              `json:"source"`
	Items  []model.ContentItem `json:"items"`
}

type IngestHandler struct {
	svc *service.IngestService
}

func NewIngestHandler(svc *service.IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

func (h *IngestHandler) StartJob(c *gin.Context) {
	var req startIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	job, err := h.svc.StartJob(c.Request.Context(), getOrgID(c), req.Source, req.Items)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}

func (h *IngestHandler) GetJob(c *gin.Context) {
	job, err := h.svc.Status(c.Request.Context(), getOrgID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}
