package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/strata-kb/strata/internal/pkg/errcode"
	"github.com/strata-kb/strata/internal/pkg/response"
	"github.com/strata-kb/strata/internal/service"
)

type approveDraftRequest struct {
	EditedContent string `json:"edited_content"`
}

type batchApproveRequest struct {
	DraftIDs []string `json:"draft_ids"`
}

type batchApproveResponse struct {
	ApprovedIDs []string `json:"approved_ids"`
}

type DraftHandler struct {
	svc *service.ReviewService
}

func NewDraftHandler(svc *service.ReviewService) *DraftHandler {
	return &DraftHandler{svc: svc}
}

func (h *DraftHandler) List(c *gin.Context) {
	limit, offset := parsePage(c)
	drafts, err := h.svc.ListDrafts(c.Request.Context(), getOrgID(c),
		c.Query("status"), c.Query("triage_level"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, drafts)
}

func (h *DraftHandler) Get(c *gin.Context) {
	draft, err := h.svc.GetDraft(c.Request.Context(), getOrgID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) Approve(c *gin.Context) {
	var req approveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	doc, err := h.svc.Approve(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id"), req.EditedContent)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DraftHandler) Reject(c *gin.Context) {
	if err := h.svc.Reject(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *DraftHandler) BatchApprove(c *gin.Context) {
	var req batchApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	if len(req.DraftIDs) == 0 {
		response.Error(c, errcode.ErrInvalid, "draft_ids is required")
		return
	}
	approved, err := h.svc.BatchApprove(c.Request.Context(), getOrgID(c), getUserID(c), req.DraftIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, batchApproveResponse{ApprovedIDs: approved})
}
