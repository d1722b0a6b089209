package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/strata-kb/strata/internal/pkg/errcode"
	"github.com/strata-kb/strata/internal/pkg/response"
	"github.com/strata-kb/strata/internal/service"
)

type askRequest struct {
	Question string `json:"question"`
}

type AskHandler struct {
	svc *service.AnswerService
}

func NewAskHandler(svc *service.AnswerService) *AskHandler {
	return &AskHandler{svc: svc}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	result, err := h.svc.Answer(c.Request.Context(), getOrgID(c), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
