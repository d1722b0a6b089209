package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/strata-kb/strata/internal/pkg/response"
	"github.com/strata-kb/strata/internal/service"
)

type CategoryHandler struct {
	svc *service.CategoryService
}

func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.svc.List(c.Request.Context(), getOrgID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, categories)
}
