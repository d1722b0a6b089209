package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/strata-kb/strata/internal/pkg/errcode"
	"github.com/strata-kb/strata/internal/pkg/response"
	"github.com/strata-kb/strata/internal/service"
)

type DocumentHandler struct {
	svc *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit, offset := parsePage(c)
	docs, err := h.svc.List(c.Request.Context(), getOrgID(c),
		c.Query("category_id"), c.Query("query"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), getOrgID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) ListVersions(c *gin.Context) {
	versions, err := h.svc.ListVersions(c.Request.Context(), getOrgID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, versions)
}

func (h *DocumentHandler) GetVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		response.Error(c, errcode.ErrInvalid, "invalid version")
		return
	}
	snapshot, err := h.svc.GetVersion(c.Request.Context(), getOrgID(c), c.Param("id"), version)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, snapshot)
}
