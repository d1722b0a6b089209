package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strata-kb/strata/internal/middleware"
)

type RouterDeps struct {
	Ingest     *IngestHandler
	Drafts     *DraftHandler
	Documents  *DocumentHandler
	Ask        *AskHandler
	Categories *CategoryHandler
	JWTSecret  []byte
	AskWindow  time.Duration
}

// RegisterRoutes mounts the API under the given group. Every route requires a
// valid token; approval routes additionally require the manager role.
func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authed := api.Group("", middleware.JWTAuth(deps.JWTSecret))

	authed.POST("/ingest/jobs", deps.Ingest.StartJob)
	authed.GET("/ingest/jobs/:id", deps.Ingest.GetJob)

	authed.GET("/drafts", deps.Drafts.List)
	authed.GET("/drafts/:id", deps.Drafts.Get)

	manager := authed.Group("", middleware.RequireRole(middleware.RoleManager))
	manager.POST("/drafts/:id/approve", deps.Drafts.Approve)
	manager.POST("/drafts/:id/reject", deps.Drafts.Reject)
	manager.POST("/drafts/batch-approve", deps.Drafts.BatchApprove)

	authed.GET("/documents", deps.Documents.List)
	authed.GET("/documents/:id", deps.Documents.Get)
	authed.GET("/documents/:id/versions", deps.Documents.ListVersions)
	authed.GET("/documents/:id/versions/:version", deps.Documents.GetVersion)

	askGroup := authed.Group("")
	if deps.AskWindow > 0 {
		askGroup.Use(middleware.RateLimit(deps.AskWindow))
	}
	askGroup.POST("/ask", deps.Ask.Ask)

	authed.GET("/categories", deps.Categories.List)
}
