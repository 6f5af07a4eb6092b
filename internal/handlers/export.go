package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/middleware"
	"github.com/huangang/annoreview/internal/services"
	"github.com/huangang/annoreview/pkg/response"
	"gorm.io/gorm"
)

const exportContentType = "application/jsonl"

type ExportHandler struct {
	exportService  *services.ExportService
	projectService *services.ProjectService
	queue          services.ExportQueue
}

func NewExportHandler(db *gorm.DB, exportService *services.ExportService, queue services.ExportQueue) *ExportHandler {
	return &ExportHandler{
		exportService:  exportService,
		projectService: services.NewProjectService(db),
		queue:          queue,
	}
}

// Download writes the export file and streams it back as an attachment
// GET /api/projects/:id/export
func (h *ExportHandler) Download(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	result, err := h.exportService.Export(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", exportContentType)
	c.FileAttachment(result.Path, fmt.Sprintf("project_%d_reviews.jsonl", projectID))
}

// CreateJob queues an export. Without Redis the export runs inline and the
// result is returned directly.
// POST /api/projects/:id/export/jobs
func (h *ExportHandler) CreateJob(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	if _, err := h.projectService.Get(projectID); err != nil {
		respondError(c, err)
		return
	}

	job := services.NewExportJob(projectID, middleware.GetUserID(c))
	info, err := h.queue.Enqueue(c.Request.Context(), job)
	if err != nil {
		respondError(c, err)
		return
	}

	if info.Async {
		response.Accepted(c, info)
		return
	}
	response.Success(c, info)
}
