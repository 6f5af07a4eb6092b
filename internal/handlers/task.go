package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/middleware"
	"github.com/huangang/annoreview/internal/services"
	"github.com/huangang/annoreview/pkg/response"
	"gorm.io/gorm"
)

type TaskHandler struct {
	taskService    *services.TaskService
	ingestService  *services.IngestService
	maxUploadBytes int64
}

func NewTaskHandler(db *gorm.DB, maxUploadBytes int64) *TaskHandler {
	return &TaskHandler{
		taskService:    services.NewTaskService(db),
		ingestService:  services.NewIngestService(db),
		maxUploadBytes: maxUploadBytes,
	}
}

// List returns a page of tasks with the caller's review status
// GET /api/projects/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req services.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.taskService.List(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Get
// GET /api/projects/:id/tasks/:task_id
func (h *TaskHandler) Get(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(projectID, c.Param("task_id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, task)
}

// Create adds a single task
// POST /api/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(projectID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, task)
}

// Update replaces article and events
// PUT /api/projects/:id/tasks/:task_id
func (h *TaskHandler) Update(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(projectID, c.Param("task_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, task)
}

// Delete removes a task and its reviews
// DELETE /api/projects/:id/tasks/:task_id
func (h *TaskHandler) Delete(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.Delete(projectID, c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, task)
}

// Upload bulk-creates tasks from a JSONL or CSV document, sent either as the
// raw body or as the multipart field "file".
// POST /api/projects/:id/tasks/upload
func (h *TaskHandler) Upload(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	data, err := readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.Error(c, response.NewTooLarge(fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes)))
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.ingestService.Upload(projectID, data)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, result)
}

func readUpload(c *gin.Context) ([]byte, error) {
	if c.ContentType() != "multipart/form-data" {
		return io.ReadAll(c.Request.Body)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
