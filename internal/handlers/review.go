package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/middleware"
	"github.com/huangang/annoreview/internal/services"
	"github.com/huangang/annoreview/pkg/response"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{
		reviewService: services.NewReviewService(db),
	}
}

func reviewIDParam(c *gin.Context) (uint, bool) {
	return uintParam(c, "review_id", "review")
}

// ListByTask
// GET /api/projects/:id/tasks/:task_id/reviews
func (h *ReviewHandler) ListByTask(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req services.ReviewListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.reviewService.ListByTask(projectID, c.Param("task_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// ListMine returns the caller's reviews across projects
// GET /api/reviews/mine
func (h *ReviewHandler) ListMine(c *gin.Context) {
	var req services.ReviewListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.reviewService.ListByReviewer(middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Create
// POST /api/projects/:id/tasks/:task_id/reviews
// POST /api/projects/:id/tasks/:task_id/review
func (h *ReviewHandler) Create(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req services.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviewService.Create(projectID, c.Param("task_id"), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, review)
}

// Get
// GET /api/projects/:id/tasks/:task_id/reviews/:review_id
func (h *ReviewHandler) Get(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	reviewID, ok := reviewIDParam(c)
	if !ok {
		return
	}

	review, err := h.reviewService.Get(projectID, c.Param("task_id"), reviewID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, review)
}

// Update replaces events and comment; only the author may do so
// PUT /api/projects/:id/tasks/:task_id/reviews/:review_id
func (h *ReviewHandler) Update(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	reviewID, ok := reviewIDParam(c)
	if !ok {
		return
	}

	var req services.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviewService.Update(projectID, c.Param("task_id"), reviewID, middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, review)
}

// Delete
// DELETE /api/projects/:id/tasks/:task_id/reviews/:review_id
func (h *ReviewHandler) Delete(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	reviewID, ok := reviewIDParam(c)
	if !ok {
		return
	}

	review, err := h.reviewService.Delete(projectID, c.Param("task_id"), reviewID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, review)
}
