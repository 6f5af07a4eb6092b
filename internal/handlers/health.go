package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database and the export queue.
type HealthHandler struct {
	db    *gorm.DB
	queue services.ExportQueue
}

func NewHealthHandler(db *gorm.DB, queue services.ExportQueue) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "annoreview",
		"components": gin.H{
			"database":   dbStatus,
			"queue_mode": queueMode,
		},
	})
}
