package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/internal/middleware"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name),
	}, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// asUser stands in for AuthRequired by reading the caller id from X-Test-User.
func asUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var id uint
		fmt.Sscan(c.GetHeader("X-Test-User"), &id)
		c.Set(middleware.ContextUserID, id)
		c.Next()
	}
}

// newTestRouter mounts the domain handlers the way cmd/server does, minus
// JWT verification.
func newTestRouter(t *testing.T, db *gorm.DB, maxUpload int64) *gin.Engine {
	t.Helper()
	exportService := services.NewExportService(db, t.TempDir())
	queue := services.NewSyncQueue(services.ExportJobProcessor(exportService))

	projects := NewProjectHandler(db)
	tasks := NewTaskHandler(db, maxUpload)
	reviews := NewReviewHandler(db)
	exports := NewExportHandler(db, exportService, queue)

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, queue).CheckHealth)
	api := r.Group("/api", asUser())
	api.GET("/projects", projects.List)
	api.POST("/projects", projects.Create)
	api.GET("/projects/:id", projects.GetByID)
	api.PUT("/projects/:id", projects.Update)
	api.DELETE("/projects/:id", projects.Delete)
	api.GET("/projects/:id/export", exports.Download)
	api.POST("/projects/:id/export/jobs", exports.CreateJob)
	api.GET("/projects/:id/tasks", tasks.List)
	api.POST("/projects/:id/tasks", tasks.Create)
	api.POST("/projects/:id/tasks/upload", tasks.Upload)
	api.GET("/projects/:id/tasks/:task_id", tasks.Get)
	api.PUT("/projects/:id/tasks/:task_id", tasks.Update)
	api.DELETE("/projects/:id/tasks/:task_id", tasks.Delete)
	api.GET("/projects/:id/tasks/:task_id/reviews", reviews.ListByTask)
	api.POST("/projects/:id/tasks/:task_id/reviews", reviews.Create)
	api.POST("/projects/:id/tasks/:task_id/review", reviews.Create)
	api.GET("/projects/:id/tasks/:task_id/reviews/:review_id", reviews.Get)
	api.PUT("/projects/:id/tasks/:task_id/reviews/:review_id", reviews.Update)
	api.DELETE("/projects/:id/tasks/:task_id/reviews/:review_id", reviews.Delete)
	api.GET("/reviews/mine", reviews.ListMine)
	return r
}

func doRequest(r http.Handler, method, path string, userID uint, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID > 0 {
		req.Header.Set("X-Test-User", fmt.Sprint(userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, path string, userID uint, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return doRequest(r, method, path, userID, reader, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, w.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v (%s)", err, env.Data)
		}
	}
	return env
}

func createProject(t *testing.T, r http.Handler, owner uint, name string) uint {
	t.Helper()
	w := doJSON(r, "POST", "/api/projects", owner, fmt.Sprintf(`{"name":%q}`, name))
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: status %d, body %s", w.Code, w.Body.String())
	}
	var project models.Project
	decode(t, w, &project)
	return project.ID
}

func upload(r http.Handler, projectID uint, body []byte) *httptest.ResponseRecorder {
	return doRequest(r, "POST", fmt.Sprintf("/api/projects/%d/tasks/upload", projectID), 1,
		bytes.NewReader(body), "application/octet-stream")
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
