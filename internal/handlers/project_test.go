package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/internal/services"
)

func TestProjectHandler_CRUD(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)
	id := createProject(t, r, 1, "alpha")

	w := doJSON(r, "GET", fmt.Sprintf("/api/projects/%d", id), 2, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}

	w = doJSON(r, "PUT", fmt.Sprintf("/api/projects/%d", id), 1, `{"name":"beta","description":"renamed"}`)
	var updated models.Project
	decode(t, w, &updated)
	if w.Code != http.StatusOK || updated.Name != "beta" {
		t.Errorf("update: status %d, name %q", w.Code, updated.Name)
	}

	var list services.ProjectListResponse
	decode(t, doJSON(r, "GET", "/api/projects", 1, ""), &list)
	if list.Total != 1 || len(list.Items) != 1 {
		t.Errorf("owner list = %+v", list)
	}
	decode(t, doJSON(r, "GET", "/api/projects", 2, ""), &list)
	if list.Total != 0 {
		t.Errorf("other user should see no projects, got %d", list.Total)
	}

	w = doJSON(r, "DELETE", fmt.Sprintf("/api/projects/%d", id), 1, "")
	if w.Code != http.StatusOK {
		t.Errorf("delete: status %d", w.Code)
	}
	w = doJSON(r, "DELETE", fmt.Sprintf("/api/projects/%d", id), 1, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, expected %d", w.Code, http.StatusNotFound)
	}
}

func TestProjectHandler_Errors(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)
	id := createProject(t, r, 1, "alpha")

	tests := []struct {
		name   string
		method string
		path   string
		user   uint
		body   string
		status int
	}{
		{"invalid id", "GET", "/api/projects/abc", 1, "", http.StatusBadRequest},
		{"missing", "GET", "/api/projects/999", 1, "", http.StatusNotFound},
		{"missing name", "POST", "/api/projects", 1, `{}`, http.StatusBadRequest},
		{"blank name", "POST", "/api/projects", 1, `{"name":"   "}`, http.StatusBadRequest},
		{"duplicate name", "POST", "/api/projects", 2, `{"name":"alpha"}`, http.StatusConflict},
		{"update by non-owner", "PUT", fmt.Sprintf("/api/projects/%d", id), 2, `{"name":"x"}`, http.StatusNotFound},
		{"delete by non-owner", "DELETE", fmt.Sprintf("/api/projects/%d", id), 2, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, tt.method, tt.path, tt.user, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, expected %d (%s)", w.Code, tt.status, w.Body.String())
			}
			env := decode(t, w, nil)
			if env.Code != tt.status || env.Message == "" {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}
