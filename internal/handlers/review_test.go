package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/internal/services"
)

func TestReviewHandler_Lifecycle(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)
	pid := createProject(t, r, 1, "alpha")
	doJSON(r, "POST", fmt.Sprintf("/api/projects/%d/tasks", pid), 1, `{"id":"t1","article":"hello"}`)
	base := fmt.Sprintf("/api/projects/%d/tasks/t1", pid)

	w := doJSON(r, "POST", base+"/review", 5, `{"events":[{"type":"Y"}],"comment":"ok"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create via alias: status %d (%s)", w.Code, w.Body.String())
	}
	var review models.Review
	decode(t, w, &review)
	if review.ReviewerID != 5 {
		t.Errorf("reviewer = %d, expected 5", review.ReviewerID)
	}
	reviewPath := fmt.Sprintf("%s/reviews/%d", base, review.ID)

	var list services.ReviewListResponse
	decode(t, doJSON(r, "GET", base+"/reviews", 1, ""), &list)
	if list.Total != 1 {
		t.Errorf("task reviews total = %d", list.Total)
	}
	decode(t, doJSON(r, "GET", "/api/reviews/mine", 5, ""), &list)
	if list.Total != 1 {
		t.Errorf("mine total = %d", list.Total)
	}
	decode(t, doJSON(r, "GET", "/api/reviews/mine", 6, ""), &list)
	if list.Total != 0 {
		t.Errorf("other reviewer total = %d", list.Total)
	}

	if w := doJSON(r, "PUT", reviewPath, 6, `{"events":[]}`); w.Code != http.StatusNotFound {
		t.Errorf("update by non-author: status %d", w.Code)
	}
	if w := doJSON(r, "PUT", reviewPath, 5, `{"events":[]}`); w.Code != http.StatusOK {
		t.Errorf("update by author: status %d", w.Code)
	}
	if w := doJSON(r, "DELETE", reviewPath, 6, ""); w.Code != http.StatusNotFound {
		t.Errorf("delete by non-author: status %d", w.Code)
	}
	if w := doJSON(r, "DELETE", reviewPath, 5, ""); w.Code != http.StatusOK {
		t.Errorf("delete by author: status %d", w.Code)
	}
	if w := doJSON(r, "GET", reviewPath, 5, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d", w.Code)
	}
}

func TestReviewHandler_Errors(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)
	pid := createProject(t, r, 1, "alpha")
	other := createProject(t, r, 1, "beta")
	doJSON(r, "POST", fmt.Sprintf("/api/projects/%d/tasks", pid), 1, `{"id":"t1","article":"hello"}`)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"missing task", fmt.Sprintf("/api/projects/%d/tasks/nope/reviews", pid), `{"events":[]}`, http.StatusNotFound},
		{"task of another project", fmt.Sprintf("/api/projects/%d/tasks/t1/reviews", other), `{"events":[]}`, http.StatusNotFound},
		{"malformed body", fmt.Sprintf("/api/projects/%d/tasks/t1/reviews", pid), `{"events":`, http.StatusBadRequest},
		{"invalid review id", fmt.Sprintf("/api/projects/%d/tasks/t1/reviews/x", pid), "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := "POST"
			if tt.body == "" {
				method = "GET"
			}
			if w := doJSON(r, method, tt.path, 5, tt.body); w.Code != tt.status {
				t.Errorf("status = %d, expected %d (%s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}
