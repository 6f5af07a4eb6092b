package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/huangang/annoreview/internal/services"
)

func TestExportHandler_Download(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)
	pid := createProject(t, r, 1, "alpha")

	upload(r, pid, []byte(`{"id":"t1","text":"hello","events":[{"type":"X"}]}`))
	doJSON(r, "POST", fmt.Sprintf("/api/projects/%d/tasks/t1/reviews", pid), 5, `{"events":[{"type":"Y"}],"comment":"ok"}`)

	w := doJSON(r, "GET", fmt.Sprintf("/api/projects/%d/export", pid), 1, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d (%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/jsonl" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, fmt.Sprintf("project_%d_reviews.jsonl", pid)) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	expected := `{"id":"t1","article":"hello","original_events":[{"type":"X"}],"reviewed_events":[{"reviewer_id":5,"events":[{"type":"Y"}],"comment":"ok"}]}` + "\n"
	if w.Body.String() != expected {
		t.Errorf("body =\n%s\nexpected\n%s", w.Body.String(), expected)
	}
}

func TestExportHandler_MissingProject(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)

	if w := doJSON(r, "GET", "/api/projects/42/export", 1, ""); w.Code != http.StatusNotFound {
		t.Errorf("download: status %d", w.Code)
	}
	if w := doJSON(r, "POST", "/api/projects/42/export/jobs", 1, ""); w.Code != http.StatusNotFound {
		t.Errorf("job: status %d", w.Code)
	}
}

func TestExportHandler_SyncJob(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)
	pid := createProject(t, r, 1, "alpha")

	w := doJSON(r, "POST", fmt.Sprintf("/api/projects/%d/export/jobs", pid), 1, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d (%s)", w.Code, w.Body.String())
	}
	var info services.JobInfo
	decode(t, w, &info)
	if info.Async || info.JobID == "" || info.Result == nil {
		t.Fatalf("job info = %+v", info)
	}
	if info.Result.Records != 0 || !strings.HasSuffix(info.Result.Path, "_alpha_reviews.jsonl") {
		t.Errorf("result = %+v", info.Result)
	}
}

func TestHealthHandler(t *testing.T) {
	r := newTestRouter(t, newTestDB(t), 1<<20)

	w := doJSON(r, "GET", "/health", 0, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"queue_mode":"sync"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
