package services

import (
	"testing"
	"time"

	"github.com/huangang/annoreview/internal/models"
)

func TestSystemLog_WriteAndList(t *testing.T) {
	db := newTestDB(t)
	InitSystemLogger(db)
	t.Cleanup(func() { InitSystemLogger(nil) })

	uid := uint(3)
	LogInfo("project", "create", "created project alpha", &uid, "10.0.0.1", "curl", map[string]string{"name": "alpha"})
	LogWarning("auth", "login_failed", "bad password", nil, "10.0.0.2", "curl", nil)
	LogError("export", "export_project", "disk full", nil, "", "", nil)

	svc := NewSystemLogService(db)
	resp, err := svc.List(&SystemLogListRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 3 || resp.Page != 1 || resp.PageSize != 20 {
		t.Errorf("List() = total %d page %d size %d", resp.Total, resp.Page, resp.PageSize)
	}

	resp, _ = svc.List(&SystemLogListRequest{Level: "info"})
	if len(resp.Items) != 1 {
		t.Fatalf("info logs = %d, expected 1", len(resp.Items))
	}
	entry := resp.Items[0]
	if entry.UserID == nil || *entry.UserID != 3 {
		t.Errorf("UserID = %v, expected 3", entry.UserID)
	}
	if string(models.RawJSON(entry.Extra)) != `{"name":"alpha"}` {
		t.Errorf("Extra = %s", models.RawJSON(entry.Extra))
	}

	resp, _ = svc.List(&SystemLogListRequest{Search: "password"})
	if resp.Total != 1 || resp.Items[0].Module != "auth" {
		t.Errorf("search result = %+v", resp.Items)
	}

	today := time.Now().Format("2006-01-02")
	resp, _ = svc.List(&SystemLogListRequest{StartDate: today, EndDate: today})
	if resp.Total != 3 {
		t.Errorf("date range total = %d, expected 3", resp.Total)
	}

	modules, err := svc.GetModules()
	if err != nil {
		t.Fatalf("GetModules() error = %v", err)
	}
	if len(modules) != 3 || modules[0] != "auth" {
		t.Errorf("GetModules() = %v", modules)
	}
}

func TestSystemLog_DisabledWithoutDB(t *testing.T) {
	InitSystemLogger(nil)
	LogInfo("m", "a", "nothing happens", nil, "", "", nil)
}

func TestSystemLogService_CleanupOldLogs(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemLogService(db)

	db.Create(&models.SystemLog{Level: "info", Action: "old", CreatedAt: time.Now().AddDate(0, 0, -10)})
	db.Create(&models.SystemLog{Level: "info", Action: "recent", CreatedAt: time.Now().AddDate(0, 0, -1)})

	if n, _ := svc.CleanupOldLogs(0); n != 0 {
		t.Errorf("retention 0 deleted %d logs", n)
	}
	n, err := svc.CleanupOldLogs(5)
	if err != nil {
		t.Fatalf("CleanupOldLogs() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d logs, expected 1", n)
	}
}
