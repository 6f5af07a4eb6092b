package services

import (
	"testing"

	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
)

func TestUserService_ListAndUpdate(t *testing.T) {
	db := newTestDB(t)
	auth := NewAuthService(db, nil, nil)
	admin, _ := auth.Register(&RegisterRequest{Username: "root", Password: "secret1"})
	user, _ := auth.Register(&RegisterRequest{Username: "reviewer", Password: "secret1"})

	svc := NewUserService(db)
	list, err := svc.List(&UserListRequest{Role: models.RoleUser})
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Items[0].Username != "reviewer" {
		t.Errorf("role filter = %+v", list)
	}

	updated, err := svc.Update(user.ID, admin.ID, &UpdateUserRequest{IsActive: boolPtr(false), Nickname: strPtr("Rev")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.IsActive || updated.Nickname != "Rev" || updated.Role != models.RoleUser {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := auth.Login(&LoginRequest{Username: "reviewer", Password: "secret1"}); err != ErrUserDisabled {
		t.Errorf("login of disabled user error = %v, expected ErrUserDisabled", err)
	}
}

func TestUserService_UpdateErrors(t *testing.T) {
	db := newTestDB(t)
	admin, _ := NewAuthService(db, nil, nil).Register(&RegisterRequest{Username: "root", Password: "secret1"})
	svc := NewUserService(db)

	tests := []struct {
		name string
		id   uint
		req  UpdateUserRequest
		kind apperr.Kind
	}{
		{"self", admin.ID, UpdateUserRequest{IsActive: boolPtr(false)}, apperr.KindValidation},
		{"bad role", 99, UpdateUserRequest{Role: strPtr("owner")}, apperr.KindValidation},
		{"nothing to update", 99, UpdateUserRequest{}, apperr.KindValidation},
		{"missing user", 99, UpdateUserRequest{Role: strPtr(models.RoleAdmin)}, apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(tt.id, admin.ID, &tt.req)
			if apperr.KindOf(err) != tt.kind {
				t.Errorf("error = %v, expected kind %s", err, tt.kind)
			}
		})
	}
}
