package services

import (
	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
	"gorm.io/gorm"
)

// UserService is the admin view of accounts. Accounts are deactivated rather
// than deleted so reviews keep a valid reviewer.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	Skip     int    `form:"skip" binding:"min=0"`
	Limit    int    `form:"limit" binding:"min=0,max=1000"`
	Username string `form:"username"`
	Role     string `form:"role"`
	AuthType string `form:"auth_type"`
}

type UserListResponse struct {
	Total int64         `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
	Items []models.User `json:"items"`
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Nickname *string `json:"nickname"`
}

func (s *UserService) List(req *UserListRequest) (*UserListResponse, error) {
	req.Skip, req.Limit = normalizePage(req.Skip, req.Limit)

	query := s.db.Model(&models.User{})
	if req.Username != "" {
		query = query.Where("username LIKE ? ESCAPE '!'", containsPattern(req.Username))
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.AuthType != "" {
		query = query.Where("auth_type = ?", req.AuthType)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	users := []models.User{}
	if err := query.Order("id ASC").Offset(req.Skip).Limit(req.Limit).Find(&users).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}

	return &UserListResponse{Total: total, Skip: req.Skip, Limit: req.Limit, Items: users}, nil
}

// Update applies an admin's change to another account. Admins cannot change
// their own role or status.
func (s *UserService) Update(id, actorID uint, req *UpdateUserRequest) (*models.User, error) {
	if id == actorID {
		return nil, apperr.Validation(nil, "cannot modify your own account")
	}

	updates := make(map[string]interface{})
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleUser {
			return nil, apperr.Validation(nil, "invalid role %q, must be %q or %q", *req.Role, models.RoleAdmin, models.RoleUser)
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if len(updates) == 0 {
		return nil, apperr.Validation(nil, "no fields to update")
	}

	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}
