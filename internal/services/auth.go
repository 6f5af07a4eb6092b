package services

import (
	"errors"
	"strings"
	"time"

	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrInvalidAuthType    = errors.New("invalid auth type")
)

type AuthService struct {
	db   *gorm.DB
	ldap LDAPAuthenticator
	jwt  *utils.JWTManager
}

func NewAuthService(db *gorm.DB, ldap LDAPAuthenticator, jwt *utils.JWTManager) *AuthService {
	return &AuthService{db: db, ldap: ldap, jwt: jwt}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
	Nickname string `json:"nickname"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *models.User `json:"user"`
	ExpireAt  time.Time    `json:"expire_at"`
}

// Register creates a local account. The very first account becomes admin.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperr.Validation(nil, "username is required")
	}
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Password: hashed,
		Email:    req.Email,
		Nickname: req.Nickname,
		Role:     models.RoleUser,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			user.Role = models.RoleAdmin
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	var user *models.User
	var err error

	if req.AuthType == "" {
		req.AuthType = models.AuthTypeLocal
	}

	switch req.AuthType {
	case models.AuthTypeLocal:
		user, err = s.localAuth(req.Username, req.Password)
	case models.AuthTypeLDAP:
		user, err = s.ldapAuth(req.Username, req.Password)
	default:
		return nil, ErrInvalidAuthType
	}
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(user).Update("last_login", now).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}

	return &LoginResponse{
		Token:     token,
		TokenType: "bearer",
		User:      user,
		ExpireAt:  now.Add(s.jwt.TTL()),
	}, nil
}

func (s *AuthService) localAuth(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ? AND auth_type = ?", username, models.AuthTypeLocal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.FromDB(err, "user")
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return &user, nil
}

// ldapAuth verifies against the directory and mirrors the account locally on
// first login.
func (s *AuthService) ldapAuth(username, password string) (*models.User, error) {
	if s.ldap == nil || !s.ldap.IsEnabled() {
		return nil, ErrInvalidAuthType
	}
	ldapUser, err := s.ldap.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.Where("username = ? AND auth_type = ?", ldapUser.Username, models.AuthTypeLDAP).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Username: ldapUser.Username,
			Email:    ldapUser.Email,
			Nickname: ldapUser.Nickname,
			Role:     models.RoleUser,
			AuthType: models.AuthTypeLDAP,
			IsActive: true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, apperr.FromDB(err, "user")
		}
		return &user, nil
	} else if err != nil {
		return nil, apperr.FromDB(err, "user")
	}

	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	user.Email = ldapUser.Email
	user.Nickname = ldapUser.Nickname
	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"email":    user.Email,
		"nickname": user.Nickname,
	}).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldap != nil && s.ldap.IsEnabled()
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user.AuthType != models.AuthTypeLocal {
		return apperr.Validation(nil, "LDAP users cannot change password here")
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.db.Model(user).Update("password", hashed).Error; err != nil {
		return apperr.FromDB(err, "user")
	}
	return nil
}
