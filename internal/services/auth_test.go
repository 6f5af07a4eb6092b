package services

import (
	"errors"
	"testing"

	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/internal/utils"
	"gorm.io/gorm"
)

type fakeLDAP struct {
	enabled bool
	users   map[string]string
}

func (f *fakeLDAP) IsEnabled() bool { return f.enabled }

func (f *fakeLDAP) Authenticate(username, password string) (*LDAPUser, error) {
	if pw, ok := f.users[username]; !ok || pw != password {
		return nil, ErrInvalidCredentials
	}
	return &LDAPUser{Username: username, Email: username + "@corp.example", Nickname: "LDAP " + username}, nil
}

func newTestAuth(t *testing.T, ldap LDAPAuthenticator) (*AuthService, *gorm.DB, *utils.JWTManager) {
	t.Helper()
	db := newTestDB(t)
	jwt, err := utils.NewJWTManager(&config.JWTConfig{Secret: "test", Algorithm: "HS256", ExpireHour: 1})
	if err != nil {
		t.Fatal(err)
	}
	return NewAuthService(db, ldap, jwt), db, jwt
}

func TestAuthService_RegisterFirstUserIsAdmin(t *testing.T) {
	svc, _, _ := newTestAuth(t, nil)

	first, err := svc.Register(&RegisterRequest{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if first.Role != models.RoleAdmin {
		t.Errorf("first user role = %q, expected %q", first.Role, models.RoleAdmin)
	}
	if first.Password == "secret1" {
		t.Error("password must be stored hashed")
	}

	second, err := svc.Register(&RegisterRequest{Username: "bob", Password: "secret2"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if second.Role != models.RoleUser {
		t.Errorf("second user role = %q, expected %q", second.Role, models.RoleUser)
	}

	if _, err := svc.Register(&RegisterRequest{Username: "alice", Password: "another"}); !apperr.IsConflict(err) {
		t.Errorf("duplicate username error = %v, expected conflict", err)
	}
}

func TestAuthService_LoginLocal(t *testing.T) {
	svc, _, jwt := newTestAuth(t, nil)
	user, _ := svc.Register(&RegisterRequest{Username: "alice", Password: "secret1"})

	resp, err := svc.Login(&LoginRequest{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.TokenType != "bearer" || resp.User.ID != user.ID {
		t.Errorf("unexpected login response %+v", resp)
	}
	if resp.User.LastLogin == nil {
		t.Error("LastLogin should be set")
	}

	claims, err := jwt.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != models.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}

	tests := []struct {
		name string
		req  LoginRequest
		err  error
	}{
		{"wrong password", LoginRequest{Username: "alice", Password: "nope"}, ErrInvalidCredentials},
		{"unknown user", LoginRequest{Username: "carol", Password: "secret1"}, ErrInvalidCredentials},
		{"bad auth type", LoginRequest{Username: "alice", Password: "secret1", AuthType: "oauth"}, ErrInvalidAuthType},
		{"ldap disabled", LoginRequest{Username: "alice", Password: "secret1", AuthType: "ldap"}, ErrInvalidAuthType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(&tt.req); !errors.Is(err, tt.err) {
				t.Errorf("Login() error = %v, expected %v", err, tt.err)
			}
		})
	}
}

func TestAuthService_LoginDisabledUser(t *testing.T) {
	svc, db, _ := newTestAuth(t, nil)
	user, _ := svc.Register(&RegisterRequest{Username: "alice", Password: "secret1"})
	db.Model(user).Update("is_active", false)

	if _, err := svc.Login(&LoginRequest{Username: "alice", Password: "secret1"}); !errors.Is(err, ErrUserDisabled) {
		t.Errorf("Login() error = %v, expected ErrUserDisabled", err)
	}
}

func TestAuthService_LoginLDAP(t *testing.T) {
	ldap := &fakeLDAP{enabled: true, users: map[string]string{"dave": "dirpass"}}
	svc, db, _ := newTestAuth(t, ldap)

	if !svc.IsLDAPEnabled() {
		t.Error("IsLDAPEnabled() should be true")
	}

	resp, err := svc.Login(&LoginRequest{Username: "dave", Password: "dirpass", AuthType: "ldap"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.User.AuthType != models.AuthTypeLDAP || resp.User.Email != "dave@corp.example" {
		t.Errorf("mirrored user = %+v", resp.User)
	}

	if _, err := svc.Login(&LoginRequest{Username: "dave", Password: "dirpass", AuthType: "ldap"}); err != nil {
		t.Fatalf("second Login() error = %v", err)
	}
	var count int64
	db.Model(&models.User{}).Where("username = ?", "dave").Count(&count)
	if count != 1 {
		t.Errorf("LDAP user mirrored %d times, expected once", count)
	}

	if _, err := svc.Login(&LoginRequest{Username: "dave", Password: "wrong", AuthType: "ldap"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad LDAP password error = %v", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, _, _ := newTestAuth(t, nil)
	user, _ := svc.Register(&RegisterRequest{Username: "alice", Password: "secret1"})

	if err := svc.ChangePassword(user.ID, &ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newsecret"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password error = %v", err)
	}
	if err := svc.ChangePassword(user.ID, &ChangePasswordRequest{OldPassword: "secret1", NewPassword: "newsecret"}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Login(&LoginRequest{Username: "alice", Password: "newsecret"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if err := svc.ChangePassword(999, &ChangePasswordRequest{OldPassword: "a", NewPassword: "bbbbbb"}); !apperr.IsNotFound(err) {
		t.Errorf("missing user error = %v, expected not found", err)
	}
}

func TestLDAPService_Disabled(t *testing.T) {
	svc := NewLDAPService(&config.LDAPConfig{Enabled: false})
	if svc.IsEnabled() {
		t.Error("IsEnabled() should be false")
	}
	if _, err := svc.Authenticate("u", "p"); err == nil {
		t.Error("Authenticate() should fail when LDAP is disabled")
	}
}
