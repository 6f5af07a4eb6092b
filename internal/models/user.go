package models

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

// User is an identity known to the service. Reviews reference it by ID only.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password  string     `gorm:"size:255" json:"-"` // bcrypt hash, empty for LDAP users
	Email     string     `gorm:"size:255" json:"email"`
	Nickname  string     `gorm:"size:100" json:"nickname"`
	Role      string     `gorm:"size:50;default:user" json:"role"`       // admin, user
	AuthType  string     `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }
