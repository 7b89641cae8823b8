package admins

import (
	"time"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

type Admin struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:120" json:"name"`
	Email             string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash      string    `gorm:"not null" json:"-"`
	Role              string    `gorm:"size:20;not null;default:admin;index" json:"role"`
	PasswordChangedAt time.Time `json:"passwordChangedAt"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (a *Admin) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// Profile is the subset of an admin returned by login.
type Profile struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (a *Admin) Profile() Profile {
	return Profile{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}
