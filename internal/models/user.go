package models

import (
	"fmt"
	"strings"
	"time"
)

type UserRole string

const (
	RoleParent  UserRole = "parent"
	RoleMother  UserRole = "mother"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// ParseRole accepts only the four known roles.
func ParseRole(s string) (UserRole, error) {
	switch r := UserRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleParent, RoleMother, RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsGuardian reports whether the role owns children (parent or mother).
func (r UserRole) IsGuardian() bool {
	switch r {
	case RoleParent, RoleMother:
		return true
	case RoleManager, RoleAdmin:
		return false
	default:
		return false
	}
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Phone        *string   `gorm:"size:20;uniqueIndex" json:"phone"`
	ProfilePhoto *string   `gorm:"size:500" json:"profile_photo"`
	Role         UserRole  `gorm:"size:20;not null;default:parent" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Children []Child   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Daycares []Daycare `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// PublicUser is the subset of a user shown next to reviews and daycares.
type PublicUser struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Phone        *string `json:"phone,omitempty"`
	ProfilePhoto *string `json:"profile_photo,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Phone: u.Phone, ProfilePhoto: u.ProfilePhoto}
}
