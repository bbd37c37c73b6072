package models

import (
	"time"

	"github.com/Kyz7/backoffice/internal/utils"
	"gorm.io/datatypes"
)

type User struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Name              string                      `gorm:"size:100" json:"name"`
	Email             string                      `gorm:"uniqueIndex;size:100" json:"email"`
	Password          string                      `gorm:"size:255" json:"-"`
	RoleID            uint                        `gorm:"index;not null" json:"role_id"`
	Role              *Role                       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CustomPermissions datatypes.JSONSlice[string] `json:"custom_permissions"`
	IsActive          bool                        `gorm:"index" json:"is_active"`
	SessionVersion    int64                       `gorm:"not null" json:"-"`
	PasswordChangedAt *time.Time                  `json:"password_changed_at,omitempty"`
	LastLoginAt       *time.Time                  `json:"last_login_at,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// SetPassword hashes raw and advances the session epoch, which makes every
// session issued before the change stale.
func (u *User) SetPassword(raw string) error {
	hash, err := utils.HashPassword(raw)
	if err != nil {
		return err
	}
	now := time.Now()
	u.Password = hash
	u.SessionVersion++
	u.PasswordChangedAt = &now
	return nil
}
