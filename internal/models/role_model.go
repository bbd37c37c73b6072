package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

const SuperAdminSlug = "super-admin"

const (
	MinRoleLevel = 1
	MaxRoleLevel = 5
)

type Role struct {
	ID           uint                               `gorm:"primaryKey" json:"id"`
	Name         string                             `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug         string                             `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description  string                             `gorm:"size:500" json:"description"`
	Permissions  datatypes.JSONSlice[PermissionRef] `json:"permissions"`
	Level        int                                `gorm:"not null" json:"level"`
	IsSystemRole bool                               `json:"is_system_role"`
	IsActive     bool                               `json:"is_active"`
	CreatedAt    time.Time                          `json:"created_at"`
	UpdatedAt    time.Time                          `json:"updated_at"`
}

func (r *Role) IsSuperAdmin() bool {
	return r != nil && r.Slug == SuperAdminSlug
}

// PermissionRef points at a permission either by id or, for rows written
// before ids were used, by slug. On the wire an id is a JSON number and a
// slug is a JSON string; numeric strings are read as ids.
type PermissionRef struct {
	ID   uint
	Slug string
}

func RefByID(id uint) PermissionRef { return PermissionRef{ID: id} }

func RefBySlug(slug string) PermissionRef { return PermissionRef{Slug: slug} }

func (r PermissionRef) IsID() bool { return r.ID != 0 }

func (r PermissionRef) String() string {
	if r.IsID() {
		return strconv.FormatUint(uint64(r.ID), 10)
	}
	return r.Slug
}

func (r PermissionRef) MarshalJSON() ([]byte, error) {
	if r.IsID() {
		return []byte(strconv.FormatUint(uint64(r.ID), 10)), nil
	}
	return json.Marshal(r.Slug)
}

func (r *PermissionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty permission reference")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return fmt.Errorf("empty permission reference")
		}
		if id, err := strconv.ParseUint(s, 10, 64); err == nil && id > 0 {
			*r = PermissionRef{ID: uint(id)}
			return nil
		}
		*r = PermissionRef{Slug: s}
		return nil
	}

	id, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("permission reference must be a positive id or a slug, got %s", data)
	}
	*r = PermissionRef{ID: uint(id)}
	return nil
}
