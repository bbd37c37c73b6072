package models

import (
	"strings"
	"time"
)

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionManage = "manage"
)

// Modules are the business areas permissions are granted over.
var Modules = []string{
	"users", "roles", "permissions", "pages", "content", "menus",
	"media", "leads", "ads", "seo", "redirects", "settings",
}

var Actions = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}

type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:500" json:"description"`
	Module      string    `gorm:"size:50;uniqueIndex:idx_permission_module_action;not null" json:"module"`
	Action      string    `gorm:"size:20;uniqueIndex:idx_permission_module_action;not null" json:"action"`
	IsActive    bool      `gorm:"index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func IsModule(s string) bool {
	for _, m := range Modules {
		if m == s {
			return true
		}
	}
	return false
}

func IsAction(s string) bool {
	for _, a := range Actions {
		if a == s {
			return true
		}
	}
	return false
}

// CapabilitySlug is the "module-action" atom checked by guards.
func CapabilitySlug(module, action string) string {
	return module + "-" + action
}

// ParseCapability splits a "module-action" atom. Module names never contain
// a hyphen so the first one is the separator.
func ParseCapability(slug string) (module, action string, ok bool) {
	module, action, ok = strings.Cut(slug, "-")
	if !ok || !IsModule(module) || !IsAction(action) {
		return "", "", false
	}
	return module, action, true
}
