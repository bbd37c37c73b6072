package role

import (
	"context"
	"errors"

	"github.com/Kyz7/backoffice/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type seedRole struct {
	Name        string
	Slug        string
	Description string
	Level       int
	Permissions []string
}

func defaultRoles() []seedRole {
	var adminPerms, viewerPerms []string
	for _, m := range models.Modules {
		switch m {
		case "permissions":
		case "roles":
			adminPerms = append(adminPerms, models.CapabilitySlug(m, models.ActionRead))
		case "users":
			adminPerms = append(adminPerms, models.CapabilitySlug(m, models.ActionManage))
		default:
			adminPerms = append(adminPerms, models.CapabilitySlug(m, models.ActionManage))
			viewerPerms = append(viewerPerms, models.CapabilitySlug(m, models.ActionRead))
		}
	}

	return []seedRole{
		{
			Name:        "Super Admin",
			Slug:        models.SuperAdminSlug,
			Description: "Unrestricted access to every module",
			Level:       1,
		},
		{
			Name:        "Admin",
			Slug:        "admin",
			Description: "Full access except role and permission management",
			Level:       2,
			Permissions: adminPerms,
		},
		{
			Name:        "Editor",
			Slug:        "editor",
			Description: "Manages pages, content, menus, media, SEO and redirects",
			Level:       3,
			Permissions: []string{
				"pages-manage", "content-manage", "menus-manage",
				"media-manage", "seo-manage", "redirects-manage", "settings-read",
			},
		},
		{
			Name:        "Sales",
			Slug:        "sales",
			Description: "Works leads and reads campaign data",
			Level:       4,
			Permissions: []string{"leads-manage", "ads-read", "pages-read", "content-read"},
		},
		{
			Name:        "Viewer",
			Slug:        "viewer",
			Description: "Read-only access to site modules",
			Level:       5,
			Permissions: viewerPerms,
		},
	}
}

// SeedDefaultRoles creates the system roles that are missing. Existing roles
// are left untouched. Permissions must already be seeded.
func SeedDefaultRoles(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) error {
	var perms []models.Permission
	if err := db.WithContext(ctx).Find(&perms).Error; err != nil {
		return err
	}
	idBySlug := make(map[string]uint, len(perms))
	for _, p := range perms {
		idBySlug[p.Slug] = p.ID
	}

	created := 0
	for _, def := range defaultRoles() {
		var existing models.Role
		err := db.WithContext(ctx).Where("slug = ?", def.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		refs := make([]models.PermissionRef, 0, len(def.Permissions))
		for _, slug := range def.Permissions {
			if id, ok := idBySlug[slug]; ok {
				refs = append(refs, models.RefByID(id))
			} else {
				log.WithField("permission", slug).Warn("seed permission missing, role will not receive it")
			}
		}

		role := models.Role{
			Name:         def.Name,
			Slug:         def.Slug,
			Description:  def.Description,
			Permissions:  refs,
			Level:        def.Level,
			IsSystemRole: true,
			IsActive:     true,
		}
		if err := db.WithContext(ctx).Create(&role).Error; err != nil {
			return err
		}
		created++
	}

	log.WithField("created", created).Info("system roles seeded")
	return nil
}
