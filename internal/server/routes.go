package server

import (
	"github.com/Kyz7/backoffice/internal/auth"
	"github.com/Kyz7/backoffice/internal/config"
	"github.com/Kyz7/backoffice/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func SetupRoutes(app *fiber.App, cfg *config.Config, authority *auth.Authority, cookies auth.CookieConfig, h *Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Back-office API is running",
		})
	})

	api := app.Group("/api")
	requireSession := middleware.Authenticated(authority, cookies)

	// ==========================================
	// PUBLIC
	// ==========================================
	api.Get("/settings", h.Settings.GetSettingsHandler)
	api.Get("/public/pages/:segment?", h.Pages.PublicPageHandler)

	// ==========================================
	// AUTH
	// ==========================================
	authGroup := api.Group("/auth")
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: cfg.LoginRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), h.Auth.LoginHandler)
	authGroup.Post("/logout", h.Auth.LogoutHandler)
	authGroup.Get("/status", h.Auth.StatusHandler)
	authGroup.Post("/reset-password", h.Auth.ResetPasswordHandler)
	authGroup.Get("/session-check", requireSession, h.Auth.SessionCheckHandler)
	authGroup.Post("/change-password", requireSession, h.Auth.ChangePasswordHandler)
	if h.Google != nil {
		authGroup.Get("/google/login", h.Google.LoginHandler)
		authGroup.Get("/google/callback", h.Google.CallbackHandler)
	}

	// ==========================================
	// MENUS (reads are public)
	// ==========================================
	menuGroup := api.Group("/menus")
	menuGroup.Get("/", h.Menus.ListMenusHandler)
	menuGroup.Get("/location/:location", h.Menus.GetByLocationHandler)
	menuGroup.Get("/:ref", h.Menus.GetMenuHandler)
	menuGroup.Post("/", requireSession, middleware.Capability("menus-create"), h.Menus.CreateMenuHandler)
	menuGroup.Put("/:id", requireSession, middleware.Capability("menus-update"), h.Menus.UpdateMenuHandler)
	menuGroup.Delete("/:id", requireSession, middleware.Capability("menus-delete"), h.Menus.DeleteMenuHandler)
	menuGroup.Post("/:id/items", requireSession, middleware.Capability("menus-update"), h.Menus.AddItemsHandler)
	menuGroup.Put("/:id/items", requireSession, middleware.Capability("menus-update"), h.Menus.ReplaceTreeHandler)
	menuGroup.Put("/:id/items/:itemId/move", requireSession, middleware.Capability("menus-update"), h.Menus.MoveItemHandler)
	menuGroup.Delete("/:id/items/:itemId", requireSession, middleware.Capability("menus-update"), h.Menus.RemoveItemHandler)

	superAdmin := middleware.Allow(middleware.RequireSuperAdmin())

	// ==========================================
	// SETTINGS
	// ==========================================
	api.Put("/settings", requireSession, middleware.Capability("settings-update"), h.Settings.UpdateSettingsHandler)

	// ==========================================
	// PERMISSION REGISTRY (super admin only)
	// ==========================================
	permGroup := api.Group("/permissions", requireSession, superAdmin)
	permGroup.Get("/", h.Permissions.ListPermissionsHandler)
	permGroup.Get("/catalog", h.Permissions.CatalogHandler)
	permGroup.Get("/:id", h.Permissions.GetPermissionHandler)
	permGroup.Post("/", h.Permissions.CreatePermissionHandler)
	permGroup.Put("/:id", h.Permissions.UpdatePermissionHandler)
	permGroup.Delete("/:id", h.Permissions.DeletePermissionHandler)

	// ==========================================
	// ROLES
	// ==========================================
	roleGroup := api.Group("/roles", requireSession)
	roleGroup.Get("/", middleware.Capability("roles-read"), h.Roles.ListRolesHandler)
	roleGroup.Get("/:id", middleware.Capability("roles-read"), h.Roles.GetRoleHandler)
	roleGroup.Post("/", superAdmin, h.Roles.CreateRoleHandler)
	roleGroup.Put("/:id", superAdmin, h.Roles.UpdateRoleHandler)
	roleGroup.Delete("/:id", superAdmin, h.Roles.DeleteRoleHandler)
	roleGroup.Post("/:id/duplicate", superAdmin, h.Roles.DuplicateRoleHandler)

	// ==========================================
	// USERS
	// ==========================================
	userGroup := api.Group("/users", requireSession)
	userGroup.Get("/", middleware.Capability("users-read"), h.Users.ListUsersHandler)
	userGroup.Get("/:id", middleware.Capability("users-read"), h.Users.GetUserHandler)
	userGroup.Post("/", middleware.Capability("users-create"), h.Users.CreateUserHandler)
	userGroup.Put("/:id", middleware.Capability("users-update"), h.Users.UpdateUserHandler)
	userGroup.Delete("/:id", middleware.Capability("users-delete"), h.Users.DeleteUserHandler)
	userGroup.Patch("/:id/status", middleware.Capability("users-update"), h.Users.SetStatusHandler)
	userGroup.Post("/:id/reset-token", middleware.Capability("users-update"), h.Users.IssueResetTokenHandler)

	// ==========================================
	// PAGES & CONTENT
	// ==========================================
	pageGroup := api.Group("/pages", requireSession)
	pageGroup.Get("/", middleware.Capability("pages-read"), h.Pages.ListPagesHandler)
	pageGroup.Get("/:id", middleware.Capability("pages-read"), h.Pages.GetPageHandler)
	pageGroup.Post("/", middleware.Capability("pages-create"), h.Pages.CreatePageHandler)
	pageGroup.Put("/:id", middleware.Capability("pages-update"), h.Pages.UpdatePageHandler)
	pageGroup.Delete("/:id", middleware.Capability("pages-delete"), h.Pages.DeletePageHandler)

	contentGroup := api.Group("/content", requireSession)
	contentGroup.Get("/", middleware.Capability("content-read"), h.Content.ListContentHandler)
	contentGroup.Get("/:id", middleware.Capability("content-read"), h.Content.GetContentHandler)
	contentGroup.Post("/", middleware.Capability("content-create"), h.Content.CreateContentHandler)
	contentGroup.Put("/:id", middleware.Capability("content-update"), h.Content.UpdateContentHandler)
	contentGroup.Delete("/:id", middleware.Capability("content-delete"), h.Content.DeleteContentHandler)

	searchGroup := api.Group("/search", requireSession, middleware.Capability("content-read"))
	searchGroup.Get("/content", h.Search.SearchContentHandler)
	searchGroup.Get("/facets", h.Search.FacetsHandler)

	// ==========================================
	// MEDIA LIBRARY
	// ==========================================
	mediaGroup := api.Group("/media", requireSession)
	mediaGroup.Post("/upload", middleware.Capability("media-create"), h.Media.UploadMediaHandler)
	mediaGroup.Get("/", middleware.Capability("media-read"), h.Media.ListMediaHandler)
	mediaGroup.Get("/:id", middleware.Capability("media-read"), h.Media.GetMediaHandler)
	mediaGroup.Put("/:id", middleware.Capability("media-update"), h.Media.UpdateMediaHandler)
	mediaGroup.Delete("/:id", middleware.Capability("media-delete"), h.Media.DeleteMediaHandler)
}
