package server

import (
	"github.com/Kyz7/backoffice/internal/auth"
	"github.com/Kyz7/backoffice/internal/config"
	"github.com/Kyz7/backoffice/internal/content"
	"github.com/Kyz7/backoffice/internal/logger"
	"github.com/Kyz7/backoffice/internal/media"
	"github.com/Kyz7/backoffice/internal/menu"
	"github.com/Kyz7/backoffice/internal/page"
	"github.com/Kyz7/backoffice/internal/permission"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/role"
	"github.com/Kyz7/backoffice/internal/search"
	"github.com/Kyz7/backoffice/internal/session"
	"github.com/Kyz7/backoffice/internal/settings"
	"github.com/Kyz7/backoffice/internal/storage"
	"github.com/Kyz7/backoffice/internal/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators the app is built from.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   redis.Cmdable
	Storage storage.Storage
	Log     logrus.FieldLogger
}

// Handlers groups every route handler so the route table stays flat.
type Handlers struct {
	Auth        *auth.Handler
	Google      *auth.GoogleSignIn
	Permissions *permission.Handler
	Roles       *role.Handler
	Users       *user.Handler
	Menus       *menu.Handler
	Pages       *page.Handler
	Content     *content.Handler
	Search      *search.Handler
	Settings    *settings.Handler
	Media       *media.Handler
}

// App is the built fiber app plus the services callers such as main and the
// test harness need direct access to.
type App struct {
	*fiber.App
	Authority   *auth.Authority
	Resolver    *role.Resolver
	Permissions *permission.Service
	Settings    *settings.Cache
}

func New(d Deps) *App {
	cfg := d.Config

	resolver := role.NewResolver(d.DB, cfg.RoleCacheTTL)
	sessions := session.NewRedisStore(d.Redis, cfg.SessionTTL)
	resets := auth.NewResetTokens(cfg.SessionSecret, cfg.ResetTokenTTL)
	authority := auth.NewAuthority(d.DB, sessions, resolver, resets, d.Log)
	cookies := auth.CookieConfig{Secure: cfg.IsProduction(), TTL: cfg.SessionTTL}

	permissions := permission.NewService(d.DB, resolver, d.Log)
	contents := content.NewService(d.DB, d.Log)
	settingsCache := settings.NewCache(cfg.SettingsCacheTTL, settings.Load(d.DB))

	h := &Handlers{
		Auth:        auth.NewHandler(authority, cookies),
		Permissions: permission.NewHandler(permissions),
		Roles:       role.NewHandler(role.NewService(d.DB, resolver, d.Log)),
		Users:       user.NewHandler(user.NewService(d.DB, authority, d.Log), authority, cookies, cfg.DefaultPageSize, cfg.MaxPageSize),
		Menus:       menu.NewHandler(menu.NewService(d.DB, d.Log)),
		Pages:       page.NewHandler(page.NewService(d.DB, contents, d.Log), cfg.DefaultPageSize, cfg.MaxPageSize),
		Content:     content.NewHandler(contents, cfg.DefaultPageSize, cfg.MaxPageSize),
		Search:      search.NewHandler(search.NewService(d.DB), cfg.DefaultPageSize, cfg.MaxPageSize),
		Settings:    settings.NewHandler(settings.NewService(d.DB, settingsCache, d.Log)),
		Media:       media.NewHandler(media.NewService(d.DB, d.Storage, cfg.MaxUploadBytes, d.Log), cfg.DefaultPageSize, cfg.MaxPageSize),
	}
	if cfg.GoogleEnabled() {
		h.Google = auth.NewGoogleSignIn(cfg, d.Redis, authority, cookies, d.Log)
	}

	app := fiber.New(fiber.Config{
		AppName:      "backoffice",
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
		ErrorHandler: response.ErrorHandler(cfg.IsDevelopment()),
	})

	app.Use(requestid.New())
	app.Use(logger.Middleware(d.Log))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS, PATCH",
		AllowCredentials: true,
	}))

	if _, ok := d.Storage.(*storage.Local); ok {
		app.Static("/uploads", cfg.UploadDir, fiber.Static{
			Compress:  true,
			ByteRange: true,
			Browse:    false,
			MaxAge:    3600,
		})
	}

	SetupRoutes(app, cfg, authority, cookies, h)

	return &App{
		App:         app,
		Authority:   authority,
		Resolver:    resolver,
		Permissions: permissions,
		Settings:    settingsCache,
	}
}
