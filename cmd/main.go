package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Kyz7/backoffice/internal/config"
	"github.com/Kyz7/backoffice/internal/database"
	"github.com/Kyz7/backoffice/internal/logger"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/role"
	"github.com/Kyz7/backoffice/internal/server"
	"github.com/Kyz7/backoffice/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration error")
	}
	log := logger.New(cfg)

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db, log); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	// ========== REDIS ==========
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Fatal("redis connection failed")
	}

	// ========== STORAGE SETUP ==========
	store, err := newStorage(cfg)
	if err != nil {
		log.WithError(err).Fatal("storage initialization failed")
	}
	log.WithField("driver", store.Name()).Info("storage ready")

	app := server.New(server.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Storage: store,
		Log:     log,
	})

	// ========== SEED DEFAULT DATA ==========
	ctx := context.Background()
	if err := app.Permissions.Seed(ctx); err != nil {
		log.WithError(err).Fatal("failed to seed permissions")
	}
	if err := role.SeedDefaultRoles(ctx, db, log); err != nil {
		log.WithError(err).Fatal("failed to seed roles")
	}
	if err := seedAdmin(ctx, db, cfg, log); err != nil {
		log.WithError(err).Fatal("failed to seed admin account")
	}

	// ========== START SERVER ==========
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.ServerAddr, "env": cfg.AppEnv}).Info("back-office server starting")
		if err := app.Listen(cfg.ServerAddr); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if err := rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis client")
	}
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == "s3" {
		return storage.NewS3(cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL)
	}
	return storage.NewLocal(cfg.UploadDir, "/uploads")
}

// seedAdmin creates the first super admin account from SEED_ADMIN_* when no
// account with that email exists yet.
func seedAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var superAdmin models.Role
	if err := db.WithContext(ctx).Where("slug = ?", models.SuperAdminSlug).First(&superAdmin).Error; err != nil {
		return err
	}

	admin := models.User{
		Name:     cfg.SeedAdminName,
		Email:    email,
		RoleID:   superAdmin.ID,
		IsActive: true,
	}
	if err := admin.SetPassword(cfg.SeedAdminPassword); err != nil {
		return err
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	log.WithField("email", email).Info("seeded super admin account")
	return nil
}
