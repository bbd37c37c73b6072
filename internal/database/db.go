package database

import (
	"github.com/Kyz7/backoffice/internal/config"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/sirupsen/logrus"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Models lists every persisted document in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&models.Menu{},
		&models.MenuItem{},
		&models.Page{},
		&models.Content{},
		&models.SiteSetting{},
		&models.MediaFile{},
	}
}

func Migrate(db *gorm.DB, log logrus.FieldLogger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	log.Info("database migrated")
	return nil
}
