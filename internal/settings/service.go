package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	cache *Cache
	log   logrus.FieldLogger
}

func NewService(db *gorm.DB, cache *Cache, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: cache, log: log}
}

// Load reads the site settings row. A missing row is an empty document.
func Load(db *gorm.DB) Loader {
	return func(ctx context.Context) (Values, error) {
		var row models.SiteSetting
		err := db.WithContext(ctx).Where("key = ?", models.SiteSettingsKey).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Values{}, nil
		}
		if err != nil {
			return nil, apperr.Internal("Failed to load settings", err)
		}
		return decode(row.Value)
	}
}

func (s *Service) Get(ctx context.Context) (Values, error) {
	return s.cache.Get(ctx, false)
}

// Update merges values into the stored document. A nil value removes the
// key. The cache is invalidated before Update returns.
func (s *Service) Update(ctx context.Context, actorID uint, values Values) (Values, error) {
	if len(values) == 0 {
		return nil, apperr.Field("settings", "must contain at least one key")
	}

	var merged Values
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.SiteSetting
		err := tx.Where("key = ?", models.SiteSettingsKey).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.SiteSetting{Key: models.SiteSettingsKey}
		case err != nil:
			return err
		}

		current, err := decode(row.Value)
		if err != nil {
			return err
		}
		for k, v := range values {
			if v == nil {
				delete(current, k)
				continue
			}
			current[k] = v
		}

		raw, err := json.Marshal(current)
		if err != nil {
			return err
		}
		row.Value = datatypes.JSON(raw)
		row.UpdatedBy = actorID
		merged = current
		return tx.Save(&row).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal("Failed to update settings", err)
	}

	s.cache.Invalidate()
	s.log.WithFields(logrus.Fields{"updated_by": actorID, "keys": len(values)}).Info("site settings updated")
	return merged, nil
}

func decode(raw datatypes.JSON) (Values, error) {
	v := Values{}
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperr.Internal("Stored settings are not a JSON object", err)
	}
	return v, nil
}
