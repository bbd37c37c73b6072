package models

import (
	"time"

	"gorm.io/datatypes"
)

const SiteSettingsKey = "site"

// SiteSetting holds one JSON document of site configuration per key.
type SiteSetting struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Key       string         `gorm:"size:50;uniqueIndex;not null" json:"key"`
	Value     datatypes.JSON `json:"value"`
	UpdatedBy uint           `json:"updated_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
