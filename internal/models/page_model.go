package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Page struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Slug            string    `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Path            string    `gorm:"size:255;uniqueIndex;not null" json:"path"`
	Status          string    `gorm:"size:20;index;not null" json:"status"`
	Template        string    `gorm:"size:100" json:"template,omitempty"`
	MetaTitle       string    `gorm:"size:255" json:"meta_title,omitempty"`
	MetaDescription string    `gorm:"size:500" json:"meta_description,omitempty"`
	MetaKeywords    string    `gorm:"size:500" json:"meta_keywords,omitempty"`
	OGImage         string    `gorm:"size:500" json:"og_image,omitempty"`
	CanonicalURL    string    `gorm:"size:500" json:"canonical_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Content struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	PageID       uint           `gorm:"index;not null" json:"page_id"`
	Title        string         `gorm:"size:255" json:"title"`
	Body         string         `gorm:"type:text" json:"body"`
	Order        int            `gorm:"column:sort_order;index" json:"order"`
	Status       string         `gorm:"size:20;index;not null" json:"status"`
	CustomFields datatypes.JSON `json:"custom_fields,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Content) TableName() string {
	return "contents"
}

func IsStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}
