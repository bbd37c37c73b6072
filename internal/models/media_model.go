package models

import "time"

type MediaFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FileName   string    `gorm:"size:255" json:"file_name"`
	URL        string    `gorm:"size:500" json:"url"`
	StorageKey string    `gorm:"size:500;uniqueIndex" json:"-"`
	MimeType   string    `gorm:"size:100;index" json:"mime_type"`
	Size       int64     `json:"size"`
	Alt        string    `gorm:"size:255" json:"alt"`
	Caption    string    `gorm:"type:text" json:"caption"`
	UploadedBy uint      `gorm:"index" json:"uploaded_by"`
	Uploader   *User     `gorm:"foreignKey:UploadedBy" json:"uploader,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
